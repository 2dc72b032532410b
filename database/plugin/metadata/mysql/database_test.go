// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mysql

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNFromOptions(t *testing.T) {
	d := &MetadataStoreMysql{}
	for _, opt := range []MysqlOptionFunc{
		WithHost("db.example"),
		WithPort(3307),
		WithUser("guild"),
		WithPassword("secret"),
		WithDatabase("governance"),
		WithSSLMode("skip-verify"),
		WithTimeZone("UTC"),
	} {
		opt(d)
	}
	dsn, dbName := d.buildDSN()
	assert.Equal(t, "governance", dbName)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "guild", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db.example:3307", cfg.Addr)
	assert.Equal(t, "governance", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "skip-verify", cfg.TLSConfig)
}

func TestBuildDSNOverride(t *testing.T) {
	d := &MetadataStoreMysql{}
	WithDatabase("ignored")(d)
	WithDSN("  user:pw@tcp(host:3306)/fromdsn?parseTime=true ")(d)
	dsn, dbName := d.buildDSN()
	assert.Equal(t, "user:pw@tcp(host:3306)/fromdsn?parseTime=true", dsn)
	assert.Equal(t, "fromdsn", dbName)
}

func TestParseMysqlDatabaseFromDSN(t *testing.T) {
	name, ok := parseMysqlDatabaseFromDSN("user@tcp(host)/")
	assert.False(t, ok)
	assert.Empty(t, name)
	name, ok = parseMysqlDatabaseFromDSN("user@tcp(host)/guild")
	assert.True(t, ok)
	assert.Equal(t, "guild", name)
}
