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

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSNDefaults(t *testing.T) {
	d := &MetadataStorePostgres{}
	d.applyDefaults()
	assert.Equal(
		t,
		"host=localhost user=postgres password= dbname=guild port=5432 sslmode=disable TimeZone=UTC",
		d.buildDSN(),
	)
}

func TestBuildDSNFromOptions(t *testing.T) {
	d := &MetadataStorePostgres{}
	for _, opt := range []PostgresOptionFunc{
		WithHost("db.example"),
		WithPort(6432),
		WithUser("guild"),
		WithPassword("secret"),
		WithDatabase("governance"),
		WithSSLMode("require"),
		WithTimeZone("Europe/Berlin"),
	} {
		opt(d)
	}
	d.applyDefaults()
	assert.Equal(
		t,
		"host=db.example user=guild password=secret dbname=governance port=6432 sslmode=require TimeZone=Europe/Berlin",
		d.buildDSN(),
	)
}

func TestBuildDSNOverride(t *testing.T) {
	d := &MetadataStorePostgres{}
	WithDSN("postgres://u:p@h/db")(d)
	d.applyDefaults()
	assert.Equal(t, "postgres://u:p@h/db", d.buildDSN())
}
