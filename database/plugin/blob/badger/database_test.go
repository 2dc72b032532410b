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

package badger

import (
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitTimestampRoundTrip(t *testing.T) {
	store, err := New(WithDataDir(t.TempDir()))
	require.NoError(t, err)

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Zero(t, ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(txn, 1700000000123))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)
	require.NoError(t, store.Close())
}

func TestInMemoryStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := New(WithPromRegistry(reg))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	assert.Nil(t, store.gcTicker)

	err = store.DB().Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("receipt:1"), []byte("{}"))
	})
	require.NoError(t, err)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}
