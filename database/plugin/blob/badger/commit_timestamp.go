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
	"errors"
	"math/big"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	commitTimestampBlobKey = "metadata_commit_timestamp"
)

// GetCommitTimestamp returns the last recorded commit timestamp, or 0 if
// none has been written
func (b *BlobStoreBadger) GetCommitTimestamp() (int64, error) {
	var ret int64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(commitTimestampBlobKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		ret = new(big.Int).SetBytes(val).Int64()
		return nil
	})
	return ret, err
}

func (b *BlobStoreBadger) SetCommitTimestamp(
	txn *badger.Txn,
	timestamp int64,
) error {
	tmpTimestamp := new(big.Int).SetInt64(timestamp)
	return txn.Set([]byte(commitTimestampBlobKey), tmpTimestamp.Bytes())
}
