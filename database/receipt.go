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

package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/guild/database/models"
	badger "github.com/dgraph-io/badger/v4"
)

const receiptBlobKeyPrefix = "receipt_"

var ErrReceiptNotFound = errors.New("receipt not found")

func receiptBlobKey(kind string, referenceID string) []byte {
	return []byte(fmt.Sprintf("%s%s_%s", receiptBlobKeyPrefix, kind, referenceID))
}

// SetReceipt stores a transfer receipt in the blob store. It is a no-op when
// blob storage is disabled
func (d *Database) SetReceipt(receipt *models.Receipt, txn *Txn) error {
	if d.blob == nil {
		return nil
	}
	if txn.Blob() == nil {
		return ErrNoStoreAvailable
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return txn.Blob().Set(receiptBlobKey(receipt.Kind, receipt.ReferenceID), data)
}

// GetReceipt returns a stored receipt or ErrReceiptNotFound
func (d *Database) GetReceipt(
	kind string,
	referenceID string,
	txn *Txn,
) (*models.Receipt, error) {
	if d.blob == nil {
		return nil, ErrReceiptNotFound
	}
	blobTxn := txn.Blob()
	if blobTxn == nil {
		blobTxn = d.blob.NewTransaction(false)
		defer blobTxn.Discard()
	}
	item, err := blobTxn.Get(receiptBlobKey(kind, referenceID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var receipt models.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}
