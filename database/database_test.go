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

package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func newProposal() *models.Proposal {
	now := time.Now().UTC()
	return &models.Proposal{
		Title:          "Community garden",
		Type:           models.ProposalTypeCommunity,
		ProposerWallet: "proposer",
		Status:         models.ProposalStatusActive,
		QuorumPct:      decimal.NewFromInt(15),
		ThresholdPct:   decimal.NewFromInt(51),
		CreatedAt:      now,
		VotingEndAt:    now.Add(time.Hour),
	}
}

func TestTxnDoCommits(t *testing.T) {
	db := newTestDB(t)
	p := newProposal()
	receipt := &models.Receipt{
		Kind:                 models.ReceiptKindGrant,
		ReferenceID:          "1",
		Recipient:            "recipient",
		Amount:               42,
		TransactionSignature: "sig",
		CreatedAt:            time.Now().UTC(),
	}
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.CreateProposal(p, txn); err != nil {
			return err
		}
		return db.SetReceipt(receipt, txn)
	})
	require.NoError(t, err)

	got, err := db.GetProposal(p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Community garden", got.Title)

	stored, err := db.GetReceipt(models.ReceiptKindGrant, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), stored.Amount)
	assert.Equal(t, "sig", stored.TransactionSignature)

	// Both stores carry the same commit timestamp
	metaTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Positive(t, metaTs)
	assert.Equal(t, metaTs, blobTs)
}

func TestTxnDoRollsBack(t *testing.T) {
	db := newTestDB(t)
	p := newProposal()
	errBoom := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.CreateProposal(p, txn); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	_, err = db.GetProposal(p.ID, nil)
	assert.ErrorIs(t, err, models.ErrProposalNotFound)
}

func TestTxnReleaseAfterCommit(t *testing.T) {
	db := newTestDB(t)
	txn := db.Transaction(true)
	require.NoError(t, db.CreateProposal(newProposal(), txn))
	require.NoError(t, txn.Commit())
	// Release on a finished transaction is a no-op
	txn.Release()
	require.NoError(t, txn.Rollback())
}

func TestNotFoundErrors(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetGrant(99, nil)
	assert.ErrorIs(t, err, models.ErrGrantNotFound)
	_, err = db.GetRewardClaim("missing", nil)
	assert.ErrorIs(t, err, models.ErrRewardClaimNotFound)
	_, err = db.GetReceipt(models.ReceiptKindRewardClaim, "missing", nil)
	assert.ErrorIs(t, err, database.ErrReceiptNotFound)
}

func TestWithoutBlobStore(t *testing.T) {
	db, err := database.New(&database.Config{BlobPlugin: "none"})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	assert.Nil(t, db.Blob())
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetReceipt(&models.Receipt{Kind: "grant", ReferenceID: "1"}, txn)
	})
	require.NoError(t, err)
	_, err = db.GetReceipt("grant", "1", nil)
	assert.ErrorIs(t, err, database.ErrReceiptNotFound)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.CreateProposal(newProposal(), txn)
	}))
	// Advance the metadata timestamp behind the blob store's back
	require.NoError(t, db.Metadata().SetCommitTimestamp(nil, 1))
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.MetadataTimestamp)
}

func TestUnknownPlugins(t *testing.T) {
	_, err := database.New(&database.Config{MetadataPlugin: "oracle"})
	assert.Error(t, err)
	_, err = database.New(&database.Config{BlobPlugin: "s3"})
	assert.Error(t, err)
}

func TestBlobTuning(t *testing.T) {
	db, err := database.New(&database.Config{
		DataDir:            t.TempDir(),
		BlobBlockCacheSize: 8 << 20,
		BlobIndexCacheSize: 4 << 20,
		BlobDisableGc:      true,
	})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	require.NotNil(t, db.Blob())
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetReceipt(&models.Receipt{
			Kind:        models.ReceiptKindRewardClaim,
			ReferenceID: "claim-1",
			Amount:      7,
		}, txn)
	}))
	stored, err := db.GetReceipt(models.ReceiptKindRewardClaim, "claim-1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), stored.Amount)
}
