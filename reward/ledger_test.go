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

package reward_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/internal/test/testutil"
	"github.com/blinklabs-io/guild/reward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var wallet = testutil.Wallet(9)

type fixture struct {
	db     *database.Database
	chain  *chain.StaticChain
	clock  *testutil.Clock
	ledger *reward.Ledger
}

func setupTestLedger(t *testing.T, db *database.Database) *fixture {
	t.Helper()
	f := &fixture{
		db:    db,
		chain: chain.NewStaticChain(nil, 0),
		clock: testutil.NewClock(time.Date(2025, 4, 10, 23, 0, 0, 0, time.UTC)),
	}
	var err error
	f.ledger, err = reward.NewLedger(db, f.chain, reward.WithClock(f.clock.Now))
	require.NoError(t, err)
	return f
}

func (f *fixture) accrue(t *testing.T, user string, rewardType string, amount uint64) *reward.AccrueResult {
	t.Helper()
	result, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{
		UserID: user,
		Type:   rewardType,
		Amount: amount,
	})
	require.NoError(t, err)
	return result
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, reward.CategoryEngagement, reward.CategoryFor(reward.TypeComment))
	assert.Equal(t, reward.CategoryEngagement, reward.CategoryFor(reward.TypeLike))
	assert.Equal(t, reward.CategoryEngagement, reward.CategoryFor(reward.TypeEngagement))
	assert.Equal(t, reward.TypeListing, reward.CategoryFor(reward.TypeListing))
	assert.Equal(t, reward.TypeBonus, reward.CategoryFor(reward.TypeBonus))
}

func TestCapsValidate(t *testing.T) {
	assert.NoError(t, reward.DefaultCaps().Validate())
	assert.ErrorIs(t, reward.Caps{"like": 3}.Validate(), reward.ErrInvalidCaps)
	assert.ErrorIs(t, reward.Caps{"karma": 3}.Validate(), reward.ErrInvalidCaps)
}

func TestAccrueTruncatesToCap(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	first := f.accrue(t, "userA", reward.TypeListing, 8)
	assert.False(t, first.Truncated)
	assert.Equal(t, uint64(8), first.Granted)

	second := f.accrue(t, "userA", reward.TypeListing, 5)
	assert.True(t, second.Truncated)
	assert.Equal(t, uint64(2), second.Granted)
	assert.Equal(t, uint64(2), second.Entry.Amount)
	assert.Equal(t, uint64(5), second.Entry.RequestedAmount)

	_, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{
		UserID: "userA",
		Type:   reward.TypeListing,
		Amount: 1,
	})
	assert.ErrorIs(t, err, reward.ErrCapExceeded)

	sum, err := f.db.SumRewardEntries("userA", reward.TypeListing, "2025-04-10", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), sum)
	total, err := f.db.GetRewardDailyTotal("userA", reward.TypeListing, "2025-04-10", nil)
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, sum, total.Total)
}

func TestAccrueSharedEngagementCap(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	f.accrue(t, "userA", reward.TypeComment, 2)
	f.accrue(t, "userA", reward.TypeLike, 2)
	last := f.accrue(t, "userA", reward.TypeEngagement, 4)
	assert.Equal(t, uint64(1), last.Granted)
	_, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{
		UserID: "userA",
		Type:   reward.TypeLike,
		Amount: 1,
	})
	assert.ErrorIs(t, err, reward.ErrCapExceeded)

	// Other users and categories are unaffected
	f.accrue(t, "userB", reward.TypeLike, 5)
	f.accrue(t, "userA", reward.TypeReferral, 5)
}

func TestAccrueUncappedAndNewDay(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	bonus := f.accrue(t, "userA", reward.TypeBonus, 1_000_000)
	assert.False(t, bonus.Truncated)

	f.accrue(t, "userA", reward.TypeListing, 10)
	// Crossing midnight UTC opens a new day
	f.clock.Advance(2 * time.Hour)
	next := f.accrue(t, "userA", reward.TypeListing, 10)
	assert.Equal(t, uint64(10), next.Granted)
	assert.Equal(t, "2025-04-11", next.Entry.AccrualDay)

	// Backdated accruals count against their own day
	_, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{
		UserID:     "userA",
		Type:       reward.TypeListing,
		Amount:     1,
		OccurredAt: time.Date(2025, 4, 10, 5, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, reward.ErrCapExceeded)
}

func TestAccrueValidation(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	_, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{Type: reward.TypeVote, Amount: 1})
	assert.ErrorIs(t, err, reward.ErrInvalidUser)
	_, err = f.ledger.Accrue(t.Context(), reward.AccrueRequest{UserID: "u", Type: "karma", Amount: 1})
	assert.ErrorIs(t, err, reward.ErrInvalidRewardType)
	_, err = f.ledger.Accrue(t.Context(), reward.AccrueRequest{UserID: "u", Type: reward.TypeVote})
	assert.ErrorIs(t, err, reward.ErrInvalidAmount)
}

func TestConcurrentAccrueRespectsCap(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	const callers = 24
	var wg sync.WaitGroup
	var mu sync.Mutex
	var granted uint64
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			types := []string{reward.TypeComment, reward.TypeLike, reward.TypeEngagement}
			result, err := f.ledger.Accrue(t.Context(), reward.AccrueRequest{
				UserID: "userA",
				Type:   types[i%3],
				Amount: 1,
			})
			if err != nil {
				if !errors.Is(err, reward.ErrCapExceeded) &&
					!errors.Is(err, reward.ErrConcurrentUpdate) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			granted += result.Granted
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(5), granted)
	sum, err := f.db.SumRewardEntries("userA", reward.CategoryEngagement, "2025-04-10", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), sum)
}

func TestClaim(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabaseWithReceipts(t))
	f.accrue(t, "userA", reward.TypeVote, 3)
	f.accrue(t, "userA", reward.TypeListing, 4)
	f.accrue(t, "userB", reward.TypeVote, 9)

	claim, err := f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet})
	require.NoError(t, err)
	assert.Equal(t, models.RewardClaimStatusCompleted, claim.Status)
	assert.Equal(t, uint64(7), claim.Amount)
	assert.Equal(t, int64(2), claim.EntryCount)
	require.NotNil(t, claim.TransactionSignature)

	transfers := f.chain.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, uint64(7), transfers[0].Amount)
	assert.Equal(t, wallet, transfers[0].Recipient)

	balance, err := f.ledger.Balance(t.Context(), "userA")
	require.NoError(t, err)
	assert.Zero(t, balance.Pending)
	assert.Equal(t, uint64(7), balance.Claimed)
	assert.Equal(t, uint64(4), balance.ByType[reward.TypeListing].Claimed)

	stored, err := f.ledger.GetClaim(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RewardClaimStatusCompleted, stored.Status)
	receipt, err := f.db.GetReceipt(models.ReceiptKindRewardClaim, claim.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), receipt.Amount)

	_, err = f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet})
	assert.ErrorIs(t, err, reward.ErrNothingToClaim)

	other, err := f.ledger.Balance(t.Context(), "userB")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), other.Pending)
}

func TestClaimByType(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	f.accrue(t, "userA", reward.TypeVote, 3)
	f.accrue(t, "userA", reward.TypeReferral, 2)
	claim, err := f.ledger.Claim(t.Context(), reward.ClaimRequest{
		UserID: "userA",
		Wallet: wallet,
		Type:   reward.TypeReferral,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), claim.Amount)
	balance, err := f.ledger.Balance(t.Context(), "userA")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), balance.Pending)
	assert.Equal(t, uint64(2), balance.Claimed)
}

func TestClaimTransferFailureReleasesEntries(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	f.accrue(t, "userA", reward.TypeVote, 3)
	f.chain.SetTransferError(chain.ErrInjected)

	_, err := f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet})
	require.ErrorIs(t, err, reward.ErrTransferFailed)

	history, err := f.ledger.History(t.Context(), "userA", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.RewardStatusPending, history[0].Status)
	assert.Nil(t, history[0].ClaimID)

	f.chain.SetTransferError(nil)
	claim, err := f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), claim.Amount)
}

func TestClaimValidation(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	_, err := f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: "bogus"})
	assert.ErrorIs(t, err, reward.ErrInvalidWallet)
	_, err = f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet})
	assert.ErrorIs(t, err, reward.ErrNothingToClaim)
	_, err = f.ledger.Claim(t.Context(), reward.ClaimRequest{UserID: "userA", Wallet: wallet, Type: "karma"})
	assert.ErrorIs(t, err, reward.ErrInvalidRewardType)
}

func TestHistoryLimit(t *testing.T) {
	f := setupTestLedger(t, testutil.NewDatabase(t))
	for range 4 {
		f.accrue(t, "userA", reward.TypeVote, 1)
	}
	history, err := f.ledger.History(t.Context(), "userA", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
