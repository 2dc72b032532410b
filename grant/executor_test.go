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

package grant_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/grant"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	proposer  = testutil.Wallet(1)
	recipient = testutil.Wallet(3)
	voter     = testutil.Wallet(4)
)

type fixture struct {
	db       *database.Database
	chain    *chain.StaticChain
	clock    *testutil.Clock
	gov      *governance.Service
	executor *grant.Executor
}

func setupTestExecutor(t *testing.T, db *database.Database) *fixture {
	t.Helper()
	f := &fixture{
		db: db,
		chain: chain.NewStaticChain(
			map[string]uint64{proposer: 5000, voter: 4000},
			10000,
		),
		clock: testutil.NewClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	var err error
	f.gov, err = governance.NewService(
		db,
		f.chain,
		governance.DefaultParams(),
		governance.WithClock(f.clock.Now),
	)
	require.NoError(t, err)
	f.executor, err = grant.NewExecutor(db, f.chain, grant.WithClock(f.clock.Now))
	require.NoError(t, err)
	return f
}

// closedProposal creates a grant proposal, votes on it and closes it
func (f *fixture) closedProposal(t *testing.T, choice string) *models.Proposal {
	t.Helper()
	p, err := f.gov.CreateProposal(t.Context(), governance.CreateProposalRequest{
		ProposerWallet:  proposer,
		Title:           "Studio equipment",
		Type:            models.ProposalTypeGrant,
		RecipientWallet: recipient,
		Amount:          750,
		Purpose:         "cameras",
	})
	require.NoError(t, err)
	_, err = f.gov.CastVote(t.Context(), p.ID, voter, choice)
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)
	result, err := f.gov.CloseProposal(t.Context(), p.ID)
	require.NoError(t, err)
	return result.Proposal
}

func TestExecuteGrant(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabaseWithReceipts(t))
	p := f.closedProposal(t, models.VoteFor)
	require.Equal(t, models.ProposalStatusApproved, p.Status)

	g, err := f.executor.Execute(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCompleted, g.Status)
	require.NotNil(t, g.TransactionSignature)

	transfers := f.chain.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, recipient, transfers[0].Recipient)
	assert.Equal(t, uint64(750), transfers[0].Amount)
	assert.Equal(t, "grant-"+strconv.FormatUint(uint64(p.ID), 10), transfers[0].Reference)

	stored, err := f.gov.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusExecuted, stored.Status)
	require.NotNil(t, stored.ExecutedAt)

	receipt, err := f.db.GetReceipt(
		models.ReceiptKindGrant,
		strconv.FormatUint(uint64(p.ID), 10),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, *g.TransactionSignature, receipt.TransactionSignature)
	assert.Equal(t, uint64(750), receipt.Amount)

	_, err = f.executor.Execute(t.Context(), p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantExists)
}

func TestExecuteRequiresApproval(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteAgainst)
	require.Equal(t, models.ProposalStatusRejected, p.Status)
	_, err := f.executor.Execute(t.Context(), p.ID)
	assert.ErrorIs(t, err, governance.ErrInvalidTransition)
	_, err = f.executor.GetGrant(p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantNotFound)

	_, err = f.executor.Execute(t.Context(), 4242)
	assert.ErrorIs(t, err, governance.ErrProposalNotFound)
}

func TestExecuteFailureThenRetry(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)

	f.chain.SetTransferError(errors.New("gateway down"))
	_, err := f.executor.Execute(t.Context(), p.ID)
	require.ErrorIs(t, err, grant.ErrTransferFailed)

	g, err := f.executor.GetGrant(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusFailed, g.Status)
	assert.Equal(t, uint(1), g.Attempts)
	assert.Contains(t, g.LastError, "gateway down")
	stored, err := f.gov.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusApproved, stored.Status)

	// A failed grant still occupies the slot
	_, err = f.executor.Execute(t.Context(), p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantExists)

	f.chain.SetTransferError(nil)
	g, err = f.executor.Retry(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCompleted, g.Status)
	assert.Equal(t, uint(2), g.Attempts)

	g, err = f.executor.GetGrant(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), g.Attempts)
	assert.Empty(t, g.LastError)

	_, err = f.executor.Retry(t.Context(), p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantNotRetryable)

	grants, err := f.executor.ListGrants("")
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	logs, err := f.gov.GovernanceLogs(p.ID)
	require.NoError(t, err)
	var actions []string
	for _, l := range logs {
		actions = append(actions, l.ActionType)
	}
	assert.Contains(t, actions, models.GovernanceActionGrantFailed)
	assert.Contains(t, actions, models.GovernanceActionGrantRetry)
	assert.Contains(t, actions, models.GovernanceActionExecute)
}

func TestRetryMissingGrant(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)
	_, err := f.executor.Retry(t.Context(), p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantNotFound)
}

func TestConcurrentExecuteSingleTransfer(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)

	const callers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	var completed, exists int
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.executor.Execute(t.Context(), p.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				completed++
			case errors.Is(err, grant.ErrGrantExists):
				exists++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, completed)
	assert.Equal(t, callers-1, exists)
	assert.Len(t, f.chain.Transfers(), 1)

	grants, err := f.executor.ListGrants(models.GrantStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestVetoAfterFailedGrant(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)
	f.chain.SetTransferError(errors.New("nope"))
	_, err := f.executor.Execute(t.Context(), p.ID)
	require.ErrorIs(t, err, grant.ErrTransferFailed)

	vetoGov, err := governance.NewService(
		f.db,
		f.chain,
		governance.Params{
			QuorumPct:        governance.DefaultParams().QuorumPct,
			ThresholdPct:     governance.DefaultParams().ThresholdPct,
			VotingPeriodDays: 7,
			VetoEnabled:      true,
			VetoWallets:      []string{proposer},
		},
	)
	require.NoError(t, err)
	_, err = vetoGov.VetoProposal(t.Context(), p.ID, proposer, "recipient compromised")
	require.NoError(t, err)

	f.chain.SetTransferError(nil)
	_, err = f.executor.Retry(t.Context(), p.ID)
	assert.ErrorIs(t, err, governance.ErrInvalidTransition)
	assert.Empty(t, f.chain.Transfers())
}

func TestGrantClaimInvalidatesStaleVeto(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)
	// A veto that read the proposal before the grant slot was claimed
	staleRevision := p.Revision

	f.chain.SetTransferError(errors.New("gateway down"))
	_, err := f.executor.Execute(t.Context(), p.ID)
	require.ErrorIs(t, err, grant.ErrTransferFailed)

	stored, err := f.gov.GetProposal(p.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStatusApproved, stored.Status)
	assert.Equal(t, staleRevision+1, stored.Revision)

	ok, err := f.db.UpdateProposal(
		p.ID,
		map[string]any{
			"status":   models.ProposalStatusApproved,
			"revision": staleRevision,
		},
		map[string]any{"status": models.ProposalStatusVetoed},
		nil,
	)
	require.NoError(t, err)
	assert.False(t, ok)

	// The retry claim advances the revision again
	f.chain.SetTransferError(nil)
	_, err = f.executor.Retry(t.Context(), p.ID)
	require.NoError(t, err)
	stored, err = f.gov.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusExecuted, stored.Status)
	assert.Equal(t, staleRevision+2, stored.Revision)
}

func TestVetoInvalidatesGrantClaim(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)
	params := governance.DefaultParams()
	params.VetoWallets = []string{proposer}
	vetoGov, err := governance.NewService(f.db, f.chain, params)
	require.NoError(t, err)

	vetoed, err := vetoGov.VetoProposal(t.Context(), p.ID, proposer, "recipient compromised")
	require.NoError(t, err)
	assert.Equal(t, p.Revision+1, vetoed.Revision)

	// A claim guarded on the pre-veto revision misses
	ok, err := f.db.UpdateProposal(
		p.ID,
		map[string]any{"revision": p.Revision},
		map[string]any{"revision": p.Revision + 1},
		nil,
	)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.executor.Execute(t.Context(), p.ID)
	assert.ErrorIs(t, err, governance.ErrInvalidTransition)
	assert.Empty(t, f.chain.Transfers())
}

func TestReleaseStalePendingGrant(t *testing.T) {
	f := setupTestExecutor(t, testutil.NewDatabase(t))
	p := f.closedProposal(t, models.VoteFor)
	// Slot claimed by a process that stopped before recording the transfer
	ok, err := f.db.InsertGrant(&models.Grant{
		ProposalID: p.ID,
		Recipient:  recipient,
		Amount:     750,
		Status:     models.GrantStatusPending,
		Attempts:   1,
		ClaimedAt:  f.clock.Now(),
	}, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.executor.Retry(t.Context(), p.ID)
	require.ErrorIs(t, err, grant.ErrGrantNotRetryable)
	_, err = f.executor.ReleaseStale(p.ID)
	require.ErrorIs(t, err, grant.ErrGrantNotStale)

	// Twice the default transfer timeout is not yet stale
	f.clock.Advance(time.Minute)
	_, err = f.executor.ReleaseStale(p.ID)
	require.ErrorIs(t, err, grant.ErrGrantNotStale)

	f.clock.Advance(time.Second)
	g, err := f.executor.ReleaseStale(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusFailed, g.Status)
	assert.Contains(t, g.LastError, "abandoned")

	_, err = f.executor.ReleaseStale(p.ID)
	require.ErrorIs(t, err, grant.ErrGrantNotStale)

	g, err = f.executor.Retry(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCompleted, g.Status)
	assert.Equal(t, uint(2), g.Attempts)
	assert.True(t, f.clock.Now().Equal(g.ClaimedAt))
	assert.Len(t, f.chain.Transfers(), 1)

	_, err = f.executor.ReleaseStale(p.ID)
	assert.ErrorIs(t, err, grant.ErrGrantNotStale)
	_, err = f.executor.ReleaseStale(4242)
	assert.ErrorIs(t, err, grant.ErrGrantNotFound)
}
