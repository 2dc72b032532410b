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

package guild_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/guild"
	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/internal/test/testutil"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	proposer = testutil.Wallet(1)
	grantee  = testutil.Wallet(3)
	voter    = testutil.Wallet(4)
)

type engineFixture struct {
	engine *guild.Engine
	chain  *chain.StaticChain
	clock  *testutil.Clock
}

func newTestEngine(t *testing.T, opts ...guild.ConfigOptionFunc) *engineFixture {
	t.Helper()
	f := &engineFixture{
		chain: chain.NewStaticChain(
			map[string]uint64{proposer: 5000, voter: 4000},
			10000,
		),
		clock: testutil.NewClock(time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)),
	}
	opts = append(
		[]guild.ConfigOptionFunc{
			guild.WithBalanceOracle(f.chain),
			guild.WithTransferer(f.chain),
			guild.WithClock(f.clock.Now),
		},
		opts...,
	)
	e, err := guild.New(guild.NewConfig(opts...))
	require.NoError(t, err)
	t.Cleanup(func() {
		e.Stop() //nolint:errcheck
	})
	f.engine = e
	return f
}

func (f *engineFixture) grantProposal(t *testing.T, choice string) *models.Proposal {
	t.Helper()
	p, err := f.engine.CreateProposal(t.Context(), governance.CreateProposalRequest{
		ProposerWallet:  proposer,
		Title:           "Studio equipment",
		Type:            models.ProposalTypeGrant,
		RecipientWallet: grantee,
		Amount:          900,
	})
	require.NoError(t, err)
	_, err = f.engine.CastVote(t.Context(), p.ID, voter, choice)
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)
	return p
}

func TestNewRequiresChain(t *testing.T) {
	_, err := guild.New(guild.NewConfig())
	require.Error(t, err)

	params := governance.DefaultParams()
	params.QuorumPct = decimal.Zero
	_, err = guild.New(guild.NewConfig(
		guild.WithBalanceOracle(chain.NewStaticChain(nil, 1)),
		guild.WithTransferer(chain.NewStaticChain(nil, 1)),
		guild.WithGovernanceParams(params),
	))
	require.ErrorIs(t, err, governance.ErrInvalidParams)
}

func TestCloseApprovedExecutesGrant(t *testing.T) {
	f := newTestEngine(t)
	p := f.grantProposal(t, models.VoteFor)

	result, err := f.engine.CloseProposal(t.Context(), p.ID)
	require.NoError(t, err)
	assert.True(t, result.Transitioned)
	assert.Empty(t, result.GrantError)
	require.NotNil(t, result.Grant)
	assert.Equal(t, models.GrantStatusCompleted, result.Grant.Status)
	assert.Equal(t, models.ProposalStatusExecuted, result.Proposal.Status)

	transfers := f.chain.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, grantee, transfers[0].Recipient)
	assert.Equal(t, uint64(900), transfers[0].Amount)

	stored, err := f.engine.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusExecuted, stored.Status)

	// A second close does not pay again
	again, err := f.engine.CloseProposal(t.Context(), p.ID)
	require.NoError(t, err)
	assert.False(t, again.Transitioned)
	assert.Nil(t, again.Grant)
	assert.Len(t, f.chain.Transfers(), 1)
}

func TestCloseRejectedSkipsGrant(t *testing.T) {
	f := newTestEngine(t)
	p := f.grantProposal(t, models.VoteAgainst)
	result, err := f.engine.CloseProposal(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusRejected, result.Proposal.Status)
	assert.Nil(t, result.Grant)
	assert.Empty(t, f.chain.Transfers())
	_, err = f.engine.GetGrant(p.ID)
	assert.ErrorIs(t, err, models.ErrGrantNotFound)
}

func TestCloseGrantFailureThenRetry(t *testing.T) {
	f := newTestEngine(t)
	p := f.grantProposal(t, models.VoteFor)
	f.chain.SetTransferError(chain.ErrInjected)

	result, err := f.engine.CloseProposal(t.Context(), p.ID)
	require.NoError(t, err)
	assert.True(t, result.Transitioned)
	assert.NotEmpty(t, result.GrantError)
	assert.Equal(t, models.ProposalStatusApproved, result.Proposal.Status)

	g, err := f.engine.GetGrant(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusFailed, g.Status)

	f.chain.SetTransferError(nil)
	g, err = f.engine.RetryGrant(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCompleted, g.Status)
	assert.Equal(t, uint(2), g.Attempts)

	stored, err := f.engine.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusExecuted, stored.Status)
}

func TestCloseExpiredExecutesGrants(t *testing.T) {
	f := newTestEngine(t)
	approved := f.grantProposal(t, models.VoteFor)
	results, err := f.engine.CloseExpired(t.Context())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, approved.ID, results[0].Proposal.ID)
	require.NotNil(t, results[0].Grant)

	results, err = f.engine.CloseExpired(t.Context())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParticipationRewards(t *testing.T) {
	f := newTestEngine(t, guild.WithParticipationRewards(10, 1))
	f.grantProposal(t, models.VoteFor)

	testutil.WaitForCondition(t, func() bool {
		b, err := f.engine.RewardBalance(t.Context(), proposer)
		return err == nil && b.Pending == 10
	}, 2*time.Second, "proposal reward not credited")
	testutil.WaitForCondition(t, func() bool {
		b, err := f.engine.RewardBalance(t.Context(), voter)
		return err == nil && b.Pending == 1
	}, 2*time.Second, "vote reward not credited")
}

func TestSplitSalePayout(t *testing.T) {
	f := newTestEngine(t)
	payout, err := f.engine.SplitSalePayout(royalty.Sale{
		Price:            10000,
		ArtistRoyaltyPct: decimal.NewFromInt(10),
		Resale:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), payout.Total())
	assert.Equal(t, uint64(500), payout.CreatorRoyalty)
	assert.Equal(t, uint64(1000), payout.ArtistRoyalty)
	assert.Equal(t, uint64(1500), payout.Commission.Total)
}

func TestStopIsIdempotent(t *testing.T) {
	f := newTestEngine(t)
	require.NoError(t, f.engine.Stop())
	require.NoError(t, f.engine.Stop())
}
