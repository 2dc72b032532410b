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

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/blinklabs-io/guild"
	"github.com/blinklabs-io/guild/api"
	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/internal/test/testutil"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret")
	proposer   = testutil.Wallet(1)
	vetoer     = testutil.Wallet(2)
	grantee    = testutil.Wallet(3)
	voter      = testutil.Wallet(4)
	operator   = testutil.Wallet(9)
)

type apiFixture struct {
	handler http.Handler
	chain   *chain.StaticChain
	clock   *testutil.Clock
}

func setupTestServer(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		chain: chain.NewStaticChain(
			map[string]uint64{proposer: 5000, voter: 4000},
			10000,
		),
		clock: testutil.NewClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
	}
	params := governance.DefaultParams()
	params.VetoWallets = []string{vetoer}
	engine, err := guild.New(guild.NewConfig(
		guild.WithBalanceOracle(f.chain),
		guild.WithTransferer(f.chain),
		guild.WithGovernanceParams(params),
		guild.WithBlobPlugin("none"),
		guild.WithClock(f.clock.Now),
	))
	require.NoError(t, err)
	t.Cleanup(func() {
		engine.Stop() //nolint:errcheck
	})
	server, err := api.NewServer(engine, api.WithJWTSecret(testSecret))
	require.NoError(t, err)
	f.handler = server.Handler()
	return f
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	tok, err := api.IssueToken(testSecret, subject, roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(
	t *testing.T,
	method string,
	path string,
	tok string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, api.PathPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func requireCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	assert.Equal(t, code, body["code"])
}

func (f *apiFixture) createGrant(t *testing.T) models.Proposal {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/proposals", token(t, proposer), map[string]any{
		"title":           "Gallery lighting",
		"type":            models.ProposalTypeGrant,
		"recipientWallet": grantee,
		"amount":          600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Proposal](t, rec)
}

func TestNewServerRequiresSecret(t *testing.T) {
	_, err := api.NewServer(nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestAuthRequired(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodPost, "/proposals", "", map[string]any{"title": "x"})
	requireCode(t, rec, http.StatusUnauthorized, "unauthenticated")

	forged, err := api.IssueToken([]byte("other"), proposer, nil, time.Hour)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/proposals", forged, map[string]any{"title": "x"})
	requireCode(t, rec, http.StatusUnauthorized, "unauthenticated")

	expired, err := api.IssueToken(testSecret, proposer, nil, -time.Minute)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/proposals", expired, map[string]any{"title": "x"})
	requireCode(t, rec, http.StatusUnauthorized, "unauthenticated")
}

func TestProposalFlow(t *testing.T) {
	f := setupTestServer(t)
	p := f.createGrant(t)
	assert.Equal(t, models.ProposalStatusActive, p.Status)
	path := "/proposals/" + strconv.FormatUint(uint64(p.ID), 10)

	rec := f.do(t, http.MethodPost, path+"/votes", token(t, voter), map[string]string{"choice": "for"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, path+"/votes", token(t, voter), map[string]string{"choice": "for"})
	requireCode(t, rec, http.StatusConflict, "duplicate_vote")

	rec = f.do(t, http.MethodPost, path+"/close", "", nil)
	requireCode(t, rec, http.StatusConflict, "voting_still_open")

	f.clock.Advance(8 * 24 * time.Hour)
	rec = f.do(t, http.MethodPost, path+"/close", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[guild.CloseResult](t, rec)
	assert.True(t, result.Transitioned)
	require.NotNil(t, result.Grant)
	assert.Equal(t, models.GrantStatusCompleted, result.Grant.Status)

	rec = f.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ProposalStatusExecuted, decode[models.Proposal](t, rec).Status)

	rec = f.do(t, http.MethodGet, path+"/votes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Vote](t, rec), 1)

	rec = f.do(t, http.MethodGet, path+"/log", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.GovernanceLog](t, rec))

	rec = f.do(t, http.MethodGet, "/proposals?status=executed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Proposal](t, rec), 1)
}

func TestProposalErrors(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodGet, "/proposals/42", "", nil)
	requireCode(t, rec, http.StatusNotFound, "not_found")

	rec = f.do(t, http.MethodGet, "/proposals/abc", "", nil)
	requireCode(t, rec, http.StatusBadRequest, "bad_request")

	rec = f.do(t, http.MethodPost, "/proposals", token(t, grantee), map[string]any{
		"title": "Too poor",
		"type":  models.ProposalTypeCommunity,
	})
	requireCode(t, rec, http.StatusForbidden, "insufficient_stake")

	rec = f.do(t, http.MethodPost, "/proposals", token(t, proposer), map[string]any{
		"title": "Unknown",
		"type":  "lottery",
	})
	requireCode(t, rec, http.StatusBadRequest, "invalid_proposal")
}

func TestVetoRequiresHolder(t *testing.T) {
	f := setupTestServer(t)
	p := f.createGrant(t)
	path := "/proposals/" + strconv.FormatUint(uint64(p.ID), 10) + "/veto"

	rec := f.do(t, http.MethodPost, path, token(t, voter), map[string]string{"reason": "no"})
	requireCode(t, rec, http.StatusForbidden, "unauthorized")

	rec = f.do(t, http.MethodPost, path, token(t, vetoer), map[string]string{"reason": "duplicate grant"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	vetoed := decode[models.Proposal](t, rec)
	assert.Equal(t, models.ProposalStatusVetoed, vetoed.Status)
}

func TestOperatorRoutes(t *testing.T) {
	f := setupTestServer(t)
	accrue := reward.AccrueRequest{UserID: voter, Type: reward.TypeListing, Amount: 4}

	rec := f.do(t, http.MethodPost, "/rewards", token(t, voter), accrue)
	requireCode(t, rec, http.StatusForbidden, "forbidden")

	rec = f.do(t, http.MethodPost, "/rewards", token(t, operator, api.RoleOperator), accrue)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/proposals/1/grant", token(t, operator, api.RoleOperator), nil)
	requireCode(t, rec, http.StatusNotFound, "not_found")

	rec = f.do(t, http.MethodPost, "/proposals/1/grant/release", token(t, voter), nil)
	requireCode(t, rec, http.StatusForbidden, "forbidden")
	rec = f.do(t, http.MethodPost, "/proposals/1/grant/release", token(t, operator, api.RoleOperator), nil)
	requireCode(t, rec, http.StatusNotFound, "not_found")
}

func TestRewardClaim(t *testing.T) {
	f := setupTestServer(t)
	op := token(t, operator, api.RoleOperator)
	for _, amount := range []uint64{8, 5} {
		rec := f.do(t, http.MethodPost, "/rewards", op, reward.AccrueRequest{
			UserID: voter,
			Type:   reward.TypeListing,
			Amount: amount,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := f.do(t, http.MethodPost, "/rewards", op, reward.AccrueRequest{
		UserID: voter,
		Type:   reward.TypeListing,
		Amount: 1,
	})
	requireCode(t, rec, http.StatusUnprocessableEntity, "cap_exceeded")

	rec = f.do(t, http.MethodGet, "/rewards/"+voter, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(10), decode[reward.Balance](t, rec).Pending)

	rec = f.do(t, http.MethodPost, "/rewards/claim", token(t, voter), map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	claim := decode[models.RewardClaim](t, rec)
	assert.Equal(t, uint64(10), claim.Amount)
	assert.Equal(t, voter, claim.WalletAddress)

	rec = f.do(t, http.MethodGet, "/claims/"+claim.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/rewards/claim", token(t, voter), map[string]string{})
	requireCode(t, rec, http.StatusUnprocessableEntity, "nothing_to_claim")

	f.chain.SetTransferError(chain.ErrInjected)
	rec = f.do(t, http.MethodPost, "/rewards", op, reward.AccrueRequest{
		UserID: voter,
		Type:   reward.TypeBonus,
		Amount: 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/rewards/claim", token(t, voter), map[string]string{})
	requireCode(t, rec, http.StatusBadGateway, "transfer_failed")
}

func TestRoyaltySplit(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(t, http.MethodPost, "/royalty/split", "", map[string]any{
		"price":            1000,
		"artistRoyaltyPct": "10",
		"resale":           false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payout := decode[royalty.Payout](t, rec)
	assert.Equal(t, uint64(0), payout.ArtistRoyalty)
	assert.Equal(t, uint64(1000), payout.Total())

	rec = f.do(t, http.MethodPost, "/royalty/split", "", map[string]any{
		"price":            1000,
		"artistRoyaltyPct": "30",
		"resale":           true,
	})
	requireCode(t, rec, http.StatusBadRequest, "invalid_royalty")
}
