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

package chain_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/guild/chain"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWallet(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

func TestValidateWallet(t *testing.T) {
	require.NoError(t, chain.ValidateWallet(testWallet(7)))
	for _, wallet := range []string{
		"",
		"not-base58-0OIl",
		base58.Encode([]byte("short")),
	} {
		assert.ErrorIs(t, chain.ValidateWallet(wallet), chain.ErrInvalidWallet, wallet)
	}
}

func TestStaticChain(t *testing.T) {
	ctx := t.Context()
	s := chain.NewStaticChain(map[string]uint64{"a": 10}, 1000)
	balance, err := s.BalanceOf(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balance)
	balance, err = s.BalanceOf(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, balance)
	supply, err := s.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), supply)

	sig, err := s.SubmitTransfer(ctx, chain.TransferRequest{Recipient: "a", Amount: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
	require.Len(t, s.Transfers(), 1)

	s.SetTransferError(chain.ErrInjected)
	_, err = s.SubmitTransfer(ctx, chain.TransferRequest{Recipient: "a", Amount: 5})
	assert.ErrorIs(t, err, chain.ErrTransferFailed)
	assert.Len(t, s.Transfers(), 1)

	s.SetOracleError(chain.ErrInjected)
	_, err = s.BalanceOf(ctx, "a")
	assert.ErrorIs(t, err, chain.ErrOracleUnavailable)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s.SetOracleError(nil)
	_, err = s.TotalSupply(cancelled)
	assert.ErrorIs(t, err, chain.ErrOracleUnavailable)
}

func TestGatewayReads(t *testing.T) {
	var supplyCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/balances/wallet1":
			_ = json.NewEncoder(w).Encode(map[string]any{"balance": 1234})
		case "/supply":
			// Fail once to exercise the retry path
			if supplyCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"supply": 99999})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "no such wallet"})
		}
	}))
	defer srv.Close()

	g, err := chain.NewGateway(
		srv.URL+"/",
		chain.WithGatewayAPIKey("key"),
		chain.WithGatewayPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	balance, err := g.BalanceOf(t.Context(), "wallet1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), balance)

	supply, err := g.TotalSupply(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(99999), supply)
	assert.Equal(t, int32(2), supplyCalls.Load())

	_, err = g.BalanceOf(t.Context(), "missing")
	require.ErrorIs(t, err, chain.ErrOracleUnavailable)
	assert.Contains(t, err.Error(), "no such wallet")
}

func TestGatewayTransfer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transfers", r.URL.Path)
		assert.Equal(t, "ref-1", r.Header.Get("Idempotency-Key"))
		var req chain.TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Amount > 100 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"signature": "sig-" + req.Recipient})
	}))
	defer srv.Close()

	g, err := chain.NewGateway(srv.URL)
	require.NoError(t, err)
	sig, err := g.SubmitTransfer(t.Context(), chain.TransferRequest{
		Reference: "ref-1",
		Recipient: "bob",
		Amount:    50,
	})
	require.NoError(t, err)
	assert.Equal(t, "sig-bob", sig)

	// Transfers are never retried
	_, err = g.SubmitTransfer(t.Context(), chain.TransferRequest{
		Reference: "ref-1",
		Recipient: "bob",
		Amount:    500,
	})
	require.ErrorIs(t, err, chain.ErrTransferFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewGatewayRejectsBadURL(t *testing.T) {
	_, err := chain.NewGateway("ftp://example.com")
	assert.Error(t, err)
	_, err = chain.NewGateway("://bad")
	assert.Error(t, err)
}
