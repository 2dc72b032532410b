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

package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrInjected is a convenience error for SetTransferError and SetOracleError
var ErrInjected = errors.New("injected failure")

// StaticChain is an in-memory ledger. Transfers never move balances; they are
// only recorded
type StaticChain struct {
	balances    map[string]uint64
	transfers   []TransferRequest
	transferErr error
	oracleErr   error
	supply      uint64
	mu          sync.Mutex
}

func NewStaticChain(balances map[string]uint64, supply uint64) *StaticChain {
	s := &StaticChain{
		balances: make(map[string]uint64, len(balances)),
		supply:   supply,
	}
	for wallet, balance := range balances {
		s.balances[wallet] = balance
	}
	return s
}

func (s *StaticChain) BalanceOf(ctx context.Context, wallet string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oracleErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, s.oracleErr)
	}
	return s.balances[wallet], nil
}

func (s *StaticChain) TotalSupply(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oracleErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, s.oracleErr)
	}
	return s.supply, nil
}

func (s *StaticChain) SubmitTransfer(
	ctx context.Context,
	req TransferRequest,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if req.Amount == 0 {
		return "", fmt.Errorf("%w: zero amount", ErrTransferFailed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transferErr != nil {
		return "", fmt.Errorf("%w: %w", ErrTransferFailed, s.transferErr)
	}
	s.transfers = append(s.transfers, req)
	return "static-" + uuid.NewString(), nil
}

// SetBalance sets the balance reported for a wallet
func (s *StaticChain) SetBalance(wallet string, balance uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[wallet] = balance
}

// SetSupply sets the reported total supply
func (s *StaticChain) SetSupply(supply uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply = supply
}

// SetTransferError makes subsequent transfers fail with err until cleared
// with nil
func (s *StaticChain) SetTransferError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferErr = err
}

// SetOracleError makes subsequent balance reads fail with err until cleared
// with nil
func (s *StaticChain) SetOracleError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracleErr = err
}

// Transfers returns a copy of all recorded transfers
func (s *StaticChain) Transfers() []TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]TransferRequest, len(s.transfers))
	copy(ret, s.transfers)
	return ret
}
