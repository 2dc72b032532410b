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

// Package chain defines the boundary to the external token ledger: balance
// reads and transfer submission. Implementations are a JSON HTTP gateway
// client and a static in-memory ledger for development and tests.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const walletKeyLength = 32

var (
	ErrOracleUnavailable = errors.New("balance oracle unavailable")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrInvalidWallet     = errors.New("invalid wallet address")
)

// BalanceOracle reports token balances as of now
type BalanceOracle interface {
	BalanceOf(ctx context.Context, wallet string) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
}

// TransferRequest describes a single token transfer. Reference is unique per
// logical transfer and is passed to the gateway as an idempotency key
type TransferRequest struct {
	Reference string `json:"reference"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// Transferer submits token transfers and returns the transaction signature
type Transferer interface {
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)
}

// ValidateWallet checks that a wallet address is a base58 encoded 32-byte key
func ValidateWallet(wallet string) error {
	if wallet == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidWallet)
	}
	raw, err := base58.Decode(wallet)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}
	if len(raw) != walletKeyLength {
		return fmt.Errorf(
			"%w: decoded length %d, expected %d",
			ErrInvalidWallet,
			len(raw),
			walletKeyLength,
		)
	}
	return nil
}
