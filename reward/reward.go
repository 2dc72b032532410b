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

// Package reward keeps the per-user reward ledger. Accruals are truncated to
// per-category daily caps and claims pay out pending entries in a single
// transfer.
package reward

import (
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/guild/chain"
)

// Reward types
const (
	TypeProposalCreation = "proposal_creation"
	TypeVote             = "vote"
	TypeComment          = "comment"
	TypeLike             = "like"
	TypeEngagement       = "engagement"
	TypeListing          = "listing"
	TypeReferral         = "referral"
	TypeBonus            = "bonus"
)

// CategoryEngagement is the shared cap category of the engagement types
const CategoryEngagement = "engagement"

var Types = []string{
	TypeProposalCreation,
	TypeVote,
	TypeComment,
	TypeLike,
	TypeEngagement,
	TypeListing,
	TypeReferral,
	TypeBonus,
}

var (
	ErrCapExceeded       = errors.New("daily reward cap reached")
	ErrNothingToClaim    = errors.New("no pending rewards to claim")
	ErrConcurrentUpdate  = errors.New("reward total changed concurrently")
	ErrInvalidRewardType = errors.New("invalid reward type")
	ErrInvalidAmount     = errors.New("reward amount must be positive")
	ErrInvalidUser       = errors.New("user id is required")
	ErrInvalidCaps       = errors.New("invalid reward caps")
	ErrTransferFailed    = chain.ErrTransferFailed
	ErrInvalidWallet     = chain.ErrInvalidWallet
)

// CategoryFor returns the cap category of a reward type
func CategoryFor(rewardType string) string {
	switch rewardType {
	case TypeComment, TypeLike, TypeEngagement:
		return CategoryEngagement
	default:
		return rewardType
	}
}

func ValidType(rewardType string) bool {
	return slices.Contains(Types, rewardType)
}

// Caps maps a cap category to its daily limit. Categories without an entry
// are uncapped
type Caps map[string]uint64

func DefaultCaps() Caps {
	return Caps{
		CategoryEngagement: 5,
		TypeListing:        10,
		TypeReferral:       5,
	}
}

// Validate rejects caps for unknown categories
func (c Caps) Validate() error {
	for category := range c {
		if !ValidType(category) || CategoryFor(category) != category {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidCaps, category)
		}
	}
	return nil
}
