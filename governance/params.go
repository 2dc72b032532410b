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

package governance

import (
	"fmt"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/shopspring/decimal"
)

var hundredPct = decimal.NewFromInt(100)

// Params are the governance settings in effect. Executed parameter proposals
// override the configured values
type Params struct {
	QuorumPct        decimal.Decimal `json:"quorumPercentage"`
	ThresholdPct     decimal.Decimal `json:"thresholdPercentage"`
	VetoWallets      []string        `json:"vetoWallets"`
	MinProposalStake uint64          `json:"minProposalStake"`
	MaxVoteWeight    uint64          `json:"maxVoteWeight"`
	VotingPeriodDays uint            `json:"votingPeriodDays"`
	VetoEnabled      bool            `json:"vetoEnabled"`
}

func DefaultParams() Params {
	return Params{
		QuorumPct:        decimal.NewFromInt(15),
		ThresholdPct:     decimal.NewFromInt(51),
		VotingPeriodDays: 7,
		MinProposalStake: 1000,
		VetoEnabled:      true,
	}
}

func (p Params) Validate() error {
	if !p.QuorumPct.IsPositive() || p.QuorumPct.GreaterThan(hundredPct) {
		return fmt.Errorf("%w: quorum percentage %s outside (0, 100]", ErrInvalidParams, p.QuorumPct)
	}
	if !p.ThresholdPct.IsPositive() || p.ThresholdPct.GreaterThan(hundredPct) {
		return fmt.Errorf("%w: threshold percentage %s outside (0, 100]", ErrInvalidParams, p.ThresholdPct)
	}
	if p.VotingPeriodDays == 0 {
		return fmt.Errorf("%w: voting period must be at least one day", ErrInvalidParams)
	}
	for _, wallet := range p.VetoWallets {
		if err := chain.ValidateWallet(wallet); err != nil {
			return fmt.Errorf("%w: veto wallet %q: %w", ErrInvalidParams, wallet, err)
		}
	}
	return nil
}

// IsVetoHolder reports whether wallet may veto proposals
func (p Params) IsVetoHolder(wallet string) bool {
	if !p.VetoEnabled {
		return false
	}
	for _, w := range p.VetoWallets {
		if w == wallet {
			return true
		}
	}
	return false
}

// ParameterChanges is the payload of a parameter proposal. Nil fields are
// left unchanged
type ParameterChanges struct {
	MinProposalStake *uint64          `json:"minProposalStake,omitempty"`
	QuorumPct        *decimal.Decimal `json:"quorumPercentage,omitempty"`
	ThresholdPct     *decimal.Decimal `json:"thresholdPercentage,omitempty"`
	VotingPeriodDays *uint            `json:"votingPeriodDays,omitempty"`
	VetoEnabled      *bool            `json:"vetoEnabled,omitempty"`
	MaxVoteWeight    *uint64          `json:"maxVoteWeight,omitempty"`
}

func (c ParameterChanges) IsEmpty() bool {
	return c.MinProposalStake == nil &&
		c.QuorumPct == nil &&
		c.ThresholdPct == nil &&
		c.VotingPeriodDays == nil &&
		c.VetoEnabled == nil &&
		c.MaxVoteWeight == nil
}

// Apply returns p with the changes applied
func (c ParameterChanges) Apply(p Params) Params {
	if c.MinProposalStake != nil {
		p.MinProposalStake = *c.MinProposalStake
	}
	if c.QuorumPct != nil {
		p.QuorumPct = *c.QuorumPct
	}
	if c.ThresholdPct != nil {
		p.ThresholdPct = *c.ThresholdPct
	}
	if c.VotingPeriodDays != nil {
		p.VotingPeriodDays = *c.VotingPeriodDays
	}
	if c.VetoEnabled != nil {
		p.VetoEnabled = *c.VetoEnabled
	}
	if c.MaxVoteWeight != nil {
		p.MaxVoteWeight = *c.MaxVoteWeight
	}
	return p
}

// applyOverride layers persisted overrides on top of the configured params
func applyOverride(p Params, o *models.GovernanceParamOverride) Params {
	if o == nil {
		return p
	}
	changes := ParameterChanges{
		MinProposalStake: o.MinProposalStake,
		VotingPeriodDays: o.VotingPeriodDays,
		VetoEnabled:      o.VetoEnabled,
		MaxVoteWeight:    o.MaxVoteWeight,
	}
	if o.QuorumPct.Valid {
		changes.QuorumPct = &o.QuorumPct.Decimal
	}
	if o.ThresholdPct.Valid {
		changes.ThresholdPct = &o.ThresholdPct.Decimal
	}
	return changes.Apply(p)
}

// mergeOverride folds changes into an existing override row
func mergeOverride(
	o *models.GovernanceParamOverride,
	c ParameterChanges,
) *models.GovernanceParamOverride {
	ret := &models.GovernanceParamOverride{}
	if o != nil {
		*ret = *o
	}
	if c.MinProposalStake != nil {
		ret.MinProposalStake = c.MinProposalStake
	}
	if c.QuorumPct != nil {
		ret.QuorumPct = decimal.NewNullDecimal(*c.QuorumPct)
	}
	if c.ThresholdPct != nil {
		ret.ThresholdPct = decimal.NewNullDecimal(*c.ThresholdPct)
	}
	if c.VotingPeriodDays != nil {
		ret.VotingPeriodDays = c.VotingPeriodDays
	}
	if c.VetoEnabled != nil {
		ret.VetoEnabled = c.VetoEnabled
	}
	if c.MaxVoteWeight != nil {
		ret.MaxVoteWeight = c.MaxVoteWeight
	}
	return ret
}
