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
	"github.com/blinklabs-io/guild/database/models"
	"github.com/shopspring/decimal"
)

// Outcome reasons
const (
	ReasonNoSupply       = "no_supply"
	ReasonQuorumNotMet   = "quorum_not_met"
	ReasonNoDirection    = "no_directional_votes"
	ReasonThresholdMet   = "threshold_met"
	ReasonThresholdNoMet = "threshold_not_met"
)

// Counters are the stored inputs to an outcome
type Counters struct {
	QuorumPct    decimal.Decimal
	ThresholdPct decimal.Decimal
	For          uint64
	Against      uint64
	Abstain      uint64
	Supply       uint64
}

func CountersFromProposal(p *models.Proposal) Counters {
	return Counters{
		QuorumPct:    p.QuorumPct,
		ThresholdPct: p.ThresholdPct,
		For:          p.ForVotes,
		Against:      p.AgainstVotes,
		Abstain:      p.AbstainVotes,
		Supply:       p.QuorumSnapshotSupply,
	}
}

// Outcome is the result of tallying a proposal. Participation and
// ApprovalRatio are percentages for display only
type Outcome struct {
	Status        string          `json:"status"`
	Reason        string          `json:"reason"`
	Participation decimal.Decimal `json:"participation"`
	ApprovalRatio decimal.Decimal `json:"approvalRatio"`
	QuorumMet     bool            `json:"quorumMet"`
}

// ComputeOutcome decides a proposal from its counters alone. All comparisons
// are exact
func ComputeOutcome(c Counters) Outcome {
	ret := Outcome{Status: models.ProposalStatusRejected}
	if c.Supply == 0 {
		ret.Reason = ReasonNoSupply
		return ret
	}
	total := decimal.NewFromUint64(c.For).
		Add(decimal.NewFromUint64(c.Against)).
		Add(decimal.NewFromUint64(c.Abstain))
	supply := decimal.NewFromUint64(c.Supply)
	ret.Participation = total.Mul(hundredPct).DivRound(supply, 4)
	// total*100 < quorum*supply
	if total.Mul(hundredPct).LessThan(c.QuorumPct.Mul(supply)) {
		ret.Reason = ReasonQuorumNotMet
		return ret
	}
	ret.QuorumMet = true
	forVotes := decimal.NewFromUint64(c.For)
	directional := forVotes.Add(decimal.NewFromUint64(c.Against))
	if directional.IsZero() {
		ret.Reason = ReasonNoDirection
		return ret
	}
	ret.ApprovalRatio = forVotes.Mul(hundredPct).DivRound(directional, 4)
	if forVotes.Mul(hundredPct).GreaterThanOrEqual(c.ThresholdPct.Mul(directional)) {
		ret.Status = models.ProposalStatusApproved
		ret.Reason = ReasonThresholdMet
		return ret
	}
	ret.Reason = ReasonThresholdNoMet
	return ret
}
