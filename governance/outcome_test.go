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

package governance_test

import (
	"math/rand/v2"
	"testing"

	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/governance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func counters(forVotes, against, abstain, supply uint64) governance.Counters {
	return governance.Counters{
		QuorumPct:    decimal.NewFromInt(15),
		ThresholdPct: decimal.NewFromInt(51),
		For:          forVotes,
		Against:      against,
		Abstain:      abstain,
		Supply:       supply,
	}
}

func TestComputeOutcome(t *testing.T) {
	testDefs := []struct {
		name          string
		counters      governance.Counters
		status        string
		reason        string
		participation string
		approval      string
	}{
		{
			name:          "quorum not met even when unanimous",
			counters:      counters(1400, 0, 0, 10000),
			status:        models.ProposalStatusRejected,
			reason:        governance.ReasonQuorumNotMet,
			participation: "14",
			approval:      "0",
		},
		{
			name:          "approved",
			counters:      counters(2000, 500, 100, 10000),
			status:        models.ProposalStatusApproved,
			reason:        governance.ReasonThresholdMet,
			participation: "26",
			approval:      "80",
		},
		{
			name:     "no supply",
			counters: counters(10, 0, 0, 0),
			status:   models.ProposalStatusRejected,
			reason:   governance.ReasonNoSupply,
		},
		{
			name:          "abstain only",
			counters:      counters(0, 0, 2000, 10000),
			status:        models.ProposalStatusRejected,
			reason:        governance.ReasonNoDirection,
			participation: "20",
			approval:      "0",
		},
		{
			name:          "quorum exactly met",
			counters:      counters(1500, 0, 0, 10000),
			status:        models.ProposalStatusApproved,
			reason:        governance.ReasonThresholdMet,
			participation: "15",
			approval:      "100",
		},
		{
			name:          "threshold exactly met",
			counters:      counters(51, 49, 1400, 10000),
			status:        models.ProposalStatusApproved,
			reason:        governance.ReasonThresholdMet,
			participation: "15",
			approval:      "51",
		},
		{
			name:          "threshold just missed",
			counters:      counters(50, 50, 1400, 10000),
			status:        models.ProposalStatusRejected,
			reason:        governance.ReasonThresholdNoMet,
			participation: "15",
			approval:      "50",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			outcome := governance.ComputeOutcome(testDef.counters)
			assert.Equal(t, testDef.status, outcome.Status)
			assert.Equal(t, testDef.reason, outcome.Reason)
			if testDef.participation != "" {
				assert.True(
					t,
					outcome.Participation.Equal(decimal.RequireFromString(testDef.participation)),
					"participation %s", outcome.Participation,
				)
			}
			if testDef.approval != "" {
				assert.True(
					t,
					outcome.ApprovalRatio.Equal(decimal.RequireFromString(testDef.approval)),
					"approval %s", outcome.ApprovalRatio,
				)
			}
		})
	}
}

func TestComputeOutcomeLargeCounters(t *testing.T) {
	// Products overflow uint64 but must still compare exactly
	limit := ^uint64(0)
	outcome := governance.ComputeOutcome(counters(limit, 0, 0, limit))
	assert.Equal(t, models.ProposalStatusApproved, outcome.Status)
}

func TestComputeOutcomeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 1000 {
		supply := rng.Uint64N(1_000_000) + 1
		c := counters(
			rng.Uint64N(supply/2+1),
			rng.Uint64N(supply/4+1),
			rng.Uint64N(supply/4+1),
			supply,
		)
		c.QuorumPct = decimal.NewFromInt(int64(rng.IntN(100) + 1))
		c.ThresholdPct = decimal.NewFromInt(int64(rng.IntN(100) + 1))
		first := governance.ComputeOutcome(c)
		second := governance.ComputeOutcome(c)
		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.Reason, second.Reason)
		assert.True(t, first.Participation.Equal(second.Participation))
		assert.True(t, first.ApprovalRatio.Equal(second.ApprovalRatio))
	}
}
