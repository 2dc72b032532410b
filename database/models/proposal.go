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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proposal types
const (
	ProposalTypeTreasury  = "treasury"
	ProposalTypeParameter = "parameter"
	ProposalTypeUpgrade   = "upgrade"
	ProposalTypeGrant     = "grant"
	ProposalTypeCommunity = "community"
)

// Proposal statuses
const (
	ProposalStatusDraft    = "draft"
	ProposalStatusActive   = "active"
	ProposalStatusApproved = "approved"
	ProposalStatusRejected = "rejected"
	ProposalStatusVetoed   = "vetoed"
	ProposalStatusExecuted = "executed"
)

// Proposal is a governance proposal and its lifecycle state. The tally
// counters and the snapshotted quorum/threshold percentages are enough to
// re-derive the close outcome. Revision is bumped by vetoes and grant slot
// claims so the two conflict on the proposal row.
type Proposal struct {
	ID                   uint            `json:"id" gorm:"primarykey"`
	Title                string          `json:"title" gorm:"size:255;not null"`
	Description          string          `json:"description" gorm:"type:text"`
	Type                 string          `json:"type" gorm:"column:proposal_type;size:16;index;not null"`
	ProposerWallet       string          `json:"proposerWallet" gorm:"size:64;index;not null"`
	Status               string          `json:"status" gorm:"size:16;index:idx_proposal_status_end,priority:1;not null"`
	ForVotes             uint64          `json:"forVotes" gorm:"not null;default:0"`
	AgainstVotes         uint64          `json:"againstVotes" gorm:"not null;default:0"`
	AbstainVotes         uint64          `json:"abstainVotes" gorm:"not null;default:0"`
	QuorumSnapshotSupply uint64          `json:"quorumSnapshotSupply" gorm:"not null;default:0"`
	QuorumPct            decimal.Decimal `json:"quorumPct" gorm:"type:numeric(9,4);not null"`
	ThresholdPct         decimal.Decimal `json:"thresholdPct" gorm:"type:numeric(9,4);not null"`
	Revision             uint64          `json:"revision" gorm:"not null;default:0"`
	// Grant/treasury payload
	RecipientWallet string `json:"recipientWallet" gorm:"size:64"`
	Amount          uint64 `json:"amount" gorm:"not null;default:0"`
	Purpose         string `json:"purpose" gorm:"type:text"`
	// Parameter payload (JSON encoded changes)
	ParameterChanges string `json:"parameterChanges" gorm:"type:text"`
	// Upgrade payload
	UpgradeVersion string     `json:"upgradeVersion" gorm:"size:64"`
	UpgradeNotes   string     `json:"upgradeNotes" gorm:"type:text"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"not null"`
	VotingEndAt    time.Time  `json:"votingEndAt" gorm:"index:idx_proposal_status_end,priority:2;not null"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	ExecutedAt     *time.Time `json:"executedAt,omitempty"`
	VetoedAt       *time.Time `json:"vetoedAt,omitempty"`
	VetoedBy       string     `json:"vetoedBy" gorm:"size:64"`
	VetoReason     string     `json:"vetoReason" gorm:"type:text"`
	Votes          []Vote     `json:"votes,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// HasGrantPayload reports whether executing the proposal requires a transfer
func (p *Proposal) HasGrantPayload() bool {
	switch p.Type {
	case ProposalTypeGrant, ProposalTypeTreasury:
		return p.RecipientWallet != "" && p.Amount > 0
	default:
		return false
	}
}

// TotalVotes returns the weight of all votes, abstain included
func (p *Proposal) TotalVotes() uint64 {
	return p.ForVotes + p.AgainstVotes + p.AbstainVotes
}

// ProposalFilter narrows proposal listings
type ProposalFilter struct {
	Status string
	Type   string
	Limit  int
	Offset int
}
