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

// Governance log action types
const (
	GovernanceActionCreate       = "create_proposal"
	GovernanceActionVote         = "cast_vote"
	GovernanceActionClose        = "close_proposal"
	GovernanceActionVeto         = "veto_proposal"
	GovernanceActionExecute      = "execute_proposal"
	GovernanceActionGrantFailed  = "grant_failed"
	GovernanceActionGrantRetry   = "grant_retry"
	GovernanceActionParamsUpdate = "update_parameters"
)

// GovernanceLog is an append-only audit record of governance actions
type GovernanceLog struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	ProposalID *uint     `json:"proposalId,omitempty" gorm:"index"`
	Actor      string    `json:"actor" gorm:"size:64;index"`
	ActionType string    `json:"actionType" gorm:"size:32;not null"`
	ActionData string    `json:"actionData" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`
}

// TableName returns the table name
func (GovernanceLog) TableName() string {
	return "governance_log"
}

// GovernanceParamOverrideID is the primary key of the singleton override row
const GovernanceParamOverrideID = 1

// GovernanceParamOverride holds governance parameters changed by executed
// parameter proposals. Nil fields fall back to the configured values.
type GovernanceParamOverride struct {
	ID               uint                `gorm:"primarykey"`
	MinProposalStake *uint64
	QuorumPct        decimal.NullDecimal `gorm:"type:numeric(9,4)"`
	ThresholdPct     decimal.NullDecimal `gorm:"type:numeric(9,4)"`
	VotingPeriodDays *uint
	VetoEnabled      *bool
	MaxVoteWeight    *uint64
	ProposalID       uint `gorm:"not null"`
	UpdatedAt        time.Time
}

// TableName returns the table name
func (GovernanceParamOverride) TableName() string {
	return "governance_param_override"
}

// PendingUpgrade records an approved upgrade awaiting rollout
type PendingUpgrade struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	ProposalID uint      `json:"proposalId" gorm:"uniqueIndex;not null"`
	Version    string    `json:"version" gorm:"size:64;not null"`
	Notes      string    `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`
}

// TableName returns the table name
func (PendingUpgrade) TableName() string {
	return "pending_upgrade"
}
