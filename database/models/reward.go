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

import "time"

// Reward entry statuses
const (
	RewardStatusPending = "pending"
	RewardStatusClaimed = "claimed"
)

// Reward claim statuses
const (
	RewardClaimStatusPending   = "pending"
	RewardClaimStatusCompleted = "completed"
	RewardClaimStatusFailed    = "failed"
)

// RewardEntry is one accrued reward credit. Entries are only ever changed
// by the claim workflow.
type RewardEntry struct {
	ID              uint       `json:"id" gorm:"primarykey"`
	UserID          string     `json:"userId" gorm:"size:64;index:idx_reward_entry_user,priority:1;not null"`
	RewardType      string     `json:"rewardType" gorm:"size:32;index:idx_reward_entry_user,priority:2;not null"`
	Category        string     `json:"category" gorm:"size:32;not null"`
	Amount          uint64     `json:"amount" gorm:"not null"`
	RequestedAmount uint64     `json:"requestedAmount" gorm:"not null"`
	Status          string     `json:"status" gorm:"size:16;index:idx_reward_entry_user,priority:3;not null"`
	AccrualDay      string     `json:"accrualDay" gorm:"size:10;index;not null"`
	AccruedAt       time.Time  `json:"accruedAt" gorm:"not null"`
	ClaimID         *string    `json:"claimId,omitempty" gorm:"size:36;index"`
	ClaimedAt       *time.Time `json:"claimedAt,omitempty"`
}

// TableName returns the table name
func (RewardEntry) TableName() string {
	return "reward_entry"
}

// RewardDailyTotal is the capped running total of accrued rewards for a
// user, cap category and UTC day. It always equals the sum of the matching
// reward entries.
type RewardDailyTotal struct {
	ID       uint   `gorm:"primarykey"`
	UserID   string `gorm:"size:64;uniqueIndex:idx_reward_daily_unique,priority:1;not null"`
	Category string `gorm:"size:32;uniqueIndex:idx_reward_daily_unique,priority:2;not null"`
	Day      string `gorm:"size:10;uniqueIndex:idx_reward_daily_unique,priority:3;not null"`
	Total    uint64 `gorm:"not null"`
}

// TableName returns the table name
func (RewardDailyTotal) TableName() string {
	return "reward_daily_total"
}

// RewardClaim is a single payout instruction covering one or more entries
type RewardClaim struct {
	ID                   string     `json:"id" gorm:"primarykey;size:36"`
	UserID               string     `json:"userId" gorm:"size:64;index;not null"`
	WalletAddress        string     `json:"walletAddress" gorm:"size:64;not null"`
	RewardType           string     `json:"rewardType" gorm:"size:32"`
	Amount               uint64     `json:"amount" gorm:"not null"`
	EntryCount           int64      `json:"entryCount" gorm:"not null"`
	Status               string     `json:"status" gorm:"size:16;index;not null"`
	TransactionSignature *string    `json:"transactionSignature,omitempty" gorm:"size:128"`
	Error                string     `json:"error" gorm:"type:text"`
	CreatedAt            time.Time  `json:"createdAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// TableName returns the table name
func (RewardClaim) TableName() string {
	return "reward_claim"
}

// RewardTotal is an aggregate of entry amounts by type and status
type RewardTotal struct {
	RewardType string
	Status     string
	Amount     uint64
}
