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

// Grant statuses
const (
	GrantStatusPending   = "pending"
	GrantStatusCompleted = "completed"
	GrantStatusFailed    = "failed"
)

// Grant tracks the single transfer attempt slot for an approved
// grant/treasury proposal. ProposalID is the idempotency key.
type Grant struct {
	ID                   uint       `json:"id" gorm:"primarykey"`
	ProposalID           uint       `json:"proposalId" gorm:"uniqueIndex;not null"`
	Recipient            string     `json:"recipient" gorm:"size:64;not null"`
	Amount               uint64     `json:"amount" gorm:"not null"`
	Purpose              string     `json:"purpose" gorm:"type:text"`
	Status               string     `json:"status" gorm:"size:16;index;not null"`
	TransactionSignature *string    `json:"transactionSignature,omitempty" gorm:"size:128"`
	Attempts             uint       `json:"attempts" gorm:"not null"`
	LastError            string     `json:"lastError" gorm:"type:text"`
	ClaimedAt            time.Time  `json:"claimedAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// TableName returns the table name
func (Grant) TableName() string {
	return "grant_execution"
}
