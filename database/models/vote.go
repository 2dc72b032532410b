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

// Vote choices
const (
	VoteFor     = "for"
	VoteAgainst = "against"
	VoteAbstain = "abstain"
)

// Vote is a token-weighted vote cast by a wallet on a proposal. A wallet
// may vote at most once per proposal, which the unique index enforces.
type Vote struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	ProposalID uint      `json:"proposalId" gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_unique,priority:1;not null"`
	Wallet     string    `json:"wallet" gorm:"size:64;uniqueIndex:idx_vote_unique,priority:2;not null"`
	Choice     string    `json:"choice" gorm:"size:8;not null"`
	Weight     uint64    `json:"weight" gorm:"not null"`
	CastAt     time.Time `json:"castAt" gorm:"not null"`
}

// TableName returns the table name
func (Vote) TableName() string {
	return "vote"
}

// VoteCounterColumn returns the proposal tally column for a vote choice
func VoteCounterColumn(choice string) (string, bool) {
	switch choice {
	case VoteFor:
		return "for_votes", true
	case VoteAgainst:
		return "against_votes", true
	case VoteAbstain:
		return "abstain_votes", true
	default:
		return "", false
	}
}
