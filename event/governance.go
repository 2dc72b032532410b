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

package event

const (
	ProposalCreatedEventType  = EventType("governance.proposal_created")
	VoteCastEventType         = EventType("governance.vote_cast")
	ProposalClosedEventType   = EventType("governance.proposal_closed")
	ProposalVetoedEventType   = EventType("governance.proposal_vetoed")
	ProposalExecutedEventType = EventType("governance.proposal_executed")
	GrantExecutedEventType    = EventType("grant.executed")
	GrantFailedEventType      = EventType("grant.failed")
	RewardAccruedEventType    = EventType("reward.accrued")
	RewardClaimedEventType    = EventType("reward.claimed")
)

// ProposalEvent is emitted on every proposal lifecycle transition
type ProposalEvent struct {
	ProposalID uint
	Type       string
	Status     string
	Actor      string
}

type VoteCastEvent struct {
	ProposalID uint
	Wallet     string
	Choice     string
	Weight     uint64
}

type GrantEvent struct {
	ProposalID           uint
	Recipient            string
	Amount               uint64
	TransactionSignature string
	Error                string
}

type RewardAccruedEvent struct {
	UserID     string
	RewardType string
	Requested  uint64
	Amount     uint64
}

type RewardClaimedEvent struct {
	ClaimID              string
	UserID               string
	Amount               uint64
	TransactionSignature string
}
