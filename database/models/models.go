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

import "errors"

// MigrateModels contains a list of model objects that should have DB migrations applied
var MigrateModels = []any{
	&Proposal{},
	&Vote{},
	&Grant{},
	&RewardEntry{},
	&RewardDailyTotal{},
	&RewardClaim{},
	&GovernanceLog{},
	&GovernanceParamOverride{},
	&PendingUpgrade{},
}

var (
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrGrantNotFound       = errors.New("grant not found")
	ErrRewardClaimNotFound = errors.New("reward claim not found")
)
