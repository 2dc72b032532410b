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
	"errors"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/models"
)

var (
	ErrInsufficientStake = errors.New("insufficient stake to create proposal")
	ErrProposalNotActive = errors.New("proposal is not accepting votes")
	ErrDuplicateVote     = errors.New("wallet has already voted on this proposal")
	ErrZeroWeight        = errors.New("wallet has no voting weight")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid proposal state transition")
	ErrVotingStillOpen   = errors.New("voting window has not ended")
	ErrInvalidProposal   = errors.New("invalid proposal")
	ErrInvalidParams     = errors.New("invalid governance parameters")
	ErrInvalidChoice     = errors.New("invalid vote choice")
	ErrProposalNotFound  = models.ErrProposalNotFound
	ErrOracleUnavailable = chain.ErrOracleUnavailable
	ErrInvalidWallet     = chain.ErrInvalidWallet
	ErrConcurrentUpdate  = errors.New("proposal changed concurrently")
)
