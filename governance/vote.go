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
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
)

// CastVote records a token-weighted vote. The weight is the wallet balance
// at the time of the vote, capped at the configured maximum
func (s *Service) CastVote(
	ctx context.Context,
	proposalID uint,
	wallet string,
	choice string,
) (*models.Vote, error) {
	if _, ok := models.VoteCounterColumn(choice); !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
	if err := chain.ValidateWallet(wallet); err != nil {
		return nil, err
	}
	proposal, err := s.db.GetProposal(proposalID, nil)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusActive ||
		s.Now().After(proposal.VotingEndAt) {
		return nil, fmt.Errorf("%w: proposal %d", ErrProposalNotActive, proposalID)
	}
	// Skip the oracle call for the common duplicate case. The insert below
	// is still the authority
	existing, err := s.db.GetVote(proposalID, wallet, nil)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateVote
	}
	params, err := s.EffectiveParams()
	if err != nil {
		return nil, err
	}
	weight, err := s.balanceOf(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if params.MaxVoteWeight > 0 && weight > params.MaxVoteWeight {
		weight = params.MaxVoteWeight
	}
	if weight == 0 {
		return nil, ErrZeroWeight
	}
	now := s.Now()
	vote := &models.Vote{
		ProposalID: proposalID,
		Wallet:     wallet,
		Choice:     choice,
		Weight:     weight,
		CastAt:     now,
	}
	err = s.db.Transaction(true).Do(func(txn *database.Txn) error {
		ok, err := s.db.InsertVote(vote, txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDuplicateVote
		}
		ok, err = s.db.AddProposalVotes(proposalID, choice, weight, now, txn)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrProposalNotActive, proposalID)
		}
		return s.writeLog(
			txn,
			proposalID,
			wallet,
			models.GovernanceActionVote,
			map[string]any{"choice": choice, "weight": weight},
		)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateVote) && !errors.Is(err, ErrProposalNotActive) {
			s.logger.Error(
				"failed to record vote",
				"component", "governance",
				"proposal_id", proposalID,
				"error", err,
			)
		}
		return nil, err
	}
	s.metrics.votesCast.WithLabelValues(choice).Inc()
	s.metrics.voteWeight.WithLabelValues(choice).Add(float64(weight))
	s.logger.Debug(
		"vote cast",
		"component", "governance",
		"proposal_id", proposalID,
		"wallet", wallet,
		"choice", choice,
		"weight", weight,
	)
	s.publish(event.VoteCastEventType, event.VoteCastEvent{
		ProposalID: proposalID,
		Wallet:     wallet,
		Choice:     choice,
		Weight:     weight,
	})
	return vote, nil
}
