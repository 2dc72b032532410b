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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
)

const (
	maxTitleLength    = 255
	maxCloseAttempts  = 3
	maxUpgradeVersion = 64
)

// CreateProposalRequest describes a new proposal. Only the payload fields
// matching Type are used
type CreateProposalRequest struct {
	ProposerWallet   string            `json:"proposerWallet"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Type             string            `json:"type"`
	RecipientWallet  string            `json:"recipientWallet,omitempty"`
	Purpose          string            `json:"purpose,omitempty"`
	ParameterChanges *ParameterChanges `json:"parameterChanges,omitempty"`
	UpgradeVersion   string            `json:"upgradeVersion,omitempty"`
	UpgradeNotes     string            `json:"upgradeNotes,omitempty"`
	Amount           uint64            `json:"amount,omitempty"`
}

// CloseResult is returned by CloseProposal. Transitioned is false when the
// proposal had already left the active state
type CloseResult struct {
	Proposal     *models.Proposal `json:"proposal"`
	Outcome      Outcome          `json:"outcome"`
	Transitioned bool             `json:"transitioned"`
}

// CreateProposal validates the request, checks the proposer stake and
// activates the proposal with a snapshot of the total supply
func (s *Service) CreateProposal(
	ctx context.Context,
	req CreateProposalRequest,
) (*models.Proposal, error) {
	if err := chain.ValidateWallet(req.ProposerWallet); err != nil {
		return nil, err
	}
	params, err := s.EffectiveParams()
	if err != nil {
		return nil, err
	}
	proposal, err := s.buildProposal(req, params)
	if err != nil {
		return nil, err
	}
	balance, err := s.balanceOf(ctx, req.ProposerWallet)
	if err != nil {
		return nil, err
	}
	if balance < params.MinProposalStake {
		return nil, fmt.Errorf(
			"%w: balance %d, required %d",
			ErrInsufficientStake,
			balance,
			params.MinProposalStake,
		)
	}
	supply, err := s.totalSupply(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	proposal.Status = models.ProposalStatusDraft
	proposal.CreatedAt = now
	proposal.VotingEndAt = now
	err = s.db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := s.db.CreateProposal(proposal, txn); err != nil {
			return err
		}
		votingEndAt := now.Add(
			time.Duration(params.VotingPeriodDays) * 24 * time.Hour,
		)
		ok, err := s.db.UpdateProposal(
			proposal.ID,
			map[string]any{"status": models.ProposalStatusDraft},
			map[string]any{
				"status":                 models.ProposalStatusActive,
				"quorum_snapshot_supply": supply,
				"quorum_pct":             params.QuorumPct,
				"threshold_pct":          params.ThresholdPct,
				"voting_end_at":          votingEndAt,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: activate proposal %d", ErrConcurrentUpdate, proposal.ID)
		}
		proposal.Status = models.ProposalStatusActive
		proposal.QuorumSnapshotSupply = supply
		proposal.QuorumPct = params.QuorumPct
		proposal.ThresholdPct = params.ThresholdPct
		proposal.VotingEndAt = votingEndAt
		return s.writeLog(
			txn,
			proposal.ID,
			proposal.ProposerWallet,
			models.GovernanceActionCreate,
			map[string]any{
				"type":        proposal.Type,
				"stake":       balance,
				"supply":      supply,
				"votingEndAt": votingEndAt,
			},
		)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.proposalsCreated.WithLabelValues(proposal.Type).Inc()
	s.logger.Info(
		"proposal created",
		"component", "governance",
		"proposal_id", proposal.ID,
		"type", proposal.Type,
		"proposer", proposal.ProposerWallet,
	)
	s.publish(event.ProposalCreatedEventType, event.ProposalEvent{
		ProposalID: proposal.ID,
		Type:       proposal.Type,
		Status:     proposal.Status,
		Actor:      proposal.ProposerWallet,
	})
	return proposal, nil
}

func (s *Service) buildProposal(
	req CreateProposalRequest,
	params Params,
) (*models.Proposal, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProposal)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, fmt.Errorf(
			"%w: title longer than %d characters",
			ErrInvalidProposal,
			maxTitleLength,
		)
	}
	proposal := &models.Proposal{
		Title:          title,
		Description:    strings.TrimSpace(s.sanitizer.Sanitize(req.Description)),
		Type:           req.Type,
		ProposerWallet: req.ProposerWallet,
	}
	switch req.Type {
	case models.ProposalTypeGrant, models.ProposalTypeTreasury:
		if err := chain.ValidateWallet(req.RecipientWallet); err != nil {
			return nil, fmt.Errorf("%w: recipient: %w", ErrInvalidProposal, err)
		}
		if req.Amount == 0 {
			return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidProposal)
		}
		proposal.RecipientWallet = req.RecipientWallet
		proposal.Amount = req.Amount
		proposal.Purpose = strings.TrimSpace(s.sanitizer.Sanitize(req.Purpose))
	case models.ProposalTypeParameter:
		if req.ParameterChanges == nil || req.ParameterChanges.IsEmpty() {
			return nil, fmt.Errorf("%w: no parameter changes", ErrInvalidProposal)
		}
		if err := req.ParameterChanges.Apply(params).Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProposal, err)
		}
		raw, err := json.Marshal(req.ParameterChanges)
		if err != nil {
			return nil, err
		}
		proposal.ParameterChanges = string(raw)
	case models.ProposalTypeUpgrade:
		version := strings.TrimSpace(req.UpgradeVersion)
		if version == "" || len(version) > maxUpgradeVersion {
			return nil, fmt.Errorf("%w: upgrade version is required", ErrInvalidProposal)
		}
		proposal.UpgradeVersion = version
		proposal.UpgradeNotes = strings.TrimSpace(s.sanitizer.Sanitize(req.UpgradeNotes))
	case models.ProposalTypeCommunity:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidProposal, req.Type)
	}
	return proposal, nil
}

// CloseProposal tallies an active proposal once its voting window has
// passed. Closing an already closed proposal returns its current state
func (s *Service) CloseProposal(ctx context.Context, id uint) (*CloseResult, error) {
	for range maxCloseAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proposal, err := s.db.GetProposal(id, nil)
		if err != nil {
			return nil, err
		}
		outcome := ComputeOutcome(CountersFromProposal(proposal))
		if proposal.Status != models.ProposalStatusActive {
			return &CloseResult{Proposal: proposal, Outcome: outcome}, nil
		}
		now := s.Now()
		if !now.After(proposal.VotingEndAt) {
			return nil, fmt.Errorf(
				"%w: voting ends at %s",
				ErrVotingStillOpen,
				proposal.VotingEndAt.Format(time.RFC3339),
			)
		}
		err = s.db.Transaction(true).Do(func(txn *database.Txn) error {
			// Guarding on the counters read keeps a late vote from
			// landing between the tally and the transition
			ok, err := s.db.UpdateProposal(
				id,
				map[string]any{
					"status":        models.ProposalStatusActive,
					"for_votes":     proposal.ForVotes,
					"against_votes": proposal.AgainstVotes,
					"abstain_votes": proposal.AbstainVotes,
				},
				map[string]any{
					"status":    outcome.Status,
					"closed_at": now,
				},
				txn,
			)
			if err != nil {
				return err
			}
			if !ok {
				return ErrConcurrentUpdate
			}
			return s.writeLog(
				txn,
				id,
				"",
				models.GovernanceActionClose,
				map[string]any{
					"status":        outcome.Status,
					"reason":        outcome.Reason,
					"for":           proposal.ForVotes,
					"against":       proposal.AgainstVotes,
					"abstain":       proposal.AbstainVotes,
					"supply":        proposal.QuorumSnapshotSupply,
					"participation": outcome.Participation.String(),
				},
			)
		})
		if errors.Is(err, ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		proposal.Status = outcome.Status
		proposal.ClosedAt = &now
		s.metrics.proposalsClosed.WithLabelValues(outcome.Status).Inc()
		s.logger.Info(
			"proposal closed",
			"component", "governance",
			"proposal_id", id,
			"status", outcome.Status,
			"reason", outcome.Reason,
		)
		s.publish(event.ProposalClosedEventType, event.ProposalEvent{
			ProposalID: id,
			Type:       proposal.Type,
			Status:     proposal.Status,
		})
		return &CloseResult{
			Proposal:     proposal,
			Outcome:      outcome,
			Transitioned: true,
		}, nil
	}
	return nil, fmt.Errorf("%w: close proposal %d", ErrConcurrentUpdate, id)
}

// CloseExpired closes every active proposal whose voting window has passed.
// Failures are logged and do not stop the sweep
func (s *Service) CloseExpired(ctx context.Context) ([]*CloseResult, error) {
	expired, err := s.db.GetExpiredProposals(s.Now(), nil)
	if err != nil {
		return nil, err
	}
	var errs []error
	ret := make([]*CloseResult, 0, len(expired))
	for _, proposal := range expired {
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		result, err := s.CloseProposal(ctx, proposal.ID)
		if err != nil {
			s.logger.Error(
				"failed to close expired proposal",
				"component", "governance",
				"proposal_id", proposal.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("proposal %d: %w", proposal.ID, err))
			continue
		}
		if result.Transitioned {
			ret = append(ret, result)
		}
	}
	return ret, errors.Join(errs...)
}

// VetoProposal cancels an active or approved proposal. Only configured veto
// holders may veto, and not once a grant transfer has been attempted
func (s *Service) VetoProposal(
	ctx context.Context,
	id uint,
	actor string,
	reason string,
) (*models.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := s.EffectiveParams()
	if err != nil {
		return nil, err
	}
	if !params.IsVetoHolder(actor) {
		return nil, fmt.Errorf("%w: %s is not a veto holder", ErrUnauthorized, actor)
	}
	reason = strings.TrimSpace(s.sanitizer.Sanitize(reason))
	now := s.Now()
	var proposal *models.Proposal
	err = s.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		proposal, err = s.db.GetProposal(id, txn)
		if err != nil {
			return err
		}
		switch proposal.Status {
		case models.ProposalStatusActive, models.ProposalStatusApproved:
		default:
			return fmt.Errorf(
				"%w: cannot veto %s proposal",
				ErrInvalidTransition,
				proposal.Status,
			)
		}
		grant, err := s.db.GetGrant(id, txn)
		if err != nil && !errors.Is(err, models.ErrGrantNotFound) {
			return err
		}
		if grant != nil && grant.Status != models.GrantStatusFailed {
			return fmt.Errorf(
				"%w: grant is %s",
				ErrInvalidTransition,
				grant.Status,
			)
		}
		// The revision guard fails if a grant slot was claimed after the
		// grant read above
		ok, err := s.db.UpdateProposal(
			id,
			map[string]any{
				"status":   proposal.Status,
				"revision": proposal.Revision,
			},
			map[string]any{
				"status":      models.ProposalStatusVetoed,
				"vetoed_at":   now,
				"vetoed_by":   actor,
				"veto_reason": reason,
				"revision":    proposal.Revision + 1,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrConcurrentUpdate, id)
		}
		return s.writeLog(
			txn,
			id,
			actor,
			models.GovernanceActionVeto,
			map[string]any{
				"previousStatus": proposal.Status,
				"reason":         reason,
			},
		)
	})
	if err != nil {
		return nil, err
	}
	proposal.Status = models.ProposalStatusVetoed
	proposal.Revision++
	proposal.VetoedAt = &now
	proposal.VetoedBy = actor
	proposal.VetoReason = reason
	s.metrics.proposalsVetoed.Inc()
	s.logger.Warn(
		"proposal vetoed",
		"component", "governance",
		"proposal_id", id,
		"actor", actor,
	)
	s.publish(event.ProposalVetoedEventType, event.ProposalEvent{
		ProposalID: id,
		Type:       proposal.Type,
		Status:     proposal.Status,
		Actor:      actor,
	})
	return proposal, nil
}

// MarkExecuted records the execution of an approved proposal that does not
// move tokens. Parameter changes take effect and upgrades are queued
func (s *Service) MarkExecuted(
	ctx context.Context,
	id uint,
	actor string,
) (*models.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.Now()
	var proposal *models.Proposal
	err := s.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		proposal, err = s.db.GetProposal(id, txn)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusApproved {
			return fmt.Errorf(
				"%w: cannot execute %s proposal",
				ErrInvalidTransition,
				proposal.Status,
			)
		}
		switch proposal.Type {
		case models.ProposalTypeGrant, models.ProposalTypeTreasury:
			return fmt.Errorf(
				"%w: %s proposals are executed by the grant executor",
				ErrInvalidTransition,
				proposal.Type,
			)
		case models.ProposalTypeParameter:
			if err := s.applyParameterChanges(txn, proposal, now); err != nil {
				return err
			}
		case models.ProposalTypeUpgrade:
			err := s.db.AddPendingUpgrade(
				&models.PendingUpgrade{
					ProposalID: proposal.ID,
					Version:    proposal.UpgradeVersion,
					Notes:      proposal.UpgradeNotes,
					CreatedAt:  now,
				},
				txn,
			)
			if err != nil {
				return err
			}
		}
		ok, err := s.db.UpdateProposal(
			id,
			map[string]any{"status": models.ProposalStatusApproved},
			map[string]any{
				"status":      models.ProposalStatusExecuted,
				"executed_at": now,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrInvalidTransition, id)
		}
		return s.writeLog(txn, id, actor, models.GovernanceActionExecute, nil)
	})
	if err != nil {
		return nil, err
	}
	proposal.Status = models.ProposalStatusExecuted
	proposal.ExecutedAt = &now
	s.metrics.proposalsExec.WithLabelValues(proposal.Type).Inc()
	s.logger.Info(
		"proposal executed",
		"component", "governance",
		"proposal_id", id,
		"type", proposal.Type,
	)
	s.publish(event.ProposalExecutedEventType, event.ProposalEvent{
		ProposalID: id,
		Type:       proposal.Type,
		Status:     proposal.Status,
		Actor:      actor,
	})
	return proposal, nil
}

func (s *Service) applyParameterChanges(
	txn *database.Txn,
	proposal *models.Proposal,
	now time.Time,
) error {
	var changes ParameterChanges
	if err := json.Unmarshal([]byte(proposal.ParameterChanges), &changes); err != nil {
		return fmt.Errorf("%w: parameter changes: %w", ErrInvalidProposal, err)
	}
	current, err := s.db.GetGovernanceParamOverride(txn)
	if err != nil {
		return err
	}
	// Re-validate against the params in effect now, which may have changed
	// since the proposal was created
	if err := changes.Apply(applyOverride(s.params, current)).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProposal, err)
	}
	override := mergeOverride(current, changes)
	override.ProposalID = proposal.ID
	override.UpdatedAt = now
	if err := s.db.SetGovernanceParamOverride(override, txn); err != nil {
		return err
	}
	return s.writeLog(
		txn,
		proposal.ID,
		"",
		models.GovernanceActionParamsUpdate,
		map[string]any{"changes": changes},
	)
}
