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

// Package grant executes the token transfer of approved grant and treasury
// proposals. Each proposal gets a single grant record which doubles as the
// idempotency key for the transfer.
package grant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
	"github.com/blinklabs-io/guild/governance"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const defaultTransferTimeout = 30 * time.Second

var (
	ErrGrantExists       = errors.New("grant already executed for proposal")
	ErrGrantNotRetryable = errors.New("grant is not in a retryable state")
	ErrGrantNotStale     = errors.New("grant is not a stale pending grant")
	ErrGrantNotFound     = models.ErrGrantNotFound
	ErrTransferFailed    = chain.ErrTransferFailed
)

type Executor struct {
	db              *database.Database
	transferer      chain.Transferer
	eventBus        *event.EventBus
	logger          *slog.Logger
	promRegistry    prometheus.Registerer
	metrics         *executorMetrics
	now             func() time.Time
	transferTimeout time.Duration
}

type ExecutorOptionFunc func(*Executor)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ExecutorOptionFunc {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) ExecutorOptionFunc {
	return func(e *Executor) {
		e.promRegistry = registry
	}
}

// WithEventBus specifies the event bus that grant results are published to
func WithEventBus(bus *event.EventBus) ExecutorOptionFunc {
	return func(e *Executor) {
		e.eventBus = bus
	}
}

// WithTransferTimeout bounds each transfer submission
func WithTransferTimeout(timeout time.Duration) ExecutorOptionFunc {
	return func(e *Executor) {
		e.transferTimeout = timeout
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ExecutorOptionFunc {
	return func(e *Executor) {
		e.now = now
	}
}

func NewExecutor(
	db *database.Database,
	transferer chain.Transferer,
	opts ...ExecutorOptionFunc,
) (*Executor, error) {
	if db == nil {
		return nil, errors.New("grant executor: no database")
	}
	if transferer == nil {
		return nil, errors.New("grant executor: no transferer")
	}
	e := &Executor{
		db:              db,
		transferer:      transferer,
		now:             time.Now,
		transferTimeout: defaultTransferTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.metrics = newExecutorMetrics(e.promRegistry)
	return e, nil
}

func (e *Executor) nowUTC() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// GetGrant returns the grant for a proposal
func (e *Executor) GetGrant(proposalID uint) (*models.Grant, error) {
	return e.db.GetGrant(proposalID, nil)
}

// ListGrants returns grants, optionally filtered by status
func (e *Executor) ListGrants(status string) ([]models.Grant, error) {
	return e.db.ListGrants(status, nil)
}

// Execute claims the grant slot of an approved proposal and submits its
// transfer. A second call for the same proposal fails with ErrGrantExists
func (e *Executor) Execute(ctx context.Context, proposalID uint) (*models.Grant, error) {
	var proposal *models.Proposal
	grant := &models.Grant{
		ProposalID: proposalID,
		Status:     models.GrantStatusPending,
		Attempts:   1,
		ClaimedAt:  e.nowUTC(),
	}
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		proposal, err = e.approvedProposal(proposalID, txn)
		if err != nil {
			return err
		}
		if err := e.claimProposal(proposal, txn); err != nil {
			return err
		}
		grant.Recipient = proposal.RecipientWallet
		grant.Amount = proposal.Amount
		grant.Purpose = proposal.Purpose
		ok, err := e.db.InsertGrant(grant, txn)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrGrantExists, proposalID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.submit(ctx, proposal, grant)
}

// Retry moves a failed grant back to pending and submits the transfer again.
// It never creates a second grant record
func (e *Executor) Retry(ctx context.Context, proposalID uint) (*models.Grant, error) {
	var proposal *models.Proposal
	var grant *models.Grant
	now := e.nowUTC()
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		grant, err = e.db.GetGrant(proposalID, txn)
		if err != nil {
			return err
		}
		if grant.Status != models.GrantStatusFailed {
			return fmt.Errorf(
				"%w: grant for proposal %d is %s",
				ErrGrantNotRetryable,
				proposalID,
				grant.Status,
			)
		}
		proposal, err = e.approvedProposal(proposalID, txn)
		if err != nil {
			return err
		}
		if err := e.claimProposal(proposal, txn); err != nil {
			return err
		}
		ok, err := e.db.UpdateGrantStatus(
			proposalID,
			models.GrantStatusFailed,
			map[string]any{
				"status":     models.GrantStatusPending,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "",
				"claimed_at": now,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrGrantNotRetryable, proposalID)
		}
		grant.Status = models.GrantStatusPending
		grant.Attempts++
		grant.LastError = ""
		grant.ClaimedAt = now
		return writeLog(
			e.db,
			txn,
			proposalID,
			models.GovernanceActionGrantRetry,
			map[string]any{"attempt": grant.Attempts},
			now,
		)
	})
	if err != nil {
		return nil, err
	}
	return e.submit(ctx, proposal, grant)
}

// ReleaseStale marks a grant failed when it has been pending for more than
// twice the transfer timeout, which only happens when the process stopped
// between claiming the slot and recording the result. The transfer may still
// have gone out, so a retry reuses the same transfer reference
func (e *Executor) ReleaseStale(proposalID uint) (*models.Grant, error) {
	now := e.nowUTC()
	staleAfter := 2 * e.transferTimeout
	var grant *models.Grant
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		grant, err = e.db.GetGrant(proposalID, txn)
		if err != nil {
			return err
		}
		if grant.Status != models.GrantStatusPending {
			return fmt.Errorf(
				"%w: grant for proposal %d is %s",
				ErrGrantNotStale,
				proposalID,
				grant.Status,
			)
		}
		if now.Sub(grant.ClaimedAt) <= staleAfter {
			return fmt.Errorf(
				"%w: grant for proposal %d claimed at %s",
				ErrGrantNotStale,
				proposalID,
				grant.ClaimedAt.Format(time.RFC3339),
			)
		}
		lastError := fmt.Sprintf("abandoned after pending for %s", now.Sub(grant.ClaimedAt))
		ok, err := e.db.UpdateGrantStatus(
			proposalID,
			models.GrantStatusPending,
			map[string]any{
				"status":     models.GrantStatusFailed,
				"last_error": lastError,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d", ErrGrantNotStale, proposalID)
		}
		grant.Status = models.GrantStatusFailed
		grant.LastError = lastError
		return writeLog(
			e.db,
			txn,
			proposalID,
			models.GovernanceActionGrantFailed,
			map[string]any{
				"attempt": grant.Attempts,
				"error":   lastError,
				"stale":   true,
			},
			now,
		)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.executions.WithLabelValues(models.GrantStatusFailed).Inc()
	e.logger.Warn(
		"released stale pending grant",
		"component", "grant",
		"proposal_id", proposalID,
		"claimed_at", grant.ClaimedAt,
	)
	e.publish(event.GrantFailedEventType, event.GrantEvent{
		ProposalID: proposalID,
		Recipient:  grant.Recipient,
		Amount:     grant.Amount,
		Error:      grant.LastError,
	})
	return grant, nil
}

func (e *Executor) approvedProposal(
	proposalID uint,
	txn *database.Txn,
) (*models.Proposal, error) {
	proposal, err := e.db.GetProposal(proposalID, txn)
	if err != nil {
		return nil, err
	}
	if !proposal.HasGrantPayload() {
		return nil, fmt.Errorf(
			"%w: proposal %d has no grant payload",
			governance.ErrInvalidTransition,
			proposalID,
		)
	}
	if proposal.Status != models.ProposalStatusApproved {
		return nil, fmt.Errorf(
			"%w: proposal %d is %s",
			governance.ErrInvalidTransition,
			proposalID,
			proposal.Status,
		)
	}
	return proposal, nil
}

// claimProposal bumps the proposal revision while it is still approved. A
// concurrent veto guards on the same revision, so only one of them commits
func (e *Executor) claimProposal(proposal *models.Proposal, txn *database.Txn) error {
	ok, err := e.db.UpdateProposal(
		proposal.ID,
		map[string]any{
			"status":   models.ProposalStatusApproved,
			"revision": proposal.Revision,
		},
		map[string]any{"revision": proposal.Revision + 1},
		txn,
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: proposal %d", governance.ErrConcurrentUpdate, proposal.ID)
	}
	proposal.Revision++
	return nil
}

func (e *Executor) submit(
	ctx context.Context,
	proposal *models.Proposal,
	grant *models.Grant,
) (*models.Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, e.transferTimeout)
	defer cancel()
	start := time.Now()
	signature, err := e.transferer.SubmitTransfer(ctx, chain.TransferRequest{
		Reference: "grant-" + strconv.FormatUint(uint64(proposal.ID), 10),
		Recipient: grant.Recipient,
		Amount:    grant.Amount,
		Memo:      grant.Purpose,
	})
	e.metrics.transferDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, chain.ErrTransferFailed) {
			err = fmt.Errorf("%w: %w", chain.ErrTransferFailed, err)
		}
		return nil, e.fail(proposal, grant, err)
	}
	return e.complete(proposal, grant, signature)
}

func (e *Executor) fail(
	proposal *models.Proposal,
	grant *models.Grant,
	transferErr error,
) error {
	now := e.nowUTC()
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		ok, err := e.db.UpdateGrantStatus(
			proposal.ID,
			models.GrantStatusPending,
			map[string]any{
				"status":     models.GrantStatusFailed,
				"last_error": transferErr.Error(),
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("grant for proposal %d is no longer pending", proposal.ID)
		}
		return writeLog(
			e.db,
			txn,
			proposal.ID,
			models.GovernanceActionGrantFailed,
			map[string]any{
				"attempt": grant.Attempts,
				"error":   transferErr.Error(),
			},
			now,
		)
	})
	if err != nil {
		e.logger.Error(
			"failed to record grant failure",
			"component", "grant",
			"proposal_id", proposal.ID,
			"error", err,
		)
		return errors.Join(transferErr, err)
	}
	grant.Status = models.GrantStatusFailed
	grant.LastError = transferErr.Error()
	e.metrics.executions.WithLabelValues(models.GrantStatusFailed).Inc()
	e.logger.Warn(
		"grant transfer failed",
		"component", "grant",
		"proposal_id", proposal.ID,
		"attempt", grant.Attempts,
		"error", transferErr,
	)
	e.publish(event.GrantFailedEventType, event.GrantEvent{
		ProposalID: proposal.ID,
		Recipient:  grant.Recipient,
		Amount:     grant.Amount,
		Error:      transferErr.Error(),
	})
	return fmt.Errorf("grant for proposal %d: %w", proposal.ID, transferErr)
}

func (e *Executor) complete(
	proposal *models.Proposal,
	grant *models.Grant,
	signature string,
) (*models.Grant, error) {
	now := e.nowUTC()
	err := e.db.Transaction(true).Do(func(txn *database.Txn) error {
		ok, err := e.db.UpdateGrantStatus(
			proposal.ID,
			models.GrantStatusPending,
			map[string]any{
				"status":                models.GrantStatusCompleted,
				"transaction_signature": signature,
				"completed_at":          now,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("grant for proposal %d is no longer pending", proposal.ID)
		}
		ok, err = e.db.UpdateProposal(
			proposal.ID,
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
			// The transfer went out, so the grant is still recorded
			e.logger.Error(
				"proposal left approved state during grant transfer",
				"component", "grant",
				"proposal_id", proposal.ID,
			)
		}
		if err := e.db.SetReceipt(
			&models.Receipt{
				Kind:                 models.ReceiptKindGrant,
				ReferenceID:          strconv.FormatUint(uint64(proposal.ID), 10),
				Recipient:            grant.Recipient,
				Amount:               grant.Amount,
				TransactionSignature: signature,
				CreatedAt:            now,
			},
			txn,
		); err != nil {
			return err
		}
		return writeLog(
			e.db,
			txn,
			proposal.ID,
			models.GovernanceActionExecute,
			map[string]any{
				"recipient": grant.Recipient,
				"amount":    grant.Amount,
				"signature": signature,
			},
			now,
		)
	})
	if err != nil {
		e.logger.Error(
			"transfer submitted but grant completion was not recorded",
			"component", "grant",
			"proposal_id", proposal.ID,
			"signature", signature,
			"error", err,
		)
		return nil, err
	}
	grant.Status = models.GrantStatusCompleted
	grant.TransactionSignature = &signature
	grant.CompletedAt = &now
	e.metrics.executions.WithLabelValues(models.GrantStatusCompleted).Inc()
	e.logger.Info(
		"grant executed",
		"component", "grant",
		"proposal_id", proposal.ID,
		"recipient", grant.Recipient,
		"amount", grant.Amount,
		"signature", signature,
	)
	e.publish(event.GrantExecutedEventType, event.GrantEvent{
		ProposalID:           proposal.ID,
		Recipient:            grant.Recipient,
		Amount:               grant.Amount,
		TransactionSignature: signature,
	})
	return grant, nil
}

func (e *Executor) publish(eventType event.EventType, data any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(event.NewEvent(eventType, data))
}

func writeLog(
	db *database.Database,
	txn *database.Txn,
	proposalID uint,
	action string,
	data map[string]any,
	now time.Time,
) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return db.AddGovernanceLog(
		&models.GovernanceLog{
			ProposalID: &proposalID,
			ActionType: action,
			ActionData: string(raw),
			CreatedAt:  now,
		},
		txn,
	)
}
