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

package reward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxAccrueAttempts      = 5
	defaultTransferTimeout = 30 * time.Second
)

// errSwapMissed triggers a retry of the accrual in a fresh transaction
var errSwapMissed = errors.New("daily total swap missed")

type Ledger struct {
	db              *database.Database
	transferer      chain.Transferer
	eventBus        *event.EventBus
	logger          *slog.Logger
	promRegistry    prometheus.Registerer
	metrics         *ledgerMetrics
	caps            Caps
	now             func() time.Time
	transferTimeout time.Duration
}

type LedgerOptionFunc func(*Ledger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) LedgerOptionFunc {
	return func(l *Ledger) {
		l.promRegistry = registry
	}
}

// WithEventBus specifies the event bus that accruals and claims are
// published to
func WithEventBus(bus *event.EventBus) LedgerOptionFunc {
	return func(l *Ledger) {
		l.eventBus = bus
	}
}

// WithCaps replaces the default daily caps
func WithCaps(caps Caps) LedgerOptionFunc {
	return func(l *Ledger) {
		l.caps = caps
	}
}

// WithTransferTimeout bounds each claim transfer
func WithTransferTimeout(timeout time.Duration) LedgerOptionFunc {
	return func(l *Ledger) {
		l.transferTimeout = timeout
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) LedgerOptionFunc {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(
	db *database.Database,
	transferer chain.Transferer,
	opts ...LedgerOptionFunc,
) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("reward ledger: no database")
	}
	if transferer == nil {
		return nil, errors.New("reward ledger: no transferer")
	}
	l := &Ledger{
		db:              db,
		transferer:      transferer,
		caps:            DefaultCaps(),
		now:             time.Now,
		transferTimeout: defaultTransferTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.caps.Validate(); err != nil {
		return nil, err
	}
	if l.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l.metrics = newLedgerMetrics(l.promRegistry)
	return l, nil
}

func (l *Ledger) nowUTC() time.Time {
	return l.now().UTC().Truncate(time.Millisecond)
}

// AccrueRequest credits a user. A zero OccurredAt means now
type AccrueRequest struct {
	OccurredAt time.Time `json:"occurredAt"`
	UserID     string    `json:"userId"`
	Type       string    `json:"type"`
	Amount     uint64    `json:"amount"`
}

// AccrueResult describes a persisted accrual. Granted is less than Requested
// when the daily cap truncated it
type AccrueResult struct {
	Entry     *models.RewardEntry `json:"entry"`
	Requested uint64              `json:"requested"`
	Granted   uint64              `json:"granted"`
	Truncated bool                `json:"truncated"`
}

// Accrue records a reward entry, truncated so the day's total for the cap
// category never exceeds the cap
func (l *Ledger) Accrue(ctx context.Context, req AccrueRequest) (*AccrueResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrInvalidUser
	}
	if !ValidType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRewardType, req.Type)
	}
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	occurredAt := req.OccurredAt.UTC().Truncate(time.Millisecond)
	if req.OccurredAt.IsZero() {
		occurredAt = l.nowUTC()
	}
	category := CategoryFor(req.Type)
	for range maxAccrueAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := l.tryAccrue(req, category, occurredAt)
		if errors.Is(err, errSwapMissed) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrCapExceeded) {
				l.metrics.capRejections.WithLabelValues(category).Inc()
			}
			return nil, err
		}
		result := &AccrueResult{
			Entry:     entry,
			Requested: req.Amount,
			Granted:   entry.Amount,
			Truncated: entry.Amount < req.Amount,
		}
		l.metrics.accrued.WithLabelValues(req.Type).Add(float64(entry.Amount))
		if result.Truncated {
			l.metrics.truncated.WithLabelValues(req.Type).Inc()
		}
		l.logger.Debug(
			"reward accrued",
			"component", "reward",
			"user", req.UserID,
			"type", req.Type,
			"requested", req.Amount,
			"granted", entry.Amount,
		)
		l.publish(event.RewardAccruedEventType, event.RewardAccruedEvent{
			UserID:     req.UserID,
			RewardType: req.Type,
			Requested:  req.Amount,
			Amount:     entry.Amount,
		})
		return result, nil
	}
	return nil, fmt.Errorf(
		"%w: %d attempts for user %s",
		ErrConcurrentUpdate,
		maxAccrueAttempts,
		req.UserID,
	)
}

func (l *Ledger) tryAccrue(
	req AccrueRequest,
	category string,
	occurredAt time.Time,
) (*models.RewardEntry, error) {
	day := occurredAt.Format(time.DateOnly)
	limit, capped := l.caps[category]
	var entry *models.RewardEntry
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		total, err := l.db.GetRewardDailyTotal(req.UserID, category, day, txn)
		if err != nil {
			return err
		}
		if total == nil {
			total = &models.RewardDailyTotal{
				UserID:   req.UserID,
				Category: category,
				Day:      day,
			}
			ok, err := l.db.InsertRewardDailyTotal(total, txn)
			if err != nil {
				return err
			}
			if !ok {
				return errSwapMissed
			}
		}
		granted := req.Amount
		if capped {
			var remaining uint64
			if total.Total < limit {
				remaining = limit - total.Total
			}
			granted = min(granted, remaining)
			if granted == 0 {
				return fmt.Errorf(
					"%w: %s cap %d reached for %s",
					ErrCapExceeded,
					category,
					limit,
					day,
				)
			}
		}
		ok, err := l.db.SwapRewardDailyTotal(
			total.ID,
			total.Total,
			total.Total+granted,
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return errSwapMissed
		}
		entry = &models.RewardEntry{
			UserID:          req.UserID,
			RewardType:      req.Type,
			Category:        category,
			Amount:          granted,
			RequestedAmount: req.Amount,
			Status:          models.RewardStatusPending,
			AccrualDay:      day,
			AccruedAt:       occurredAt,
		}
		return l.db.AddRewardEntry(entry, txn)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ClaimRequest pays out a user's pending rewards to a wallet. An empty Type
// claims every type
type ClaimRequest struct {
	UserID string `json:"userId"`
	Wallet string `json:"wallet"`
	Type   string `json:"type,omitempty"`
}

// Claim reserves the matching pending entries, transfers their sum and marks
// them claimed. On transfer failure the entries return to the pending pool
func (l *Ledger) Claim(ctx context.Context, req ClaimRequest) (*models.RewardClaim, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrInvalidUser
	}
	if req.Type != "" && !ValidType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRewardType, req.Type)
	}
	if err := chain.ValidateWallet(req.Wallet); err != nil {
		return nil, err
	}
	claim := &models.RewardClaim{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		WalletAddress: req.Wallet,
		RewardType:    req.Type,
		Status:        models.RewardClaimStatusPending,
		CreatedAt:     l.nowUTC(),
	}
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		count, err := l.db.ReserveRewardEntries(req.UserID, req.Type, claim.ID, txn)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNothingToClaim
		}
		sum, err := l.db.SumReservedRewardEntries(claim.ID, txn)
		if err != nil {
			return err
		}
		claim.Amount = sum
		claim.EntryCount = count
		return l.db.AddRewardClaim(claim, txn)
	})
	if err != nil {
		return nil, err
	}
	tctx, cancel := context.WithTimeout(ctx, l.transferTimeout)
	defer cancel()
	signature, err := l.transferer.SubmitTransfer(tctx, chain.TransferRequest{
		Reference: "reward-" + claim.ID,
		Recipient: claim.WalletAddress,
		Amount:    claim.Amount,
		Memo:      "reward claim",
	})
	if err != nil {
		if !errors.Is(err, chain.ErrTransferFailed) {
			err = fmt.Errorf("%w: %w", chain.ErrTransferFailed, err)
		}
		return nil, l.failClaim(claim, err)
	}
	return l.completeClaim(claim, signature)
}

func (l *Ledger) failClaim(claim *models.RewardClaim, transferErr error) error {
	now := l.nowUTC()
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		if _, err := l.db.ReleaseRewardEntries(claim.ID, txn); err != nil {
			return err
		}
		ok, err := l.db.UpdateRewardClaim(
			claim.ID,
			models.RewardClaimStatusPending,
			map[string]any{
				"status":       models.RewardClaimStatusFailed,
				"error":        transferErr.Error(),
				"completed_at": now,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reward claim %s is no longer pending", claim.ID)
		}
		return nil
	})
	l.metrics.claims.WithLabelValues(models.RewardClaimStatusFailed).Inc()
	if err != nil {
		l.logger.Error(
			"failed to release reward claim",
			"component", "reward",
			"claim_id", claim.ID,
			"error", err,
		)
		return errors.Join(transferErr, err)
	}
	l.logger.Warn(
		"reward claim transfer failed",
		"component", "reward",
		"claim_id", claim.ID,
		"user", claim.UserID,
		"error", transferErr,
	)
	return fmt.Errorf("reward claim %s: %w", claim.ID, transferErr)
}

func (l *Ledger) completeClaim(
	claim *models.RewardClaim,
	signature string,
) (*models.RewardClaim, error) {
	now := l.nowUTC()
	err := l.db.Transaction(true).Do(func(txn *database.Txn) error {
		settled, err := l.db.SettleRewardEntries(claim.ID, now, txn)
		if err != nil {
			return err
		}
		if settled != claim.EntryCount {
			return fmt.Errorf(
				"reward claim %s settled %d of %d entries",
				claim.ID,
				settled,
				claim.EntryCount,
			)
		}
		ok, err := l.db.UpdateRewardClaim(
			claim.ID,
			models.RewardClaimStatusPending,
			map[string]any{
				"status":                models.RewardClaimStatusCompleted,
				"transaction_signature": signature,
				"completed_at":          now,
			},
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reward claim %s is no longer pending", claim.ID)
		}
		return l.db.SetReceipt(
			&models.Receipt{
				Kind:                 models.ReceiptKindRewardClaim,
				ReferenceID:          claim.ID,
				Recipient:            claim.WalletAddress,
				Amount:               claim.Amount,
				TransactionSignature: signature,
				CreatedAt:            now,
			},
			txn,
		)
	})
	if err != nil {
		l.logger.Error(
			"transfer submitted but reward claim was not recorded",
			"component", "reward",
			"claim_id", claim.ID,
			"signature", signature,
			"error", err,
		)
		return nil, err
	}
	claim.Status = models.RewardClaimStatusCompleted
	claim.TransactionSignature = &signature
	claim.CompletedAt = &now
	l.metrics.claims.WithLabelValues(models.RewardClaimStatusCompleted).Inc()
	l.metrics.claimed.Add(float64(claim.Amount))
	l.logger.Info(
		"reward claim paid",
		"component", "reward",
		"claim_id", claim.ID,
		"user", claim.UserID,
		"amount", claim.Amount,
		"signature", signature,
	)
	l.publish(event.RewardClaimedEventType, event.RewardClaimedEvent{
		ClaimID:              claim.ID,
		UserID:               claim.UserID,
		Amount:               claim.Amount,
		TransactionSignature: signature,
	})
	return claim, nil
}

// TypeBalance is the pending and claimed total of one reward type
type TypeBalance struct {
	Pending uint64 `json:"pending"`
	Claimed uint64 `json:"claimed"`
}

type Balance struct {
	ByType  map[string]TypeBalance `json:"byType"`
	UserID  string                 `json:"userId"`
	Pending uint64                 `json:"pending"`
	Claimed uint64                 `json:"claimed"`
}

// Balance returns a user's pending and claimed totals. Entries reserved by
// an in-flight claim count as pending
func (l *Ledger) Balance(ctx context.Context, userID string) (*Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	totals, err := l.db.GetRewardTotals(userID, nil)
	if err != nil {
		return nil, err
	}
	ret := &Balance{
		UserID: userID,
		ByType: make(map[string]TypeBalance),
	}
	for _, total := range totals {
		tb := ret.ByType[total.RewardType]
		switch total.Status {
		case models.RewardStatusPending:
			tb.Pending += total.Amount
			ret.Pending += total.Amount
		case models.RewardStatusClaimed:
			tb.Claimed += total.Amount
			ret.Claimed += total.Amount
		}
		ret.ByType[total.RewardType] = tb
	}
	return ret, nil
}

// History returns a user's entries, newest first. A limit of 0 returns all
func (l *Ledger) History(
	ctx context.Context,
	userID string,
	limit int,
) ([]models.RewardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.db.GetRewardEntries(userID, limit, nil)
}

func (l *Ledger) GetClaim(id string) (*models.RewardClaim, error) {
	return l.db.GetRewardClaim(id, nil)
}

func (l *Ledger) publish(eventType event.EventType, data any) {
	if l.eventBus == nil {
		return
	}
	l.eventBus.Publish(event.NewEvent(eventType, data))
}
