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

// Package governance implements the proposal lifecycle: creation with a
// stake check, token-weighted voting, closing with a quorum and threshold
// tally, vetoes and execution of non-transfer proposals.
package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultOracleTimeout = 5 * time.Second

// Service owns proposal state. It is safe for concurrent use; all
// serialization happens in the store
type Service struct {
	db            *database.Database
	oracle        chain.BalanceOracle
	eventBus      *event.EventBus
	logger        *slog.Logger
	promRegistry  prometheus.Registerer
	metrics       *serviceMetrics
	sanitizer     *bluemonday.Policy
	now           func() time.Time
	params        Params
	oracleTimeout time.Duration
}

type ServiceOptionFunc func(*Service)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ServiceOptionFunc {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) ServiceOptionFunc {
	return func(s *Service) {
		s.promRegistry = registry
	}
}

// WithEventBus specifies the event bus that lifecycle events are published to
func WithEventBus(bus *event.EventBus) ServiceOptionFunc {
	return func(s *Service) {
		s.eventBus = bus
	}
}

// WithOracleTimeout bounds each balance oracle call
func WithOracleTimeout(timeout time.Duration) ServiceOptionFunc {
	return func(s *Service) {
		s.oracleTimeout = timeout
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOptionFunc {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	db *database.Database,
	oracle chain.BalanceOracle,
	params Params,
	opts ...ServiceOptionFunc,
) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: no database", ErrInvalidParams)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: no balance oracle", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		db:            db,
		oracle:        oracle,
		params:        params,
		sanitizer:     bluemonday.StrictPolicy(),
		now:           time.Now,
		oracleTimeout: defaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.metrics = newServiceMetrics(s.promRegistry)
	return s, nil
}

// Now returns the current time as stored: UTC with millisecond precision
func (s *Service) Now() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// EffectiveParams returns the configured params with any executed parameter
// proposals applied
func (s *Service) EffectiveParams() (Params, error) {
	return s.effectiveParams(nil)
}

func (s *Service) effectiveParams(txn *database.Txn) (Params, error) {
	override, err := s.db.GetGovernanceParamOverride(txn)
	if err != nil {
		return Params{}, err
	}
	return applyOverride(s.params, override), nil
}

func (s *Service) GetProposal(id uint) (*models.Proposal, error) {
	return s.db.GetProposal(id, nil)
}

func (s *Service) ListProposals(filter models.ProposalFilter) ([]models.Proposal, error) {
	return s.db.ListProposals(filter, nil)
}

func (s *Service) ListVotes(proposalID uint) ([]models.Vote, error) {
	if _, err := s.db.GetProposal(proposalID, nil); err != nil {
		return nil, err
	}
	return s.db.GetVotes(proposalID, nil)
}

func (s *Service) GovernanceLogs(proposalID uint) ([]models.GovernanceLog, error) {
	return s.db.GetGovernanceLogs(proposalID, nil)
}

func (s *Service) PendingUpgrades() ([]models.PendingUpgrade, error) {
	return s.db.GetPendingUpgrades(nil)
}

func (s *Service) balanceOf(ctx context.Context, wallet string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()
	balance, err := s.oracle.BalanceOf(ctx, wallet)
	if err != nil {
		s.metrics.oracleErrors.Inc()
		return 0, oracleError(err)
	}
	return balance, nil
}

func (s *Service) totalSupply(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()
	supply, err := s.oracle.TotalSupply(ctx)
	if err != nil {
		s.metrics.oracleErrors.Inc()
		return 0, oracleError(err)
	}
	return supply, nil
}

func oracleError(err error) error {
	if errors.Is(err, chain.ErrOracleUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", chain.ErrOracleUnavailable, err)
}

// writeLog appends an audit record inside txn
func (s *Service) writeLog(
	txn *database.Txn,
	proposalID uint,
	actor string,
	action string,
	data map[string]any,
) error {
	entry := &models.GovernanceLog{
		Actor:      actor,
		ActionType: action,
		CreatedAt:  s.Now(),
	}
	if proposalID != 0 {
		entry.ProposalID = &proposalID
	}
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		entry.ActionData = string(raw)
	}
	return s.db.AddGovernanceLog(entry, txn)
}

func (s *Service) publish(eventType event.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(event.NewEvent(eventType, data))
}
