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

// Package guild wires the governance, grant, reward and royalty components
// into a single engine backed by one database and one event bus.
package guild

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/guild/database"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/event"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/grant"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
)

const shutdownTimeout = 30 * time.Second

type Engine struct {
	db            *database.Database
	eventBus      *event.EventBus
	governance    *governance.Service
	grants        *grant.Executor
	rewards       *reward.Ledger
	shutdownFuncs []func(context.Context) error
	royalty       royalty.Config
	config        Config
	handlerWg     sync.WaitGroup
	shutdownOnce  sync.Once
}

// CloseResult extends the governance close result with the outcome of the
// grant transfer triggered by an approval
type CloseResult struct {
	Grant      *models.Grant `json:"grant,omitempty"`
	GrantError string        `json:"grantError,omitempty"`
	governance.CloseResult
}

// New opens the database and builds all components
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	royaltyCfg, err := royalty.NewConfig(cfg.royaltyParams)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	e := &Engine{
		config:   cfg,
		royalty:  royaltyCfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
	}
	if err := e.init(); err != nil {
		return nil, errors.Join(err, e.Stop())
	}
	return e, nil
}

func (e *Engine) init() error {
	cfg := e.config
	if cfg.tracing {
		if err := e.setupTracing(); err != nil {
			return err
		}
	}
	db, err := database.New(&database.Config{
		Logger:             cfg.logger,
		PromRegistry:       cfg.promRegistry,
		DataDir:            cfg.dataDir,
		MetadataPlugin:     cfg.metadataPlugin,
		BlobPlugin:         cfg.blobPlugin,
		DSN:                cfg.databaseDSN,
		Host:               cfg.databaseHost,
		Port:               cfg.databasePort,
		User:               cfg.databaseUser,
		Password:           cfg.databasePassword,
		Database:           cfg.databaseName,
		SSLMode:            cfg.databaseSSLMode,
		TimeZone:           cfg.databaseTimeZone,
		BlobBlockCacheSize: cfg.blobBlockCacheSize,
		BlobIndexCacheSize: cfg.blobIndexCacheSize,
		BlobDisableGc:      cfg.blobDisableGc,
	})
	if db != nil {
		e.db = db
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	govOpts := []governance.ServiceOptionFunc{
		governance.WithLogger(cfg.logger),
		governance.WithPromRegistry(cfg.promRegistry),
		governance.WithEventBus(e.eventBus),
		governance.WithClock(cfg.now),
	}
	if cfg.oracleTimeout > 0 {
		govOpts = append(govOpts, governance.WithOracleTimeout(cfg.oracleTimeout))
	}
	e.governance, err = governance.NewService(db, cfg.oracle, cfg.governanceParams, govOpts...)
	if err != nil {
		return err
	}
	grantOpts := []grant.ExecutorOptionFunc{
		grant.WithLogger(cfg.logger),
		grant.WithPromRegistry(cfg.promRegistry),
		grant.WithEventBus(e.eventBus),
		grant.WithClock(cfg.now),
	}
	rewardOpts := []reward.LedgerOptionFunc{
		reward.WithLogger(cfg.logger),
		reward.WithPromRegistry(cfg.promRegistry),
		reward.WithEventBus(e.eventBus),
		reward.WithCaps(cfg.rewardCaps),
		reward.WithClock(cfg.now),
	}
	if cfg.transferTimeout > 0 {
		grantOpts = append(grantOpts, grant.WithTransferTimeout(cfg.transferTimeout))
		rewardOpts = append(rewardOpts, reward.WithTransferTimeout(cfg.transferTimeout))
	}
	e.grants, err = grant.NewExecutor(db, cfg.transferer, grantOpts...)
	if err != nil {
		return err
	}
	e.rewards, err = reward.NewLedger(db, cfg.transferer, rewardOpts...)
	if err != nil {
		return err
	}
	e.subscribeParticipationRewards()
	return nil
}

// Stop shuts down the event bus, flushes tracing and closes the database
func (e *Engine) Stop() error {
	var err error
	e.shutdownOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var err error
	e.config.logger.Debug("starting graceful shutdown", "component", "guild")
	if e.eventBus != nil {
		e.eventBus.Stop()
	}
	// Handlers drain their queues before the database goes away
	e.handlerWg.Wait()
	for _, fn := range e.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	e.shutdownFuncs = nil
	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	e.config.logger.Debug("graceful shutdown complete", "component", "guild")
	return err
}

func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

func (e *Engine) Governance() *governance.Service {
	return e.governance
}

func (e *Engine) Grants() *grant.Executor {
	return e.grants
}

func (e *Engine) Rewards() *reward.Ledger {
	return e.rewards
}

func (e *Engine) CreateProposal(
	ctx context.Context,
	req governance.CreateProposalRequest,
) (*models.Proposal, error) {
	return e.governance.CreateProposal(ctx, req)
}

func (e *Engine) CastVote(
	ctx context.Context,
	proposalID uint,
	wallet string,
	choice string,
) (*models.Vote, error) {
	return e.governance.CastVote(ctx, proposalID, wallet, choice)
}

// CloseProposal closes a proposal and, when that approves a proposal with a
// grant payload, executes the grant. A failed transfer does not fail the
// close; it is reported in GrantError and can be retried
func (e *Engine) CloseProposal(ctx context.Context, id uint) (*CloseResult, error) {
	result, err := e.governance.CloseProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.afterClose(ctx, result), nil
}

// CloseExpired closes every proposal past its voting window and executes the
// grants of those approved
func (e *Engine) CloseExpired(ctx context.Context) ([]*CloseResult, error) {
	results, err := e.governance.CloseExpired(ctx)
	ret := make([]*CloseResult, 0, len(results))
	for _, result := range results {
		ret = append(ret, e.afterClose(ctx, result))
	}
	return ret, err
}

func (e *Engine) afterClose(ctx context.Context, result *governance.CloseResult) *CloseResult {
	ret := &CloseResult{CloseResult: *result}
	p := result.Proposal
	if !result.Transitioned ||
		p.Status != models.ProposalStatusApproved ||
		!p.HasGrantPayload() {
		return ret
	}
	g, err := e.grants.Execute(ctx, p.ID)
	if err != nil {
		e.config.logger.Error(
			"grant execution after close failed",
			"component", "guild",
			"proposal_id", p.ID,
			"error", err,
		)
		ret.GrantError = err.Error()
		return ret
	}
	ret.Grant = g
	p.Status = models.ProposalStatusExecuted
	p.ExecutedAt = g.CompletedAt
	return ret
}

func (e *Engine) VetoProposal(
	ctx context.Context,
	id uint,
	actor string,
	reason string,
) (*models.Proposal, error) {
	return e.governance.VetoProposal(ctx, id, actor, reason)
}

func (e *Engine) MarkExecuted(
	ctx context.Context,
	id uint,
	actor string,
) (*models.Proposal, error) {
	return e.governance.MarkExecuted(ctx, id, actor)
}

func (e *Engine) ExecuteGrant(ctx context.Context, proposalID uint) (*models.Grant, error) {
	return e.grants.Execute(ctx, proposalID)
}

func (e *Engine) RetryGrant(ctx context.Context, proposalID uint) (*models.Grant, error) {
	return e.grants.Retry(ctx, proposalID)
}

// ReleaseStaleGrant fails a grant left pending by an interrupted transfer so
// it can be retried or the proposal vetoed
func (e *Engine) ReleaseStaleGrant(proposalID uint) (*models.Grant, error) {
	return e.grants.ReleaseStale(proposalID)
}

func (e *Engine) GetGrant(proposalID uint) (*models.Grant, error) {
	return e.grants.GetGrant(proposalID)
}

func (e *Engine) AccrueReward(
	ctx context.Context,
	req reward.AccrueRequest,
) (*reward.AccrueResult, error) {
	return e.rewards.Accrue(ctx, req)
}

func (e *Engine) ClaimRewards(
	ctx context.Context,
	req reward.ClaimRequest,
) (*models.RewardClaim, error) {
	return e.rewards.Claim(ctx, req)
}

func (e *Engine) RewardBalance(ctx context.Context, userID string) (*reward.Balance, error) {
	return e.rewards.Balance(ctx, userID)
}

func (e *Engine) RewardHistory(
	ctx context.Context,
	userID string,
	limit int,
) ([]models.RewardEntry, error) {
	return e.rewards.History(ctx, userID, limit)
}

// SplitSalePayout splits a sale price using the configured royalty params
func (e *Engine) SplitSalePayout(sale royalty.Sale) (royalty.Payout, error) {
	return royalty.Split(e.royalty, sale)
}

func (e *Engine) RoyaltyParams() royalty.Params {
	return e.royalty.Params()
}

func (e *Engine) GetProposal(id uint) (*models.Proposal, error) {
	return e.governance.GetProposal(id)
}

func (e *Engine) ListProposals(filter models.ProposalFilter) ([]models.Proposal, error) {
	return e.governance.ListProposals(filter)
}

func (e *Engine) ListVotes(proposalID uint) ([]models.Vote, error) {
	return e.governance.ListVotes(proposalID)
}

func (e *Engine) GovernanceLog(proposalID uint) ([]models.GovernanceLog, error) {
	return e.governance.GovernanceLogs(proposalID)
}

func (e *Engine) EffectiveParams() (governance.Params, error) {
	return e.governance.EffectiveParams()
}

func (e *Engine) PendingUpgrades() ([]models.PendingUpgrade, error) {
	return e.governance.PendingUpgrades()
}

func (e *Engine) GetRewardClaim(id string) (*models.RewardClaim, error) {
	return e.rewards.GetClaim(id)
}

func (e *Engine) ListGrants(status string) ([]models.Grant, error) {
	return e.grants.ListGrants(status)
}

// subscribeParticipationRewards credits proposers and voters from lifecycle
// events
func (e *Engine) subscribeParticipationRewards() {
	if e.config.proposalReward > 0 {
		_, ch := e.eventBus.Subscribe(event.ProposalCreatedEventType)
		e.handle(ch, func(evt event.Event) {
			data, ok := evt.Data.(event.ProposalEvent)
			if !ok {
				return
			}
			e.accrueParticipation(
				data.Actor,
				reward.TypeProposalCreation,
				e.config.proposalReward,
			)
		})
	}
	if e.config.voteReward > 0 {
		_, ch := e.eventBus.Subscribe(event.VoteCastEventType)
		e.handle(ch, func(evt event.Event) {
			data, ok := evt.Data.(event.VoteCastEvent)
			if !ok {
				return
			}
			e.accrueParticipation(
				data.Wallet,
				reward.TypeVote,
				e.config.voteReward,
			)
		})
	}
}

func (e *Engine) handle(ch <-chan event.Event, handlerFunc event.EventHandlerFunc) {
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range ch {
			handlerFunc(evt)
		}
	}()
}

func (e *Engine) accrueParticipation(
	userID string,
	rewardType string,
	amount uint64,
) {
	_, err := e.rewards.Accrue(context.Background(), reward.AccrueRequest{
		UserID: userID,
		Type:   rewardType,
		Amount: amount,
	})
	if err != nil && !errors.Is(err, reward.ErrCapExceeded) {
		e.config.logger.Error(
			"failed to accrue participation reward",
			"component", "guild",
			"user", userID,
			"type", rewardType,
			"error", err,
		)
	}
}
