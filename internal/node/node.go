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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/guild"
	"github.com/blinklabs-io/guild/api"
	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/plugin/blob"
	"github.com/blinklabs-io/guild/database/plugin/metadata"
	"github.com/blinklabs-io/guild/internal/config"
	"github.com/blinklabs-io/guild/reward"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type chainBackend interface {
	chain.BalanceOracle
	chain.Transferer
}

func newChain(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (chainBackend, error) {
	if cfg.Gateway.URL == "" {
		logger.Warn(
			"no gateway configured, using static in-memory chain",
			"component", "node",
		)
		return chain.NewStaticChain(
			cfg.Gateway.StaticBalances,
			cfg.Gateway.StaticSupply,
		), nil
	}
	opts := []chain.GatewayOptionFunc{
		chain.WithGatewayLogger(logger),
		chain.WithGatewayAPIKey(cfg.Gateway.APIKey),
		chain.WithGatewayPromRegistry(promRegistry),
	}
	if cfg.Gateway.MaxTries > 0 {
		opts = append(opts, chain.WithGatewayMaxTries(cfg.Gateway.MaxTries))
	}
	gateway, err := chain.NewGateway(cfg.Gateway.URL, opts...)
	if err != nil {
		return nil, err
	}
	return gateway, nil
}

// NewEngine builds an engine from the loaded config
func NewEngine(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*guild.Engine, error) {
	backend, err := newChain(cfg, logger, promRegistry)
	if err != nil {
		return nil, err
	}
	blobPlugin := blob.PluginBadger
	if !cfg.BlobStore {
		blobPlugin = blob.PluginNone
	}
	opts := []guild.ConfigOptionFunc{
		guild.WithLogger(logger),
		guild.WithPromRegistry(promRegistry),
		guild.WithDatabasePath(cfg.DataDir),
		guild.WithBlobPlugin(blobPlugin),
		guild.WithBlobCacheSizes(cfg.Blob.BlockCacheSize, cfg.Blob.IndexCacheSize),
		guild.WithBlobGc(cfg.Blob.Gc),
		guild.WithMetadataPlugin(cfg.DatabasePlugin),
		guild.WithDatabaseDSN(cfg.DatabaseDsn),
		guild.WithBalanceOracle(backend),
		guild.WithTransferer(backend),
		guild.WithGovernanceParams(cfg.Governance.Params()),
		guild.WithRewardCaps(reward.Caps(cfg.Rewards.DailyCaps)),
		guild.WithRoyaltyParams(cfg.Royalty.Params()),
		guild.WithOracleTimeout(cfg.OracleTimeout),
		guild.WithTransferTimeout(cfg.TransferTimeout),
		guild.WithParticipationRewards(
			cfg.Rewards.ProposalReward,
			cfg.Rewards.VoteReward,
		),
		guild.WithTracing(cfg.Tracing),
		guild.WithTracingStdout(cfg.TracingStdout),
	}
	var conn *config.DatabaseConnConfig
	switch cfg.DatabasePlugin {
	case metadata.PluginMysql:
		conn = &cfg.Mysql
	case metadata.PluginPostgres:
		conn = &cfg.Postgres
	}
	if conn != nil {
		opts = append(opts, guild.WithDatabaseConnection(
			conn.Host,
			conn.Port,
			conn.User,
			conn.Password,
			conn.Database,
			conn.SSLMode,
		), guild.WithDatabaseTimeZone(conn.TimeZone))
	}
	return guild.New(guild.NewConfig(opts...))
}

// Run serves the API and metrics and closes expired proposals until
// SIGINT/SIGTERM or ctx is done
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return run(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	promGatherer prometheus.Gatherer,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg.Redacted()), "component", "node")
	if cfg.JwtSecret == "" {
		return errors.New("jwtSecret must be set to serve the API")
	}
	engine, err := NewEngine(cfg, logger, promRegistry)
	if err != nil {
		return err
	}
	server, err := api.NewServer(
		engine,
		api.WithLogger(logger),
		api.WithJWTSecret([]byte(cfg.JwtSecret)),
		api.WithCORSOrigins(cfg.CorsOrigins),
	)
	if err != nil {
		return errors.Join(err, engine.Stop())
	}

	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	servers := []*http.Server{
		newHTTPServer(cfg.BindAddr, cfg.ApiPort, server.Handler()),
	}
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}))
		servers = append(servers, newHTTPServer(cfg.BindAddr, cfg.MetricsPort, mux))
	}
	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		logger.Info(
			"listening on "+srv.Addr,
			"component", "node",
		)
		go func() {
			if err := srv.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("listener %s: %w", srv.Addr, err)
			}
		}()
	}

	closerDone := make(chan struct{})
	go func() {
		defer close(closerDone)
		runCloser(signalCtx, engine, cfg.CloseInterval, logger)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		logger.Error("server error", "component", "node", "error", runErr)
		signalCtxStop()
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout,
	)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "component", "node", "error", err)
		}
	}
	<-closerDone
	if err := engine.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		runErr = errors.Join(runErr, err)
	}
	if runErr == nil {
		logger.Info("shutdown complete", "component", "node")
	}
	return runErr
}

func newHTTPServer(bindAddr string, port uint, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bindAddr, port),
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// runCloser closes expired proposals every interval until ctx is done
func runCloser(
	ctx context.Context,
	engine *guild.Engine,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		results, err := engine.CloseExpired(ctx)
		if err != nil {
			logger.Error(
				"failed to close expired proposals",
				"component", "node",
				"error", err,
			)
		}
		for _, result := range results {
			logger.Info(
				"closed proposal",
				"component", "node",
				"proposal_id", result.Proposal.ID,
				"status", result.Proposal.Status,
				"reason", result.Outcome.Reason,
				"grant_error", result.GrantError,
			)
		}
	}
}
