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

package guild

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	oracle             chain.BalanceOracle
	transferer         chain.Transferer
	now                func() time.Time
	rewardCaps         reward.Caps
	governanceParams   governance.Params
	royaltyParams      royalty.Params
	dataDir            string
	blobPlugin         string
	metadataPlugin     string
	databaseDSN        string
	databaseHost       string
	databaseUser       string
	databasePassword   string
	databaseName       string
	databaseSSLMode    string
	databasePort       uint
	databaseTimeZone   string
	blobBlockCacheSize uint64
	blobIndexCacheSize uint64
	blobDisableGc      bool
	oracleTimeout      time.Duration
	transferTimeout    time.Duration
	proposalReward     uint64
	voteReward         uint64
	tracing            bool
	tracingStdout      bool
}

func (c *Config) validate() error {
	if c.oracle == nil {
		return errors.New("no balance oracle configured")
	}
	if c.transferer == nil {
		return errors.New("no transferer configured")
	}
	if err := c.governanceParams.Validate(); err != nil {
		return err
	}
	if err := c.rewardCaps.Validate(); err != nil {
		return err
	}
	return c.royaltyParams.Validate()
}

// ConfigOptionFunc is a type that represents functions that modify the Engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new engine config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:           slog.New(slog.NewJSONHandler(io.Discard, nil)),
		governanceParams: governance.DefaultParams(),
		rewardCaps:       reward.DefaultCaps(),
		royaltyParams:    royalty.DefaultParams(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPromRegistry specifies a prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use. Use "none" to
// disable transfer receipts
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithDatabaseDSN specifies a full connection string for the mysql and
// postgres metadata plugins
func WithDatabaseDSN(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseDSN = dsn
	}
}

// WithDatabaseConnection specifies the connection parameters for the mysql
// and postgres metadata plugins
func WithDatabaseConnection(
	host string,
	port uint,
	user string,
	password string,
	database string,
	sslMode string,
) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseHost = host
		c.databasePort = port
		c.databaseUser = user
		c.databasePassword = password
		c.databaseName = database
		c.databaseSSLMode = sslMode
	}
}

// WithDatabaseTimeZone specifies the session time zone for the mysql and
// postgres metadata plugins
func WithDatabaseTimeZone(timeZone string) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseTimeZone = timeZone
	}
}

// WithBlobCacheSizes specifies the badger block and index cache sizes in
// bytes. Zero keeps the default
func WithBlobCacheSizes(blockCacheSize, indexCacheSize uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.blobBlockCacheSize = blockCacheSize
		c.blobIndexCacheSize = indexCacheSize
	}
}

// WithBlobGc specifies whether badger value log garbage collection runs
func WithBlobGc(enabled bool) ConfigOptionFunc {
	return func(c *Config) {
		c.blobDisableGc = !enabled
	}
}

// WithBalanceOracle specifies the source of token balances and total supply
func WithBalanceOracle(oracle chain.BalanceOracle) ConfigOptionFunc {
	return func(c *Config) {
		c.oracle = oracle
	}
}

// WithTransferer specifies the capability used to submit token transfers
func WithTransferer(transferer chain.Transferer) ConfigOptionFunc {
	return func(c *Config) {
		c.transferer = transferer
	}
}

// WithGovernanceParams specifies the base governance parameters. Executed
// parameter proposals override them
func WithGovernanceParams(params governance.Params) ConfigOptionFunc {
	return func(c *Config) {
		c.governanceParams = params
	}
}

// WithRewardCaps specifies the daily reward caps per category
func WithRewardCaps(caps reward.Caps) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardCaps = caps
	}
}

// WithRoyaltyParams specifies the royalty and commission percentages
func WithRoyaltyParams(params royalty.Params) ConfigOptionFunc {
	return func(c *Config) {
		c.royaltyParams = params
	}
}

// WithOracleTimeout bounds each balance oracle call
func WithOracleTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.oracleTimeout = timeout
	}
}

// WithTransferTimeout bounds each transfer submission
func WithTransferTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.transferTimeout = timeout
	}
}

// WithParticipationRewards accrues rewards to proposers and voters. A zero
// amount disables that reward
func WithParticipationRewards(proposal uint64, vote uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.proposalReward = proposal
		c.voteReward = vote
	}
}

// WithClock overrides the time source of all components
func WithClock(now func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}
