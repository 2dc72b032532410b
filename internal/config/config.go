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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/plugin/metadata"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "guild.config"

// EnvPrefix is the prefix of all environment overrides
const EnvPrefix = "GUILD"

const redactedValue = "<redacted>"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type GovernanceConfig struct {
	QuorumPct        decimal.Decimal `yaml:"quorumPercentage"    envconfig:"quorum_percentage"`
	ThresholdPct     decimal.Decimal `yaml:"thresholdPercentage" envconfig:"threshold_percentage"`
	VetoWallets      []string        `yaml:"vetoWallets"         split_words:"true"`
	MinProposalStake uint64          `yaml:"minProposalStake"    split_words:"true"`
	MaxVoteWeight    uint64          `yaml:"maxVoteWeight"       split_words:"true"`
	VotingPeriodDays uint            `yaml:"votingPeriodDays"    split_words:"true"`
	VetoEnabled      bool            `yaml:"vetoEnabled"         split_words:"true"`
}

// Params returns the governance parameters described by the config
func (c GovernanceConfig) Params() governance.Params {
	return governance.Params{
		QuorumPct:        c.QuorumPct,
		ThresholdPct:     c.ThresholdPct,
		VetoWallets:      slices.Clone(c.VetoWallets),
		MinProposalStake: c.MinProposalStake,
		MaxVoteWeight:    c.MaxVoteWeight,
		VotingPeriodDays: c.VotingPeriodDays,
		VetoEnabled:      c.VetoEnabled,
	}
}

type RewardsConfig struct {
	DailyCaps map[string]uint64 `yaml:"dailyCaps" split_words:"true"`
	// Participation rewards, 0 disables
	ProposalReward uint64 `yaml:"proposalReward" split_words:"true"`
	VoteReward     uint64 `yaml:"voteReward"     split_words:"true"`
}

type RoyaltyConfig struct {
	CommissionSplit royalty.CommissionSplit `yaml:"commissionSplit" split_words:"true"`
	TotalCapPct     decimal.Decimal         `yaml:"totalCapPct"     envconfig:"total_cap_pct"`
	ArtistMaxPct    decimal.Decimal         `yaml:"artistMaxPct"    envconfig:"artist_max_pct"`
	CreatorFixedPct decimal.Decimal         `yaml:"creatorFixedPct" envconfig:"creator_fixed_pct"`
	CommissionPct   decimal.Decimal         `yaml:"commissionPct"   envconfig:"commission_pct"`
}

// Params returns the royalty parameters described by the config
func (c RoyaltyConfig) Params() royalty.Params {
	return royalty.Params{
		TotalCapPct:     c.TotalCapPct,
		ArtistMaxPct:    c.ArtistMaxPct,
		CreatorFixedPct: c.CreatorFixedPct,
		CommissionPct:   c.CommissionPct,
		CommissionSplit: c.CommissionSplit,
	}
}

// GatewayConfig selects the chain backend. An empty URL uses a static
// in-memory chain seeded from StaticBalances and StaticSupply
type GatewayConfig struct {
	StaticBalances map[string]uint64 `yaml:"staticBalances" split_words:"true"`
	URL            string            `yaml:"url"`
	APIKey         string            `yaml:"apiKey"         envconfig:"api_key"`
	StaticSupply   uint64            `yaml:"staticSupply"   split_words:"true"`
	MaxTries       uint              `yaml:"maxTries"       split_words:"true"`
}

type DatabaseConnConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"  envconfig:"ssl_mode"`
	TimeZone string `yaml:"timeZone" envconfig:"time_zone"`
	Port     uint   `yaml:"port"`
}

// BlobConfig tunes the badger receipt store. Zero cache sizes keep the
// badger plugin defaults
type BlobConfig struct {
	BlockCacheSize uint64 `yaml:"blockCacheSize" split_words:"true"`
	IndexCacheSize uint64 `yaml:"indexCacheSize" split_words:"true"`
	Gc             bool   `yaml:"gc"`
}

type Config struct {
	Rewards         RewardsConfig      `yaml:"rewards"`
	Gateway         GatewayConfig      `yaml:"gateway"`
	Mysql           DatabaseConnConfig `yaml:"mysql"`
	Postgres        DatabaseConnConfig `yaml:"postgres"`
	Royalty         RoyaltyConfig      `yaml:"royalty"`
	Blob            BlobConfig         `yaml:"blob"`
	Governance      GovernanceConfig   `yaml:"governance"`
	CorsOrigins     []string           `yaml:"corsOrigins"     split_words:"true"`
	BindAddr        string             `yaml:"bindAddr"        split_words:"true"`
	DatabasePlugin  string             `yaml:"databasePlugin"  split_words:"true"`
	DataDir         string             `yaml:"dataDir"         split_words:"true"`
	DatabaseDsn     string             `yaml:"databaseDsn"     split_words:"true"`
	JwtSecret       string             `yaml:"jwtSecret"       split_words:"true"`
	OracleTimeout   time.Duration      `yaml:"oracleTimeout"   split_words:"true"`
	TransferTimeout time.Duration      `yaml:"transferTimeout" split_words:"true"`
	CloseInterval   time.Duration      `yaml:"closeInterval"   split_words:"true"`
	ShutdownTimeout time.Duration      `yaml:"shutdownTimeout" split_words:"true"`
	ApiPort         uint               `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint               `yaml:"metricsPort"     split_words:"true"`
	BlobStore       bool               `yaml:"blobStore"       split_words:"true"`
	Tracing         bool               `yaml:"tracing"`
	TracingStdout   bool               `yaml:"tracingStdout"   split_words:"true"`
	Debug           bool               `yaml:"debug"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	govParams := governance.DefaultParams()
	royaltyParams := royalty.DefaultParams()
	return &Config{
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12798,
		DatabasePlugin:  metadata.PluginSqlite,
		DataDir:         ".guild",
		BlobStore:       true,
		Blob:            BlobConfig{Gc: true},
		OracleTimeout:   5 * time.Second,
		TransferTimeout: 30 * time.Second,
		CloseInterval:   time.Minute,
		ShutdownTimeout: 30 * time.Second,
		Governance: GovernanceConfig{
			QuorumPct:        govParams.QuorumPct,
			ThresholdPct:     govParams.ThresholdPct,
			MinProposalStake: govParams.MinProposalStake,
			MaxVoteWeight:    govParams.MaxVoteWeight,
			VotingPeriodDays: govParams.VotingPeriodDays,
			VetoEnabled:      govParams.VetoEnabled,
		},
		Rewards: RewardsConfig{
			DailyCaps: reward.DefaultCaps(),
		},
		Royalty: RoyaltyConfig{
			TotalCapPct:     royaltyParams.TotalCapPct,
			ArtistMaxPct:    royaltyParams.ArtistMaxPct,
			CreatorFixedPct: royaltyParams.CreatorFixedPct,
			CommissionPct:   royaltyParams.CommissionPct,
			CommissionSplit: royaltyParams.CommissionSplit,
		},
	}
}

var globalConfig = DefaultConfig()

// LoadConfig builds the config from the defaults, the YAML file and then
// GUILD_* environment variables. Without an explicit file, ~/.guild/guild.yaml
// and /etc/guild/guild.yaml are tried in that order
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".guild", "guild.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/guild/guild.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the config for values the engine cannot run with
func (c *Config) Validate() error {
	var err error
	if !slices.Contains(metadata.Plugins, c.DatabasePlugin) {
		err = errors.Join(err, fmt.Errorf("unknown database plugin %q", c.DatabasePlugin))
	}
	if c.ApiPort == 0 {
		err = errors.Join(err, errors.New("apiPort must be set"))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.ApiPort {
		err = errors.Join(err, errors.New("metricsPort must differ from apiPort"))
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"oracleTimeout", c.OracleTimeout},
		{"transferTimeout", c.TransferTimeout},
		{"closeInterval", c.CloseInterval},
		{"shutdownTimeout", c.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			err = errors.Join(err, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if govErr := c.Governance.Params().Validate(); govErr != nil {
		err = errors.Join(err, govErr)
	}
	if capsErr := reward.Caps(c.Rewards.DailyCaps).Validate(); capsErr != nil {
		err = errors.Join(err, capsErr)
	}
	if royaltyErr := c.Royalty.Params().Validate(); royaltyErr != nil {
		err = errors.Join(err, royaltyErr)
	}
	for name, conn := range map[string]DatabaseConnConfig{
		"mysql":    c.Mysql,
		"postgres": c.Postgres,
	} {
		if conn.TimeZone == "" {
			continue
		}
		if _, tzErr := time.LoadLocation(conn.TimeZone); tzErr != nil {
			err = errors.Join(err, fmt.Errorf("%s.timeZone: %w", name, tzErr))
		}
	}
	if c.Gateway.URL == "" {
		for wallet := range c.Gateway.StaticBalances {
			if walletErr := chain.ValidateWallet(wallet); walletErr != nil {
				err = errors.Join(err, fmt.Errorf("staticBalances: %w", walletErr))
			}
		}
	}
	return err
}

// Redacted returns a copy of the config with credentials masked, suitable for
// logging
func (c *Config) Redacted() Config {
	ret := *c
	if ret.JwtSecret != "" {
		ret.JwtSecret = redactedValue
	}
	if ret.Gateway.APIKey != "" {
		ret.Gateway.APIKey = redactedValue
	}
	if ret.Mysql.Password != "" {
		ret.Mysql.Password = redactedValue
	}
	if ret.Postgres.Password != "" {
		ret.Postgres.Password = redactedValue
	}
	if ret.DatabaseDsn != "" {
		ret.DatabaseDsn = redactedValue
	}
	return ret
}
