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

package metadata

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/database/plugin/metadata/mysql"
	"github.com/blinklabs-io/guild/database/plugin/metadata/postgres"
	"github.com/blinklabs-io/guild/database/plugin/metadata/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Plugin names
const (
	PluginSqlite   = "sqlite"
	PluginMysql    = "mysql"
	PluginPostgres = "postgres"
)

// Plugins lists the available metadata plugins
var Plugins = []string{PluginSqlite, PluginMysql, PluginPostgres}

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(*gorm.DB, int64) error
	Transaction() *gorm.DB

	// Proposals
	CreateProposal(*models.Proposal, *gorm.DB) error
	GetProposal(uint, *gorm.DB) (*models.Proposal, error)
	ListProposals(models.ProposalFilter, *gorm.DB) ([]models.Proposal, error)
	GetExpiredProposals(time.Time, *gorm.DB) ([]models.Proposal, error)
	AddProposalVotes(
		uint, // proposal ID
		string, // choice
		uint64, // weight
		time.Time, // now
		*gorm.DB,
	) (bool, error)
	UpdateProposal(
		uint, // proposal ID
		map[string]any, // conditions
		map[string]any, // values
		*gorm.DB,
	) (bool, error)

	// Votes
	InsertVote(*models.Vote, *gorm.DB) (bool, error)
	GetVote(uint, string, *gorm.DB) (*models.Vote, error)
	GetVotes(uint, *gorm.DB) ([]models.Vote, error)

	// Grants
	InsertGrant(*models.Grant, *gorm.DB) (bool, error)
	GetGrant(uint, *gorm.DB) (*models.Grant, error)
	ListGrants(string, *gorm.DB) ([]models.Grant, error)
	UpdateGrantStatus(
		uint, // proposal ID
		string, // from status
		map[string]any, // values
		*gorm.DB,
	) (bool, error)

	// Rewards
	GetRewardDailyTotal(
		string, // user ID
		string, // category
		string, // day
		*gorm.DB,
	) (*models.RewardDailyTotal, error)
	InsertRewardDailyTotal(*models.RewardDailyTotal, *gorm.DB) (bool, error)
	SwapRewardDailyTotal(
		uint, // ID
		uint64, // old total
		uint64, // new total
		*gorm.DB,
	) (bool, error)
	AddRewardEntry(*models.RewardEntry, *gorm.DB) error
	GetRewardEntries(string, int, *gorm.DB) ([]models.RewardEntry, error)
	SumRewardEntries(string, string, string, *gorm.DB) (uint64, error)
	GetRewardTotals(string, *gorm.DB) ([]models.RewardTotal, error)
	ReserveRewardEntries(
		string, // user ID
		string, // reward type
		string, // claim ID
		*gorm.DB,
	) (int64, error)
	SumReservedRewardEntries(string, *gorm.DB) (uint64, error)
	SettleRewardEntries(string, time.Time, *gorm.DB) (int64, error)
	ReleaseRewardEntries(string, *gorm.DB) (int64, error)
	AddRewardClaim(*models.RewardClaim, *gorm.DB) error
	GetRewardClaim(string, *gorm.DB) (*models.RewardClaim, error)
	UpdateRewardClaim(
		string, // claim ID
		string, // from status
		map[string]any, // values
		*gorm.DB,
	) (bool, error)

	// Governance
	AddGovernanceLog(*models.GovernanceLog, *gorm.DB) error
	GetGovernanceLogs(uint, *gorm.DB) ([]models.GovernanceLog, error)
	GetGovernanceParamOverride(*gorm.DB) (*models.GovernanceParamOverride, error)
	SetGovernanceParamOverride(*models.GovernanceParamOverride, *gorm.DB) error
	AddPendingUpgrade(*models.PendingUpgrade, *gorm.DB) error
	GetPendingUpgrades(*gorm.DB) ([]models.PendingUpgrade, error)
}

// Config selects and configures a metadata plugin
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Plugin       string
	DataDir      string
	DSN          string
	Host         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	TimeZone     string
	Port         uint
}

// New returns the metadata store selected by the plugin name
func New(cfg Config) (MetadataStore, error) {
	switch cfg.Plugin {
	case "", PluginSqlite:
		return wrap(sqlite.New(
			sqlite.WithDataDir(cfg.DataDir),
			sqlite.WithLogger(cfg.Logger),
			sqlite.WithPromRegistry(cfg.PromRegistry),
		))
	case PluginMysql:
		return wrap(mysql.New(
			mysql.WithDSN(cfg.DSN),
			mysql.WithHost(cfg.Host),
			mysql.WithPort(cfg.Port),
			mysql.WithUser(cfg.User),
			mysql.WithPassword(cfg.Password),
			mysql.WithDatabase(cfg.Database),
			mysql.WithSSLMode(cfg.SSLMode),
			mysql.WithTimeZone(cfg.TimeZone),
			mysql.WithLogger(cfg.Logger),
			mysql.WithPromRegistry(cfg.PromRegistry),
		))
	case PluginPostgres:
		return wrap(postgres.New(
			postgres.WithDSN(cfg.DSN),
			postgres.WithHost(cfg.Host),
			postgres.WithPort(cfg.Port),
			postgres.WithUser(cfg.User),
			postgres.WithPassword(cfg.Password),
			postgres.WithDatabase(cfg.Database),
			postgres.WithSSLMode(cfg.SSLMode),
			postgres.WithTimeZone(cfg.TimeZone),
			postgres.WithLogger(cfg.Logger),
			postgres.WithPromRegistry(cfg.PromRegistry),
		))
	default:
		return nil, fmt.Errorf("unknown metadata plugin: %s", cfg.Plugin)
	}
}

// wrap avoids returning a typed nil store on error
func wrap[T MetadataStore](store T, err error) (MetadataStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
