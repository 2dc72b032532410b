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
	"testing"
	"time"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.NotNil(t, cfg.now)
	assert.Equal(t, governance.DefaultParams(), cfg.governanceParams)
	assert.Equal(t, reward.DefaultCaps(), cfg.rewardCaps)
	assert.Equal(t, royalty.DefaultParams(), cfg.royaltyParams)
	assert.Empty(t, cfg.dataDir)
}

func TestConfigValidate(t *testing.T) {
	static := chain.NewStaticChain(nil, 1)
	tests := []struct {
		name  string
		opts  []ConfigOptionFunc
		valid bool
	}{
		{"no chain", nil, false},
		{"no transferer", []ConfigOptionFunc{WithBalanceOracle(static)}, false},
		{"valid", []ConfigOptionFunc{WithBalanceOracle(static), WithTransferer(static)}, true},
		{
			"bad caps",
			[]ConfigOptionFunc{
				WithBalanceOracle(static),
				WithTransferer(static),
				WithRewardCaps(reward.Caps{reward.TypeLike: 1}),
			},
			false,
		},
		{
			"bad royalty",
			[]ConfigOptionFunc{
				WithBalanceOracle(static),
				WithTransferer(static),
				WithRoyaltyParams(royalty.Params{TotalCapPct: decimal.NewFromInt(200)}),
			},
			false,
		},
	}
	for _, tt := range tests {
		cfg := NewConfig(tt.opts...)
		err := cfg.validate()
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.Error(t, err, tt.name)
		}
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := &Config{}
	WithDatabaseConnection("db", 5432, "guild", "pw", "guild", "disable")(cfg)
	assert.Equal(t, "db", cfg.databaseHost)
	assert.Equal(t, uint(5432), cfg.databasePort)
	assert.Equal(t, "disable", cfg.databaseSSLMode)

	WithParticipationRewards(10, 1)(cfg)
	assert.Equal(t, uint64(10), cfg.proposalReward)
	assert.Equal(t, uint64(1), cfg.voteReward)

	WithTransferTimeout(time.Second)(cfg)
	assert.Equal(t, time.Second, cfg.transferTimeout)

	WithDatabaseTimeZone("Europe/Berlin")(cfg)
	assert.Equal(t, "Europe/Berlin", cfg.databaseTimeZone)

	WithBlobCacheSizes(1<<20, 1<<19)(cfg)
	assert.Equal(t, uint64(1<<20), cfg.blobBlockCacheSize)
	assert.Equal(t, uint64(1<<19), cfg.blobIndexCacheSize)
	assert.False(t, cfg.blobDisableGc)
	WithBlobGc(false)(cfg)
	assert.True(t, cfg.blobDisableGc)
}
