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

package royalty_test

import (
	"math/rand/v2"
	"testing"

	"github.com/blinklabs-io/guild/royalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func defaultConfig(t *testing.T) royalty.Config {
	t.Helper()
	cfg, err := royalty.NewConfig(royalty.DefaultParams())
	require.NoError(t, err)
	return cfg
}

func TestSplitResale(t *testing.T) {
	payout, err := royalty.Split(defaultConfig(t), royalty.Sale{
		Price:            1000,
		ArtistRoyaltyPct: pct(10),
		Resale:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), payout.CreatorRoyalty)
	assert.Equal(t, uint64(100), payout.ArtistRoyalty)
	assert.Equal(t, uint64(150), payout.Commission.Total)
	assert.Equal(t, uint64(60), payout.Commission.Creator)
	assert.Equal(t, uint64(60), payout.Commission.Admin)
	assert.Equal(t, uint64(30), payout.Commission.DAO)
	assert.Equal(t, uint64(700), payout.Seller)
	assert.Equal(t, uint64(1000), payout.Total())
}

func TestSplitFirstSaleFoldsArtistRoyalty(t *testing.T) {
	payout, err := royalty.Split(defaultConfig(t), royalty.Sale{
		Price:            1000,
		ArtistRoyaltyPct: pct(10),
	})
	require.NoError(t, err)
	assert.Zero(t, payout.ArtistRoyalty)
	assert.Equal(t, uint64(800), payout.Seller)
	assert.Equal(t, uint64(1000), payout.Total())
}

func TestSplitRoundingGoesToSeller(t *testing.T) {
	payout, err := royalty.Split(defaultConfig(t), royalty.Sale{
		Price:            999,
		ArtistRoyaltyPct: pct(7.5),
		Resale:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(49), payout.CreatorRoyalty)
	assert.Equal(t, uint64(74), payout.ArtistRoyalty)
	// Commission before the split is floor(149.85) = 149
	assert.Equal(t, uint64(59), payout.Commission.Creator)
	assert.Equal(t, uint64(59), payout.Commission.Admin)
	assert.Equal(t, uint64(29), payout.Commission.DAO)
	assert.Equal(t, uint64(147), payout.Commission.Total)
	assert.Equal(t, uint64(729), payout.Seller)
	assert.Equal(t, uint64(999), payout.Total())
	assert.Equal(
		t,
		payout.Commission.Total,
		payout.Commission.Creator+payout.Commission.Admin+payout.Commission.DAO,
	)
}

func TestSplitInvalidRoyalty(t *testing.T) {
	cfg := defaultConfig(t)
	for _, p := range []decimal.Decimal{pct(-1), pct(15.01), pct(50)} {
		_, err := royalty.Split(cfg, royalty.Sale{Price: 100, ArtistRoyaltyPct: p})
		assert.ErrorIs(t, err, royalty.ErrInvalidRoyalty, p.String())
	}
	_, err := royalty.Split(royalty.Config{}, royalty.Sale{Price: 100})
	assert.ErrorIs(t, err, royalty.ErrInvalidConfig)
}

func TestNewConfigValidation(t *testing.T) {
	testDefs := []struct {
		name   string
		modify func(*royalty.Params)
	}{
		{"artist plus creator over cap", func(p *royalty.Params) { p.ArtistMaxPct = pct(16) }},
		{"split not 100", func(p *royalty.Params) { p.CommissionSplit.DAO = pct(10) }},
		{"negative commission", func(p *royalty.Params) { p.CommissionPct = pct(-5) }},
		{"over 100", func(p *royalty.Params) { p.TotalCapPct = pct(101) }},
		{"lines over 100", func(p *royalty.Params) {
			p.TotalCapPct = pct(60)
			p.ArtistMaxPct = pct(40)
			p.CreatorFixedPct = pct(20)
			p.CommissionPct = pct(50)
		}},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := royalty.DefaultParams()
			testDef.modify(&params)
			_, err := royalty.NewConfig(params)
			assert.ErrorIs(t, err, royalty.ErrInvalidConfig)
		})
	}
}

func TestSplitConservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	cfg := defaultConfig(t)
	for range 5000 {
		price := rng.Uint64N(1 << 40)
		// Artist percentage with two decimal places in [0, 15]
		artist := decimal.New(rng.Int64N(1501), -2)
		payout, err := royalty.Split(cfg, royalty.Sale{
			Price:            price,
			ArtistRoyaltyPct: artist,
			Resale:           rng.IntN(2) == 1,
		})
		require.NoError(t, err)
		require.Equal(t, price, payout.Total(), "price %d artist %s", price, artist)
		require.Equal(
			t,
			payout.Commission.Total,
			payout.Commission.Creator+payout.Commission.Admin+payout.Commission.DAO,
		)
	}
}
