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

// Package royalty splits a sale price into royalty, commission and seller
// payouts.
package royalty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidConfig  = errors.New("invalid royalty configuration")
	ErrInvalidRoyalty = errors.New("invalid artist royalty")
)

var (
	zeroPct    = decimal.Zero
	hundredPct = decimal.NewFromInt(100)
)

// CommissionSplit divides the marketplace commission. Shares must sum to 100
type CommissionSplit struct {
	Creator decimal.Decimal `json:"creator" yaml:"creator"`
	Admin   decimal.Decimal `json:"admin"   yaml:"admin"`
	DAO     decimal.Decimal `json:"dao"     yaml:"dao"`
}

// Params are the raw royalty settings. They only take effect through NewConfig
type Params struct {
	TotalCapPct     decimal.Decimal `json:"totalCapPct"`
	ArtistMaxPct    decimal.Decimal `json:"artistMaxPct"`
	CreatorFixedPct decimal.Decimal `json:"creatorFixedPct"`
	CommissionPct   decimal.Decimal `json:"commissionPct"`
	CommissionSplit CommissionSplit `json:"commissionSplit"`
}

func DefaultParams() Params {
	return Params{
		TotalCapPct:     decimal.NewFromInt(20),
		ArtistMaxPct:    decimal.NewFromInt(15),
		CreatorFixedPct: decimal.NewFromInt(5),
		CommissionPct:   decimal.NewFromInt(15),
		CommissionSplit: CommissionSplit{
			Creator: decimal.NewFromInt(40),
			Admin:   decimal.NewFromInt(40),
			DAO:     decimal.NewFromInt(20),
		},
	}
}

// Config is a validated royalty configuration
type Config struct {
	params Params
	valid  bool
}

// NewConfig validates params and returns a usable Config
func NewConfig(p Params) (Config, error) {
	if err := p.Validate(); err != nil {
		return Config{}, err
	}
	return Config{params: p, valid: true}, nil
}

// Params returns the settings the Config was built from
func (c Config) Params() Params {
	return c.params
}

func (p Params) Validate() error {
	pcts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"total cap", p.TotalCapPct},
		{"artist max", p.ArtistMaxPct},
		{"creator fixed", p.CreatorFixedPct},
		{"commission", p.CommissionPct},
		{"commission split creator", p.CommissionSplit.Creator},
		{"commission split admin", p.CommissionSplit.Admin},
		{"commission split dao", p.CommissionSplit.DAO},
	}
	for _, pct := range pcts {
		if !inRange(pct.value, zeroPct, hundredPct) {
			return fmt.Errorf(
				"%w: %s percentage %s outside [0, 100]",
				ErrInvalidConfig,
				pct.name,
				pct.value,
			)
		}
	}
	if p.ArtistMaxPct.Add(p.CreatorFixedPct).GreaterThan(p.TotalCapPct) {
		return fmt.Errorf(
			"%w: artist max %s + creator fixed %s exceeds total cap %s",
			ErrInvalidConfig,
			p.ArtistMaxPct,
			p.CreatorFixedPct,
			p.TotalCapPct,
		)
	}
	split := p.CommissionSplit
	if !split.Creator.Add(split.Admin).Add(split.DAO).Equal(hundredPct) {
		return fmt.Errorf("%w: commission split must sum to 100", ErrInvalidConfig)
	}
	if p.CreatorFixedPct.Add(p.ArtistMaxPct).Add(p.CommissionPct).GreaterThan(hundredPct) {
		return fmt.Errorf(
			"%w: creator, artist and commission percentages exceed 100",
			ErrInvalidConfig,
		)
	}
	return nil
}

func inRange(v, lo, hi decimal.Decimal) bool {
	return !v.LessThan(lo) && !v.GreaterThan(hi)
}

// Sale is a single artwork sale
type Sale struct {
	Price            uint64
	ArtistRoyaltyPct decimal.Decimal
	// Resale is false on the first sale, where the artist is also the seller
	Resale bool
}

type CommissionPayout struct {
	Total   uint64 `json:"total"`
	Creator uint64 `json:"creator"`
	Admin   uint64 `json:"admin"`
	DAO     uint64 `json:"dao"`
}

// Payout lines always sum to the sale price
type Payout struct {
	Price          uint64           `json:"price"`
	CreatorRoyalty uint64           `json:"creatorRoyalty"`
	ArtistRoyalty  uint64           `json:"artistRoyalty"`
	Commission     CommissionPayout `json:"commission"`
	Seller         uint64           `json:"seller"`
}

// Total returns the sum of all top-level payout lines
func (p Payout) Total() uint64 {
	return p.CreatorRoyalty + p.ArtistRoyalty + p.Commission.Total + p.Seller
}

// Split computes the payout for a sale. Every line is floored and the seller
// receives the remainder
func Split(cfg Config, sale Sale) (Payout, error) {
	if !cfg.valid {
		return Payout{}, fmt.Errorf("%w: not constructed with NewConfig", ErrInvalidConfig)
	}
	p := cfg.params
	if !inRange(sale.ArtistRoyaltyPct, zeroPct, p.ArtistMaxPct) {
		return Payout{}, fmt.Errorf(
			"%w: %s not within [0, %s]",
			ErrInvalidRoyalty,
			sale.ArtistRoyaltyPct,
			p.ArtistMaxPct,
		)
	}
	ret := Payout{
		Price:          sale.Price,
		CreatorRoyalty: percentOf(sale.Price, p.CreatorFixedPct),
	}
	if sale.Resale {
		ret.ArtistRoyalty = percentOf(sale.Price, sale.ArtistRoyaltyPct)
	}
	commission := percentOf(sale.Price, p.CommissionPct)
	ret.Commission = CommissionPayout{
		Creator: percentOf(commission, p.CommissionSplit.Creator),
		Admin:   percentOf(commission, p.CommissionSplit.Admin),
		DAO:     percentOf(commission, p.CommissionSplit.DAO),
	}
	// Total is the sum of the paid shares; split dust stays with the seller
	ret.Commission.Total = ret.Commission.Creator + ret.Commission.Admin + ret.Commission.DAO
	ret.Seller = sale.Price - ret.CreatorRoyalty - ret.ArtistRoyalty - ret.Commission.Total
	return ret, nil
}

// percentOf returns floor(amount * pct / 100)
func percentOf(amount uint64, pct decimal.Decimal) uint64 {
	return decimal.NewFromUint64(amount).Mul(pct).Shift(-2).Floor().BigInt().Uint64()
}
