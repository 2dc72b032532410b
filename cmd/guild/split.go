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

package main

import (
	"github.com/blinklabs-io/guild/royalty"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func splitCommand() *cobra.Command {
	var (
		price     uint64
		artistPct string
		resale    bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Compute the royalty and commission payout of a sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			pct, err := decimal.NewFromString(artistPct)
			if err != nil {
				return err
			}
			royaltyCfg, err := royalty.NewConfig(cfg.Royalty.Params())
			if err != nil {
				return err
			}
			payout, err := royalty.Split(royaltyCfg, royalty.Sale{
				Price:            price,
				ArtistRoyaltyPct: pct,
				Resale:           resale,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), payout)
		},
	}
	cmd.Flags().Uint64Var(&price, "price", 0, "sale price in base units")
	cmd.Flags().StringVar(&artistPct, "artist-pct", "0", "artist royalty percentage")
	cmd.Flags().BoolVar(&resale, "resale", false, "sale is a resale, so the artist royalty applies")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
