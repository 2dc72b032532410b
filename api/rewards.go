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

package api

import (
	"net/http"

	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *Server) accrueReward(c *gin.Context) {
	var req reward.AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	result, err := s.engine.AccrueReward(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) claimRewards(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet"`
		Type   string `json:"type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	// Rewards are paid to the acting wallet unless another is named
	wallet := body.Wallet
	if wallet == "" {
		wallet = actor(c)
	}
	claim, err := s.engine.ClaimRewards(c.Request.Context(), reward.ClaimRequest{
		UserID: actor(c),
		Wallet: wallet,
		Type:   body.Type,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) rewardBalance(c *gin.Context) {
	balance, err := s.engine.RewardBalance(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (s *Server) rewardHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	entries, err := s.engine.RewardHistory(c.Request.Context(), c.Param("user"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getClaim(c *gin.Context) {
	claim, err := s.engine.GetRewardClaim(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) royaltyParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.RoyaltyParams())
}

type splitBody struct {
	ArtistRoyaltyPct decimal.Decimal `json:"artistRoyaltyPct"`
	Price            uint64          `json:"price"`
	Resale           bool            `json:"resale"`
}

func (s *Server) splitSale(c *gin.Context) {
	var body splitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	payout, err := s.engine.SplitSalePayout(royalty.Sale{
		Price:            body.Price,
		ArtistRoyaltyPct: body.ArtistRoyaltyPct,
		Resale:           body.Resale,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}
