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
	"strconv"

	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/internal/version"
	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.GetVersionString(),
	})
}

func proposalID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abortError(c, http.StatusBadRequest, codeBadRequest, "invalid proposal id")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		abortError(c, http.StatusBadRequest, codeBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func (s *Server) getParams(c *gin.Context) {
	params, err := s.engine.EffectiveParams()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

func (s *Server) listUpgrades(c *gin.Context) {
	upgrades, err := s.engine.PendingUpgrades()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upgrades)
}

func (s *Server) listProposals(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	proposals, err := s.engine.ListProposals(models.ProposalFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (s *Server) getProposal(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	p, err := s.engine.GetProposal(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listVotes(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	votes, err := s.engine.ListVotes(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

func (s *Server) getLog(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	logs, err := s.engine.GovernanceLog(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type createProposalBody struct {
	ParameterChanges *governance.ParameterChanges `json:"parameterChanges"`
	Title            string                       `json:"title"`
	Description      string                       `json:"description"`
	Type             string                       `json:"type"`
	RecipientWallet  string                       `json:"recipientWallet"`
	Purpose          string                       `json:"purpose"`
	UpgradeVersion   string                       `json:"upgradeVersion"`
	UpgradeNotes     string                       `json:"upgradeNotes"`
	Amount           uint64                       `json:"amount"`
}

func (s *Server) createProposal(c *gin.Context) {
	var body createProposalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	p, err := s.engine.CreateProposal(c.Request.Context(), governance.CreateProposalRequest{
		ProposerWallet:   actor(c),
		Title:            body.Title,
		Description:      body.Description,
		Type:             body.Type,
		RecipientWallet:  body.RecipientWallet,
		Purpose:          body.Purpose,
		ParameterChanges: body.ParameterChanges,
		UpgradeVersion:   body.UpgradeVersion,
		UpgradeNotes:     body.UpgradeNotes,
		Amount:           body.Amount,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) castVote(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	var body struct {
		Choice string `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	vote, err := s.engine.CastVote(c.Request.Context(), id, actor(c), body.Choice)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vote)
}

func (s *Server) closeProposal(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	result, err := s.engine.CloseProposal(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) vetoProposal(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Reason is optional, so an empty body is accepted
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			abortError(c, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
	}
	p, err := s.engine.VetoProposal(c.Request.Context(), id, actor(c), body.Reason)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) markExecuted(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	p, err := s.engine.MarkExecuted(c.Request.Context(), id, actor(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getGrant(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	g, err := s.engine.GetGrant(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) listGrants(c *gin.Context) {
	grants, err := s.engine.ListGrants(c.Query("status"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

func (s *Server) executeGrant(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	g, err := s.engine.ExecuteGrant(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) releaseGrant(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	g, err := s.engine.ReleaseStaleGrant(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) retryGrant(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	g, err := s.engine.RetryGrant(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}
