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
	"errors"
	"net/http"

	"github.com/blinklabs-io/guild/chain"
	"github.com/blinklabs-io/guild/database/models"
	"github.com/blinklabs-io/guild/governance"
	"github.com/blinklabs-io/guild/grant"
	"github.com/blinklabs-io/guild/reward"
	"github.com/blinklabs-io/guild/royalty"
	"github.com/gin-gonic/gin"
)

// Error codes returned in the code field of error responses
const (
	codeBadRequest        = "bad_request"
	codeUnauthenticated   = "unauthenticated"
	codeForbidden         = "forbidden"
	codeInternal          = "internal_error"
	codeNotFound          = "not_found"
	codeInsufficientStake = "insufficient_stake"
	codeUnauthorized      = "unauthorized"
	codeProposalNotActive = "proposal_not_active"
	codeDuplicateVote     = "duplicate_vote"
	codeZeroWeight        = "zero_weight"
	codeVotingStillOpen   = "voting_still_open"
	codeInvalidTransition = "invalid_transition"
	codeConcurrentUpdate  = "concurrent_update"
	codeGrantExists       = "grant_exists"
	codeGrantNotRetryable = "grant_not_retryable"
	codeGrantNotStale     = "grant_not_stale"
	codeCapExceeded       = "cap_exceeded"
	codeNothingToClaim    = "nothing_to_claim"
	codeInvalidRoyalty    = "invalid_royalty"
	codeInvalidProposal   = "invalid_proposal"
	codeInvalidParams     = "invalid_params"
	codeInvalidChoice     = "invalid_choice"
	codeInvalidWallet     = "invalid_wallet"
	codeInvalidReward     = "invalid_reward"
	codeTransferFailed    = "transfer_failed"
	codeOracleUnavailable = "oracle_unavailable"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters where one sentinel wraps another
var errorMappings = []errorMapping{
	{models.ErrProposalNotFound, http.StatusNotFound, codeNotFound},
	{models.ErrGrantNotFound, http.StatusNotFound, codeNotFound},
	{models.ErrRewardClaimNotFound, http.StatusNotFound, codeNotFound},
	{governance.ErrInsufficientStake, http.StatusForbidden, codeInsufficientStake},
	{governance.ErrUnauthorized, http.StatusForbidden, codeUnauthorized},
	{governance.ErrProposalNotActive, http.StatusConflict, codeProposalNotActive},
	{governance.ErrDuplicateVote, http.StatusConflict, codeDuplicateVote},
	{governance.ErrVotingStillOpen, http.StatusConflict, codeVotingStillOpen},
	{governance.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{governance.ErrConcurrentUpdate, http.StatusConflict, codeConcurrentUpdate},
	{reward.ErrConcurrentUpdate, http.StatusConflict, codeConcurrentUpdate},
	{grant.ErrGrantExists, http.StatusConflict, codeGrantExists},
	{grant.ErrGrantNotRetryable, http.StatusConflict, codeGrantNotRetryable},
	{grant.ErrGrantNotStale, http.StatusConflict, codeGrantNotStale},
	{governance.ErrZeroWeight, http.StatusUnprocessableEntity, codeZeroWeight},
	{reward.ErrCapExceeded, http.StatusUnprocessableEntity, codeCapExceeded},
	{reward.ErrNothingToClaim, http.StatusUnprocessableEntity, codeNothingToClaim},
	{royalty.ErrInvalidRoyalty, http.StatusBadRequest, codeInvalidRoyalty},
	{governance.ErrInvalidProposal, http.StatusBadRequest, codeInvalidProposal},
	{governance.ErrInvalidParams, http.StatusBadRequest, codeInvalidParams},
	{governance.ErrInvalidChoice, http.StatusBadRequest, codeInvalidChoice},
	{chain.ErrInvalidWallet, http.StatusBadRequest, codeInvalidWallet},
	{reward.ErrInvalidRewardType, http.StatusBadRequest, codeInvalidReward},
	{reward.ErrInvalidAmount, http.StatusBadRequest, codeInvalidReward},
	{reward.ErrInvalidUser, http.StatusBadRequest, codeInvalidReward},
	{chain.ErrTransferFailed, http.StatusBadGateway, codeTransferFailed},
	{chain.ErrOracleUnavailable, http.StatusServiceUnavailable, codeOracleUnavailable},
}

// statusForError maps an engine error to an HTTP status and error code
func statusForError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

func abortError(c *gin.Context, status int, code string, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"component", "api",
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal error"
	}
	abortError(c, status, code, msg)
}
