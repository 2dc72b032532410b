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

// Package api exposes the guild engine over a JSON HTTP API.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/blinklabs-io/guild"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const PathPrefix = "/api/v1"

type Server struct {
	engine      *guild.Engine
	logger      *slog.Logger
	router      *gin.Engine
	jwtSecret   []byte
	corsOrigins []string
}

type ServerOptionFunc func(*Server)

// WithLogger specifies the logger used for request logs
func WithLogger(logger *slog.Logger) ServerOptionFunc {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithJWTSecret specifies the HS256 key used to verify bearer tokens
func WithJWTSecret(secret []byte) ServerOptionFunc {
	return func(s *Server) {
		s.jwtSecret = secret
	}
}

// WithCORSOrigins specifies the origins allowed to make browser requests. An
// empty list disables CORS handling
func WithCORSOrigins(origins []string) ServerOptionFunc {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

func NewServer(engine *guild.Engine, opts ...ServerOptionFunc) (*Server, error) {
	if engine == nil {
		return nil, errors.New("no engine provided")
	}
	s := &Server{
		engine: engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.jwtSecret) == 0 {
		return nil, errors.New("no JWT secret configured")
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestLogger())
	if len(s.corsOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:  s.corsOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	s.attachRoutes()
	return s, nil
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) attachRoutes() {
	v1 := s.router.Group(PathPrefix)
	v1.GET("/health", s.health)

	v1.GET("/params", s.getParams)
	v1.GET("/upgrades", s.listUpgrades)
	v1.GET("/proposals", s.listProposals)
	v1.GET("/proposals/:id", s.getProposal)
	v1.GET("/proposals/:id/votes", s.listVotes)
	v1.GET("/proposals/:id/log", s.getLog)
	v1.GET("/proposals/:id/grant", s.getGrant)
	v1.POST("/proposals/:id/close", s.closeProposal)
	v1.GET("/grants", s.listGrants)

	v1.GET("/rewards/:user", s.rewardBalance)
	v1.GET("/rewards/:user/history", s.rewardHistory)
	v1.GET("/claims/:id", s.getClaim)

	v1.GET("/royalty/params", s.royaltyParams)
	v1.POST("/royalty/split", s.splitSale)

	secured := v1.Group("", s.requireAuth())
	secured.POST("/proposals", s.createProposal)
	secured.POST("/proposals/:id/votes", s.castVote)
	secured.POST("/proposals/:id/veto", s.vetoProposal)
	secured.POST("/rewards/claim", s.claimRewards)

	operator := secured.Group("", requireRole(RoleOperator))
	operator.POST("/proposals/:id/execute", s.markExecuted)
	operator.POST("/proposals/:id/grant", s.executeGrant)
	operator.POST("/proposals/:id/grant/retry", s.retryGrant)
	operator.POST("/proposals/:id/grant/release", s.releaseGrant)
	operator.POST("/rewards", s.accrueReward)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(
			"handled request",
			"component", "api",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
