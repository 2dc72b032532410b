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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	proposalsCreated *prometheus.CounterVec
	proposalsClosed  *prometheus.CounterVec
	proposalsVetoed  prometheus.Counter
	proposalsExec    *prometheus.CounterVec
	votesCast        *prometheus.CounterVec
	voteWeight       *prometheus.CounterVec
	oracleErrors     prometheus.Counter
}

func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	// promauto.With(nil) creates unregistered collectors
	factory := promauto.With(reg)
	return &serviceMetrics{
		proposalsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_governance_proposals_created_total",
				Help: "Proposals created by type",
			},
			[]string{"type"},
		),
		proposalsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_governance_proposals_closed_total",
				Help: "Proposals closed by outcome",
			},
			[]string{"status"},
		),
		proposalsVetoed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "guild_governance_proposals_vetoed_total",
				Help: "Proposals vetoed",
			},
		),
		proposalsExec: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_governance_proposals_executed_total",
				Help: "Non-transfer proposals executed by type",
			},
			[]string{"type"},
		),
		votesCast: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_governance_votes_total",
				Help: "Votes cast by choice",
			},
			[]string{"choice"},
		),
		voteWeight: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_governance_vote_weight_total",
				Help: "Token weight of votes cast by choice",
			},
			[]string{"choice"},
		),
		oracleErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "guild_governance_oracle_errors_total",
				Help: "Failed balance oracle calls",
			},
		),
	}
}
