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

package reward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	accrued       *prometheus.CounterVec
	truncated     *prometheus.CounterVec
	capRejections *prometheus.CounterVec
	claims        *prometheus.CounterVec
	claimed       prometheus.Counter
}

func newLedgerMetrics(reg prometheus.Registerer) *ledgerMetrics {
	factory := promauto.With(reg)
	return &ledgerMetrics{
		accrued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_rewards_accrued_total",
				Help: "Reward amount accrued by type",
			},
			[]string{"type"},
		),
		truncated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_rewards_truncated_total",
				Help: "Accruals truncated by a daily cap",
			},
			[]string{"type"},
		),
		capRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_rewards_cap_rejections_total",
				Help: "Accruals rejected because the daily cap was already reached",
			},
			[]string{"category"},
		),
		claims: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_reward_claims_total",
				Help: "Reward claims by result",
			},
			[]string{"result"},
		),
		claimed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "guild_rewards_claimed_total",
				Help: "Reward amount paid out",
			},
		),
	}
}
