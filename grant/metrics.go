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

package grant

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type executorMetrics struct {
	executions       *prometheus.CounterVec
	transferDuration prometheus.Histogram
}

func newExecutorMetrics(reg prometheus.Registerer) *executorMetrics {
	factory := promauto.With(reg)
	return &executorMetrics{
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guild_grant_executions_total",
				Help: "Grant transfer attempts by result",
			},
			[]string{"result"},
		),
		transferDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guild_grant_transfer_duration_seconds",
				Help:    "Time spent submitting grant transfers",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}
