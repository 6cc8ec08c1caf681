// Copyright 2026 Blink Labs Software
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

type engineMetrics struct {
	proposalsCreated prometheus.Counter
	votesCast        prometheus.Counter
	resolutions      *prometheus.CounterVec
	activeProposals  prometheus.Gauge
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &engineMetrics{
		proposalsCreated: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "superdao_governance_proposals_created_total",
			Help: "total proposals created",
		}),
		votesCast: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "superdao_governance_votes_cast_total",
			Help: "total votes cast, including replaced votes",
		}),
		resolutions: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superdao_governance_resolutions_total",
				Help: "resolved proposals by outcome",
			},
			[]string{"outcome"},
		),
		activeProposals: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "superdao_governance_active_proposals",
			Help: "current count of active proposals",
		}),
	}
}
