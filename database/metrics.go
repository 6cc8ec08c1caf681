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

package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	commits       prometheus.Counter
	rollbacks     prometheus.Counter
	outboxQueued  prometheus.Counter
	outboxAcked   prometheus.Counter
	outboxPending prometheus.Gauge
}

func (d *Database) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	d.metrics.commits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "superdao_database_commits_total",
		Help: "total governance state transactions committed",
	})
	d.metrics.rollbacks = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "superdao_database_rollbacks_total",
		Help: "total governance state transactions rolled back",
	})
	d.metrics.outboxQueued = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "superdao_outbox_queued_total",
		Help: "total outbound messages queued",
	})
	d.metrics.outboxAcked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "superdao_outbox_acked_total",
		Help: "total outbound messages acknowledged by a relayer",
	})
	d.metrics.outboxPending = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "superdao_outbox_pending",
		Help: "outbound messages waiting for a relayer",
	})
}
