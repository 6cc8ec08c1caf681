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


package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/blinklabs-io/superdao"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// openNode builds a node from the CLI config, persisting state with the
// configured store plugin
func openNode(
	cfg *config.Config,
	logger *slog.Logger,
	clock *superdao.ManualClock,
) (*superdao.Node, error) {
	govCfg, err := cfg.Governance()
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = superdao.NewManualClock(
			governance.BlockNumber(cfg.StartHeight),
		)
	}
	n, err := superdao.New(
		superdao.NewConfig(
			superdao.WithLogger(logger),
			superdao.WithPrometheusRegistry(prometheus.DefaultRegisterer),
			superdao.WithStorePlugin(cfg.StorePlugin),
			superdao.WithDataDir(cfg.DataDir),
			superdao.WithVoteThreshold(govCfg.VoteThreshold),
			superdao.WithVotingPeriod(govCfg.VotingPeriod),
			superdao.WithDeadlinePolicy(govCfg.DeadlinePolicy),
			superdao.WithHeightSource(clock),
			superdao.WithShutdownTimeout(shutdownTimeout),
			superdao.WithTracing(cfg.Tracing),
			superdao.WithTracingStdout(cfg.TracingStdout),
		),
	)
	if err != nil {
		return nil, err
	}
	if err := resumeClock(n, clock); err != nil {
		_ = n.Stop()
		return nil, err
	}
	return n, nil
}

// resumeClock moves the clock up to the last height recorded in the store,
// so persisted deadlines are never judged against an earlier height
func resumeClock(n *superdao.Node, clock *superdao.ManualClock) error {
	db := n.Database()
	if db == nil {
		return nil
	}
	last, err := db.LastHeight()
	if err != nil {
		return fmt.Errorf("load last height: %w", err)
	}
	if last <= clock.Height() {
		return nil
	}
	return clock.Set(last)
}

// startMetrics serves the default prometheus registry when a metrics port is
// configured. The returned server is nil otherwise
func startMetrics(cfg *config.Config, logger *slog.Logger) *http.Server {
	if cfg.MetricsPort == 0 {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+addr,
		"component", programName,
	)
	metricsServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", programName,
			)
		}
	}()
	return metricsServer
}
