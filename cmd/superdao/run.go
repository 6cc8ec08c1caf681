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
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/superdao"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/internal/config"
	"github.com/blinklabs-io/superdao/internal/scenario"
	"github.com/spf13/cobra"
)

func runRun(ctx context.Context, args []string, cfg *config.Config) {
	logger := commonRun()
	sc, err := scenario.Load(args[0])
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	metricsServer := startMetrics(cfg, logger)
	clock := superdao.NewManualClock(governance.BlockNumber(cfg.StartHeight))
	n, err := openNode(cfg, logger, clock)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	runner := scenario.NewRunner(n, clock, os.Stdout, logger)
	_, runErr := runner.Run(signalCtx, sc)
	if err := n.Stop(); err != nil {
		logger.Error(
			"failed to stop node: "+err.Error(),
			"component", programName,
		)
	}
	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	if runErr != nil {
		slog.Error(runErr.Error())
		os.Exit(1)
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scripted sequence of governance calls",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runRun(cmd.Context(), args, configFromCommand(cmd))
		},
	}
	return cmd
}
