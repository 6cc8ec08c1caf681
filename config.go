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

package superdao

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/superdao/dispatch"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	store           governance.Store
	messageSender   dispatch.MessageSender
	heightSource    HeightSource
	valueTransfer   dispatch.ValueTransferFunc
	dataDir         string
	storePlugin     string
	governance      governance.Config
	shutdownTimeout time.Duration
	tracing         bool
	tracingStdout   bool
}

func (c *Config) validate() error {
	if c.store != nil && c.storePlugin != "" {
		return errors.New("a store and a store plugin are mutually exclusive")
	}
	return c.governance.Validate()
}

type ConfigOptionFunc func(*Config)

func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(
	registry prometheus.Registerer,
) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithVoteThreshold specifies the number of aye votes needed to approve a proposal
func WithVoteThreshold(threshold uint8) ConfigOptionFunc {
	return func(c *Config) {
		c.governance.VoteThreshold = threshold
	}
}

// WithVotingPeriod specifies how many blocks a proposal stays open for voting
func WithVotingPeriod(period governance.BlockNumber) ConfigOptionFunc {
	return func(c *Config) {
		c.governance.VotingPeriod = period
	}
}

// WithDeadlinePolicy specifies when a proposal becomes resolvable relative to
// the end of its voting period
func WithDeadlinePolicy(policy governance.DeadlinePolicy) ConfigOptionFunc {
	return func(c *Config) {
		c.governance.DeadlinePolicy = policy
	}
}

// WithStorePlugin persists state with the named store plugin. Remote chain
// calls are queued in the database outbox
func WithStorePlugin(storePlugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.storePlugin = storePlugin
	}
}

// WithDataDir specifies the data directory for the store plugin
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithStore specifies a governance.Store to use instead of a store plugin
func WithStore(store governance.Store) ConfigOptionFunc {
	return func(c *Config) {
		c.store = store
	}
}

// WithMessageSender specifies the transport for chain calls to remote
// destinations. It takes precedence over the database outbox
func WithMessageSender(sender dispatch.MessageSender) ConfigOptionFunc {
	return func(c *Config) {
		c.messageSender = sender
	}
}

// WithHeightSource specifies where the current block height comes from. The
// default is a ManualClock starting at zero
func WithHeightSource(heightSource HeightSource) ConfigOptionFunc {
	return func(c *Config) {
		c.heightSource = heightSource
	}
}

// WithValueTransfer specifies how value attached to contract calls is moved
func WithValueTransfer(transferFunc dispatch.ValueTransferFunc) ConfigOptionFunc {
	return func(c *Config) {
		c.valueTransfer = transferFunc
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
