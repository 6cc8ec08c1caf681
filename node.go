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

// Package superdao hosts a threshold-governed proposal engine. A Node
// serializes every operation, supplies block heights and dispatches approved
// calls to in-process contracts or cross-chain destinations.
package superdao

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/database"
	"github.com/blinklabs-io/superdao/dispatch"
	"github.com/blinklabs-io/superdao/event"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/nomination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Node is the host for a governance engine. Public operations are strictly
// serialized. A contract dispatched by ResolveProposal may call back into the
// node with the context it was given, which only succeeds when the call was
// marked as allowing re-entry.
type Node struct {
	config        Config
	db            *database.Database
	engine        *governance.Engine
	registry      *dispatch.Registry
	nomination    *nomination.Pool
	eventBus      *event.EventBus
	heights       HeightSource
	tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
	mu            sync.Mutex
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		heights:  cfg.heightSource,
		tracer:   otel.Tracer(tracerName),
	}
	if n.heights == nil {
		n.heights = NewManualClock(0)
	}
	if cfg.tracing {
		if err := n.setupTracing(); err != nil {
			return nil, err
		}
	}
	store := cfg.store
	sender := cfg.messageSender
	if cfg.storePlugin != "" {
		db, err := database.New(&database.Config{
			Logger:       cfg.logger,
			PromRegistry: cfg.promRegistry,
			DataDir:      cfg.dataDir,
			StorePlugin:  cfg.storePlugin,
		})
		if err != nil {
			_ = n.shutdown()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		n.db = db
		store = db
		if sender == nil {
			sender = db
		}
	}
	n.registry = dispatch.NewRegistry(
		dispatch.WithRegistryLogger(cfg.logger),
		dispatch.WithValueTransfer(cfg.valueTransfer),
	)
	adapterOpts := []dispatch.AdapterOptionFunc{
		dispatch.WithLogger(cfg.logger),
		dispatch.WithContractInvoker(n.registry),
		dispatch.WithMessageExecutor(
			dispatch.NewLocalExecutor(n.registry, cfg.logger),
		),
	}
	if sender != nil {
		adapterOpts = append(adapterOpts, dispatch.WithMessageSender(sender))
	}
	engine, err := governance.NewEngine(governance.EngineConfig{
		Config:       cfg.governance,
		Store:        store,
		Dispatcher:   dispatch.NewAdapter(adapterOpts...),
		PromRegistry: cfg.promRegistry,
		Logger:       cfg.logger,
		EventBus:     n.eventBus,
	})
	if err != nil {
		_ = n.shutdown()
		return nil, err
	}
	n.engine = engine
	n.nomination = nomination.NewPool(
		n,
		nomination.WithLogger(cfg.logger),
		nomination.WithEventBus(n.eventBus),
	)
	cfg.logger.Info(
		"node started",
		"component", "node",
		"vote_threshold", cfg.governance.VoteThreshold,
		"voting_period", cfg.governance.VotingPeriod,
		"deadline_policy", cfg.governance.DeadlinePolicy.String(),
		"store", n.storeName(),
	)
	return n, nil
}

func (n *Node) storeName() string {
	switch {
	case n.config.storePlugin != "":
		return n.config.storePlugin
	case n.config.store != nil:
		return "custom"
	default:
		return "memory"
	}
}

// Registry returns the table of in-process contracts reachable by contract
// calls
func (n *Node) Registry() *dispatch.Registry {
	return n.registry
}

// Nomination returns the validator nomination forwarder running on this node
func (n *Node) Nomination() *nomination.Pool {
	return n.nomination
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Database returns the backing database, or nil when no store plugin is
// configured
func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) Height() governance.BlockNumber {
	return n.heights.Height()
}

func (n *Node) VoteThreshold() uint8 {
	return n.engine.VoteThreshold()
}

func (n *Node) VotingPeriod() governance.BlockNumber {
	return n.engine.VotingPeriod()
}

func (n *Node) RegisterMember(ctx context.Context, caller account.ID) error {
	return n.do(ctx, "RegisterMember", []attribute.KeyValue{
		attribute.String("caller", caller.String()),
	}, func() error {
		return n.engine.RegisterMember(caller)
	})
}

func (n *Node) DeregisterMember(ctx context.Context, caller account.ID) error {
	return n.do(ctx, "DeregisterMember", []attribute.KeyValue{
		attribute.String("caller", caller.String()),
	}, func() error {
		return n.engine.DeregisterMember(caller)
	})
}

func (n *Node) IsMember(ctx context.Context, caller account.ID) (bool, error) {
	var ret bool
	err := n.do(ctx, "IsMember", nil, func() error {
		var err error
		ret, err = n.engine.IsMember(caller)
		return err
	})
	return ret, err
}

func (n *Node) Members(ctx context.Context) ([]account.ID, error) {
	var ret []account.ID
	err := n.do(ctx, "Members", nil, func() error {
		var err error
		ret, err = n.engine.Members()
		return err
	})
	return ret, err
}

// CreateProposal opens a proposal at the current height
func (n *Node) CreateProposal(
	ctx context.Context,
	caller account.ID,
	c call.Call,
) (governance.ProposalID, error) {
	var id governance.ProposalID
	err := n.do(ctx, "CreateProposal", []attribute.KeyValue{
		attribute.String("caller", caller.String()),
		attribute.String("kind", c.Kind.String()),
	}, func() error {
		height := n.heights.Height()
		var err error
		id, err = n.engine.CreateProposal(caller, height, c)
		if err != nil {
			return err
		}
		n.recordHeight(height)
		return nil
	})
	return id, err
}

func (n *Node) Vote(
	ctx context.Context,
	caller account.ID,
	id governance.ProposalID,
	vote governance.Vote,
) error {
	return n.do(ctx, "Vote", []attribute.KeyValue{
		attribute.String("caller", caller.String()),
		attribute.Int64("proposal_id", int64(id)),
		attribute.String("vote", vote.String()),
	}, func() error {
		return n.engine.Vote(caller, id, vote)
	})
}

// ResolveProposal resolves a proposal at the current height. An approved
// call is dispatched before this returns, while the node is still held
func (n *Node) ResolveProposal(
	ctx context.Context,
	caller account.ID,
	id governance.ProposalID,
) (*governance.Resolution, error) {
	var res *governance.Resolution
	err := n.doCtx(ctx, "ResolveProposal", []attribute.KeyValue{
		attribute.String("caller", caller.String()),
		attribute.Int64("proposal_id", int64(id)),
	}, func(ctx context.Context) error {
		height := n.heights.Height()
		var err error
		res, err = n.engine.Resolve(ctx, caller, height, id)
		if res != nil {
			n.recordHeight(height)
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Bool("approved", res.Approved),
				attribute.Int("ayes", res.Ayes),
			)
		}
		return err
	})
	return res, err
}

func (n *Node) Proposal(
	ctx context.Context,
	id governance.ProposalID,
) (governance.Proposal, bool, error) {
	var prop governance.Proposal
	var ok bool
	err := n.do(ctx, "Proposal", nil, func() error {
		var err error
		prop, ok, err = n.engine.Proposal(id)
		return err
	})
	return prop, ok, err
}

func (n *Node) Proposals(ctx context.Context) ([]governance.ProposalEntry, error) {
	var ret []governance.ProposalEntry
	err := n.do(ctx, "Proposals", nil, func() error {
		var err error
		ret, err = n.engine.Proposals()
		return err
	})
	return ret, err
}

func (n *Node) ActiveProposalIDs(ctx context.Context) ([]governance.ProposalID, error) {
	var ret []governance.ProposalID
	err := n.do(ctx, "ActiveProposalIDs", nil, func() error {
		var err error
		ret, err = n.engine.ActiveProposalIDs()
		return err
	})
	return ret, err
}

func (n *Node) Votes(
	ctx context.Context,
	id governance.ProposalID,
) ([]governance.Ballot, error) {
	var ret []governance.Ballot
	err := n.do(ctx, "Votes", nil, func() error {
		var err error
		ret, err = n.engine.Votes(id)
		return err
	})
	return ret, err
}

func (n *Node) do(
	ctx context.Context,
	name string,
	attrs []attribute.KeyValue,
	fn func() error,
) error {
	return n.doCtx(ctx, name, attrs, func(context.Context) error {
		return fn()
	})
}

// heldNode marks a context as running under an operation that holds n.mu.
// It stops counting once that operation returns.
type heldNode struct {
	node *Node
	live atomic.Bool
}

type heldNodeContextKey struct{}

// reentrant reports whether ctx runs under an in-flight operation of n. A
// live hold is only usable from inside a contract call frame that allows
// re-entry; anything else would deadlock on n.mu.
func (n *Node) reentrant(ctx context.Context) (bool, error) {
	held, ok := ctx.Value(heldNodeContextKey{}).(*heldNode)
	if !ok || held.node != n || !held.live.Load() {
		return false, nil
	}
	inFrame, err := dispatch.CheckReentry(ctx)
	if err != nil {
		return true, err
	}
	if !inFrame {
		return true, dispatch.ErrReentrancyDenied
	}
	return true, nil
}

// doCtx runs fn inside a span while holding the node, unless ctx belongs to
// a contract call dispatched by an operation that still holds it and the
// call is allowed to re-enter
func (n *Node) doCtx(
	ctx context.Context,
	name string,
	attrs []attribute.KeyValue,
	fn func(context.Context) error,
) error {
	ctx, span := n.tracer.Start(
		ctx,
		"superdao.Node."+name,
		trace.WithAttributes(attrs...),
	)
	defer span.End()
	reentrant, err := n.reentrant(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	if !reentrant {
		n.mu.Lock()
		defer n.mu.Unlock()
		held := &heldNode{node: n}
		held.live.Store(true)
		defer held.live.Store(false)
		ctx = context.WithValue(ctx, heldNodeContextKey{}, held)
	}
	span.SetAttributes(attribute.Int64("height", int64(n.heights.Height())))
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// recordHeight persists the highest height an operation has used, so a
// restarted host can resume its clock from there
func (n *Node) recordHeight(height governance.BlockNumber) {
	if n.db == nil {
		return
	}
	if err := n.db.RecordHeight(height); err != nil {
		n.config.logger.Warn(
			"failed to record height: "+err.Error(),
			"component", "node",
			"height", height,
		)
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Wait for any in-flight operation
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	n.config.logger.Debug("starting graceful shutdown", "component", "node")
	if n.db != nil {
		if recErr := n.db.RecordHeight(n.heights.Height()); recErr != nil {
			err = errors.Join(err, fmt.Errorf("record height: %w", recErr))
		}
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil
	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	return err
}
