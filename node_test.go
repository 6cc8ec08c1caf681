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

package superdao_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/superdao"
	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
	"github.com/blinklabs-io/superdao/dispatch"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

var (
	memberA  = account.Derive("A")
	memberB  = account.Derive("B")
	memberC  = account.Derive("C")
	flipper  = account.Derive("flipper")
	selFlip  = call.SelectorFor("flip")
	selJoin  = call.SelectorFor("join")
	newcomer = account.Derive("newcomer")
)

func newTestNode(
	t *testing.T,
	clock *superdao.ManualClock,
	opts ...superdao.ConfigOptionFunc,
) *superdao.Node {
	t.Helper()
	opts = append(
		[]superdao.ConfigOptionFunc{
			superdao.WithVoteThreshold(2),
			superdao.WithVotingPeriod(10),
			superdao.WithHeightSource(clock),
		},
		opts...,
	)
	n, err := superdao.New(superdao.NewConfig(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, n.Stop()) })
	ctx := context.Background()
	for _, m := range []account.ID{memberA, memberB, memberC} {
		require.NoError(t, n.RegisterMember(ctx, m))
	}
	return n
}

func TestNodeScenario(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := superdao.NewManualClock(100)
	n := newTestNode(t, clock)
	ctx := context.Background()
	flips := 0
	n.Registry().Register(flipper, selFlip, func(context.Context, dispatch.Invocation) error {
		flips++
		return nil
	})

	id, err := n.CreateProposal(ctx, memberA, call.Contract(call.ContractCall{
		Callee:   flipper,
		Selector: selFlip,
	}))
	require.NoError(t, err)
	prop, ok, err := n.Proposal(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, governance.BlockNumber(110), prop.VotingPeriodEnd)

	require.NoError(t, n.Vote(ctx, memberA, id, governance.Aye))
	require.NoError(t, n.Vote(ctx, memberB, id, governance.Aye))
	require.NoError(t, n.Vote(ctx, memberC, id, governance.Nay))
	votes, err := n.Votes(ctx, id)
	require.NoError(t, err)
	assert.Len(t, votes, 3)

	_, err = n.ResolveProposal(ctx, memberA, id)
	require.ErrorIs(t, err, governance.ErrNotYetExpired)

	assert.Equal(t, governance.BlockNumber(110), clock.Advance(10))
	res, err := n.ResolveProposal(ctx, memberA, id)
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.True(t, res.Dispatched)
	assert.Equal(t, 1, flips)

	_, err = n.ResolveProposal(ctx, memberA, id)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	ids, err := n.ActiveProposalIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNodeReentry(t *testing.T) {
	defer goleak.VerifyNone(t)
	for _, allow := range []bool{true, false} {
		clock := superdao.NewManualClock(0)
		n := newTestNode(t, clock, superdao.WithVotingPeriod(0))
		ctx := context.Background()
		n.Registry().Register(flipper, selJoin, func(ctx context.Context, inv dispatch.Invocation) error {
			// Calls back into the node while the resolution holds it
			return n.RegisterMember(ctx, newcomer)
		})
		id, err := n.CreateProposal(ctx, memberA, call.Contract(call.ContractCall{
			Callee:       flipper,
			Selector:     selJoin,
			AllowReentry: allow,
		}))
		require.NoError(t, err)
		require.NoError(t, n.Vote(ctx, memberA, id, governance.Aye))
		require.NoError(t, n.Vote(ctx, memberB, id, governance.Aye))
		res, err := n.ResolveProposal(ctx, memberB, id)
		isMember, memberErr := n.IsMember(ctx, newcomer)
		require.NoError(t, memberErr)
		if allow {
			require.NoError(t, err)
			assert.True(t, res.Dispatched)
			assert.True(t, isMember)
		} else {
			require.ErrorIs(t, err, governance.ErrDispatchFailed)
			require.ErrorIs(t, err, dispatch.ErrReentrancyDenied)
			assert.False(t, isMember)
		}
	}
}

func TestNodeStaleFrameWaitsForResolve(t *testing.T) {
	defer goleak.VerifyNone(t)
	n := newTestNode(t, superdao.NewManualClock(0), superdao.WithVotingPeriod(0))
	ctx := context.Background()
	frames := make(chan context.Context, 2)
	release := make(chan struct{}, 1)
	n.Registry().Register(flipper, selFlip, func(ctx context.Context, _ dispatch.Invocation) error {
		frames <- ctx
		<-release
		return nil
	})
	propose := func() governance.ProposalID {
		id, err := n.CreateProposal(ctx, memberA, call.Contract(call.ContractCall{
			Callee:       flipper,
			Selector:     selFlip,
			AllowReentry: true,
		}))
		require.NoError(t, err)
		require.NoError(t, n.Vote(ctx, memberA, id, governance.Aye))
		require.NoError(t, n.Vote(ctx, memberB, id, governance.Aye))
		return id
	}

	// Keep a re-entrant frame past the end of its dispatch
	release <- struct{}{}
	_, err := n.ResolveProposal(ctx, memberB, propose())
	require.NoError(t, err)
	stale := testutil.RequireReceive(t, frames, testutil.DefaultTimeout, "first dispatch")

	id := propose()
	resolved := make(chan error, 1)
	go func() {
		_, err := n.ResolveProposal(ctx, memberB, id)
		resolved <- err
	}()
	testutil.RequireReceive(t, frames, testutil.DefaultTimeout, "second dispatch")

	joined := make(chan error, 1)
	go func() {
		joined <- n.RegisterMember(stale, newcomer)
	}()
	testutil.RequireNoReceive(t, joined, 50*time.Millisecond, "stale frame ran while the node was held")

	release <- struct{}{}
	require.NoError(t, testutil.RequireReceive(t, resolved, testutil.DefaultTimeout, "resolve"))
	require.NoError(t, testutil.RequireReceive(t, joined, testutil.DefaultTimeout, "register"))
	isMember, err := n.IsMember(ctx, newcomer)
	require.NoError(t, err)
	assert.True(t, isMember)
}

type recordingSender struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *recordingSender) SendMessage(_ context.Context, _, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestNodeChainCalls(t *testing.T) {
	defer goleak.VerifyNone(t)
	sender := &recordingSender{}
	n := newTestNode(
		t,
		superdao.NewManualClock(0),
		superdao.WithVotingPeriod(0),
		superdao.WithMessageSender(sender),
	)
	ctx := context.Background()

	// A local message runs the embedded contract call
	flips := 0
	n.Registry().Register(flipper, selFlip, func(context.Context, dispatch.Invocation) error {
		flips++
		return nil
	})
	inner, err := call.Encode(call.Contract(call.ContractCall{Callee: flipper, Selector: selFlip}))
	require.NoError(t, err)
	local, err := call.NewChainCall(
		crossmsg.Here(),
		crossmsg.NewBuilder().
			Transact(crossmsg.OriginNative, crossmsg.NewWeight(1, 1), inner).
			Build(),
	)
	require.NoError(t, err)
	remote, err := call.NewChainCall(
		crossmsg.NewLocation(1, crossmsg.Parachain(1000)),
		crossmsg.NewBuilder().ClearOrigin().Build(),
	)
	require.NoError(t, err)

	for _, c := range []call.ChainCall{local, remote} {
		id, err := n.CreateProposal(ctx, memberA, call.Chain(c))
		require.NoError(t, err)
		require.NoError(t, n.Vote(ctx, memberA, id, governance.Aye))
		require.NoError(t, n.Vote(ctx, memberC, id, governance.Aye))
		_, err = n.ResolveProposal(ctx, memberA, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, flips)
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, remote.EncodedMessage(), sender.msgs[0])
}

func TestNodeRemoteCallWithoutTransport(t *testing.T) {
	defer goleak.VerifyNone(t)
	n := newTestNode(t, superdao.NewManualClock(0), superdao.WithVotingPeriod(0))
	ctx := context.Background()
	remote, err := call.NewChainCall(crossmsg.Parent(), crossmsg.NewMessage(crossmsg.ClearOrigin()))
	require.NoError(t, err)
	id, err := n.CreateProposal(ctx, memberA, call.Chain(remote))
	require.NoError(t, err)
	require.NoError(t, n.Vote(ctx, memberA, id, governance.Aye))
	require.NoError(t, n.Vote(ctx, memberB, id, governance.Aye))
	_, err = n.ResolveProposal(ctx, memberA, id)
	require.ErrorIs(t, err, dispatch.ErrNoTransport)
	_, ok, err := n.Proposal(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNodeStorePlugin(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()
	remote, err := call.NewChainCall(crossmsg.Parent(), crossmsg.NewMessage(crossmsg.ClearOrigin()))
	require.NoError(t, err)

	n, err := superdao.New(superdao.NewConfig(
		superdao.WithVoteThreshold(1),
		superdao.WithStorePlugin("badger"),
		superdao.WithDataDir(dataDir),
	))
	require.NoError(t, err)
	require.NoError(t, n.RegisterMember(ctx, memberA))
	resolved, err := n.CreateProposal(ctx, memberA, call.Chain(remote))
	require.NoError(t, err)
	require.NoError(t, n.Vote(ctx, memberA, resolved, governance.Aye))
	_, err = n.ResolveProposal(ctx, memberA, resolved)
	require.NoError(t, err)
	pending, err := n.CreateProposal(ctx, memberA, call.Chain(remote))
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())

	n, err = superdao.New(superdao.NewConfig(
		superdao.WithVoteThreshold(1),
		superdao.WithStorePlugin("badger"),
		superdao.WithDataDir(dataDir),
	))
	require.NoError(t, err)
	defer n.Stop() //nolint:errcheck
	isMember, err := n.IsMember(ctx, memberA)
	require.NoError(t, err)
	assert.True(t, isMember)
	ids, err := n.ActiveProposalIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []governance.ProposalID{pending}, ids)
	msgs, err := n.Database().PendingMessages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, remote.EncodedDestination(), msgs[0].Destination)
}

func TestNodeNomination(t *testing.T) {
	defer goleak.VerifyNone(t)
	sender := &recordingSender{}
	n := newTestNode(
		t,
		superdao.NewManualClock(0),
		superdao.WithVotingPeriod(0),
		superdao.WithMessageSender(sender),
	)
	ctx := context.Background()
	pool := n.Nomination()
	id, err := pool.SuggestValidators(ctx, memberA, []byte{0x01, 0x02}, 5, 6, 7)
	require.NoError(t, err)
	require.NoError(t, pool.VoteValidators(ctx, memberA, id, governance.Aye))
	require.NoError(t, pool.VoteValidators(ctx, memberB, id, governance.Aye))
	res, err := pool.EnactValidators(ctx, memberC, id)
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
	require.Len(t, sender.msgs, 1)
}

func TestNodeConcurrentVotes(t *testing.T) {
	defer goleak.VerifyNone(t)
	n := newTestNode(t, superdao.NewManualClock(0))
	ctx := context.Background()
	id, err := n.CreateProposal(ctx, memberA, call.Contract(call.ContractCall{Callee: flipper, Selector: selFlip}))
	require.NoError(t, err)
	var eg errgroup.Group
	for range 10 {
		for _, m := range []account.ID{memberA, memberB, memberC} {
			eg.Go(func() error {
				return n.Vote(ctx, m, id, governance.Aye)
			})
		}
	}
	require.NoError(t, eg.Wait())
	votes, err := n.Votes(ctx, id)
	require.NoError(t, err)
	assert.Len(t, votes, 3)
}

func TestNodeSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	origProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(origProvider)

	n := newTestNode(t, superdao.NewManualClock(0))
	_, err := n.CreateProposal(context.Background(), account.Derive("outsider"), call.Contract(call.ContractCall{Callee: flipper}))
	require.ErrorIs(t, err, governance.ErrNotMember)

	var names []string
	var failed int
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
		if span.Name() == "superdao.Node.CreateProposal" {
			failed++
			assert.Equal(t, "Error", span.Status().Code.String())
		}
	}
	assert.Contains(t, names, "superdao.Node.RegisterMember")
	assert.Equal(t, 1, failed)
}

func TestNodeConfigValidation(t *testing.T) {
	_, err := superdao.New(superdao.NewConfig(
		superdao.WithStore(governance.NewMemoryStore()),
		superdao.WithStorePlugin("badger"),
	))
	require.Error(t, err)
	_, err = superdao.New(superdao.NewConfig(
		superdao.WithDeadlinePolicy(governance.DeadlinePolicy(9)),
	))
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
}

func TestManualClock(t *testing.T) {
	clock := superdao.NewManualClock(5)
	assert.Equal(t, governance.BlockNumber(5), clock.Height())
	assert.Equal(t, governance.BlockNumber(8), clock.Advance(3))
	require.ErrorIs(t, clock.Set(7), superdao.ErrHeightRegression)
	assert.Equal(t, governance.BlockNumber(8), clock.Height())
	require.NoError(t, clock.Set(8))
	require.NoError(t, clock.Set(math.MaxUint32-1))
	assert.Equal(t, governance.BlockNumber(math.MaxUint32), clock.Advance(10))
	assert.Equal(t, governance.BlockNumber(math.MaxUint32), clock.Height())
}
