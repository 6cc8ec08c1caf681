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

package governance_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
	"github.com/blinklabs-io/superdao/event"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	memberA  = account.Derive("A")
	memberB  = account.Derive("B")
	memberC  = account.Derive("C")
	outsider = account.Derive("outsider")
)

type recordingDispatcher struct {
	calls []call.Call
	err   error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, c call.Call) error {
	r.calls = append(r.calls, c)
	return r.err
}

func contractCallTo(name string) call.Call {
	return call.Contract(call.ContractCall{
		Callee:       account.Derive(name),
		Selector:     call.SelectorFor("flip"),
		Input:        []byte{0x01},
		RefTimeLimit: 1000,
	})
}

func newTestEngine(
	t *testing.T,
	cfg governance.Config,
	dispatcher governance.Dispatcher,
	members ...account.ID,
) *governance.Engine {
	t.Helper()
	e, err := governance.NewEngine(governance.EngineConfig{
		Config:     cfg,
		Dispatcher: dispatcher,
	})
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, e.RegisterMember(m))
	}
	return e
}

func TestScenarioThresholdTwo(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestEngine(
		t,
		governance.Config{VoteThreshold: 2, VotingPeriod: 10},
		d,
		memberA, memberB, memberC,
	)
	c := contractCallTo("X")
	id, err := e.CreateProposal(memberA, 0, c)
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))
	require.NoError(t, e.Vote(memberB, id, governance.Aye))

	res, err := e.Resolve(context.Background(), memberC, 10, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Ayes)
	assert.True(t, res.Approved)
	assert.True(t, res.Dispatched)
	require.Len(t, d.calls, 1)
	assert.True(t, c.Equal(d.calls[0]))

	_, ok, err := e.Proposal(id)
	require.NoError(t, err)
	assert.False(t, ok)
	ids, err := e.ActiveProposalIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
	votes, err := e.Votes(id)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestMembershipIdempotence(t *testing.T) {
	e := newTestEngine(t, governance.Config{}, &recordingDispatcher{}, memberA)
	require.ErrorIs(t, e.RegisterMember(memberA), governance.ErrAlreadyMember)
	require.NoError(t, e.DeregisterMember(outsider))
	require.NoError(t, e.RegisterMember(memberB))
	members, err := e.Members()
	require.NoError(t, err)
	assert.Equal(t, []account.ID{memberA, memberB}, members)

	require.NoError(t, e.DeregisterMember(memberA))
	ok, err := e.IsMember(memberA)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, e.DeregisterMember(memberA))
	require.NoError(t, e.RegisterMember(memberA))
	members, err = e.Members()
	require.NoError(t, err)
	assert.Equal(t, []account.ID{memberB, memberA}, members)
}

func TestNonMemberRejected(t *testing.T) {
	e := newTestEngine(t, governance.Config{VotingPeriod: 5}, &recordingDispatcher{}, memberA)
	_, err := e.CreateProposal(outsider, 0, contractCallTo("X"))
	require.ErrorIs(t, err, governance.ErrNotMember)
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	require.ErrorIs(t, e.Vote(outsider, id, governance.Aye), governance.ErrNotMember)
	votes, err := e.Votes(id)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestCreateProposalRejectsInvalidCall(t *testing.T) {
	e := newTestEngine(t, governance.Config{}, &recordingDispatcher{}, memberA)
	_, err := e.CreateProposal(memberA, 0, call.Call{Kind: call.KindChain})
	require.ErrorIs(t, err, governance.ErrInvalidCall)
	ids, err := e.ActiveProposalIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
	// No id was consumed by the failed attempt
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(0), id)
}

func TestVoteReplaceSemantics(t *testing.T) {
	e := newTestEngine(t, governance.Config{VotingPeriod: 1}, &recordingDispatcher{}, memberA, memberB)
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))
	require.NoError(t, e.Vote(memberB, id, governance.Aye))
	require.NoError(t, e.Vote(memberA, id, governance.Nay))
	votes, err := e.Votes(id)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, memberA, votes[0].Member)
	assert.Equal(t, governance.Nay, votes[0].Vote)
	assert.Equal(t, governance.Aye, votes[1].Vote)
	ayes, err := e.CountAyes(id)
	require.NoError(t, err)
	assert.Equal(t, 1, ayes)
}

func TestVoteErrors(t *testing.T) {
	e := newTestEngine(t, governance.Config{}, &recordingDispatcher{}, memberA)
	require.ErrorIs(t, e.Vote(memberA, 42, governance.Aye), governance.ErrProposalNotFound)
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	require.ErrorIs(t, e.Vote(memberA, id, governance.Vote(9)), governance.ErrInvalidVote)
}

func TestResolutionSingleShot(t *testing.T) {
	e := newTestEngine(t, governance.Config{}, &recordingDispatcher{}, memberA)
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	_, err = e.Resolve(context.Background(), memberA, 0, id)
	require.NoError(t, err)
	_, err = e.Resolve(context.Background(), memberA, 0, id)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
}

func TestThresholdBoundary(t *testing.T) {
	testDefs := []struct {
		name       string
		voters     []account.ID
		dispatched bool
	}{
		{name: "one aye", voters: []account.ID{memberA}},
		{name: "two ayes", voters: []account.ID{memberA, memberB}, dispatched: true},
		{name: "three ayes", voters: []account.ID{memberA, memberB, memberC}, dispatched: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			e := newTestEngine(
				t,
				governance.Config{VoteThreshold: 2, VotingPeriod: 10},
				d,
				memberA, memberB, memberC,
			)
			id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
			require.NoError(t, err)
			for _, v := range testDef.voters {
				require.NoError(t, e.Vote(v, id, governance.Aye))
			}
			res, err := e.Resolve(context.Background(), memberA, 10, id)
			require.NoError(t, err)
			assert.Equal(t, testDef.dispatched, res.Approved)
			assert.Equal(t, testDef.dispatched, res.Dispatched)
			if testDef.dispatched {
				assert.Len(t, d.calls, 1)
			} else {
				assert.Empty(t, d.calls)
			}
			_, ok, err := e.Proposal(id)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNaysDoNotShortCircuit(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestEngine(
		t,
		governance.Config{VoteThreshold: 1, VotingPeriod: 10},
		d,
		memberA, memberB, memberC,
	)
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))
	require.NoError(t, e.Vote(memberB, id, governance.Nay))
	require.NoError(t, e.Vote(memberC, id, governance.Nay))
	res, err := e.Resolve(context.Background(), memberA, 10, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Nays)
	assert.True(t, res.Dispatched)
}

func TestDeadlineGating(t *testing.T) {
	testDefs := []struct {
		name    string
		policy  governance.DeadlinePolicy
		height  governance.BlockNumber
		wantErr error
	}{
		{name: "after expiry early", policy: governance.DeadlineAfterExpiry, height: 9, wantErr: governance.ErrNotYetExpired},
		{name: "after expiry at end", policy: governance.DeadlineAfterExpiry, height: 10},
		{name: "after expiry late", policy: governance.DeadlineAfterExpiry, height: 500},
		{name: "before expiry early", policy: governance.DeadlineBeforeExpiry, height: 0},
		{name: "before expiry at end", policy: governance.DeadlineBeforeExpiry, height: 10},
		{name: "before expiry late", policy: governance.DeadlineBeforeExpiry, height: 11, wantErr: governance.ErrVotingClosed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			e := newTestEngine(
				t,
				governance.Config{VotingPeriod: 10, DeadlinePolicy: testDef.policy},
				&recordingDispatcher{},
				memberA,
			)
			id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
			require.NoError(t, err)
			_, err = e.Resolve(context.Background(), memberA, testDef.height, id)
			if testDef.wantErr != nil {
				require.ErrorIs(t, err, testDef.wantErr)
				// Proposal is untouched by a gated resolve
				_, ok, err := e.Proposal(id)
				require.NoError(t, err)
				assert.True(t, ok)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSaturatingDeadline(t *testing.T) {
	e := newTestEngine(t, governance.Config{VotingPeriod: 100}, &recordingDispatcher{}, memberA)
	id, err := e.CreateProposal(memberA, math.MaxUint32-5, contractCallTo("X"))
	require.NoError(t, err)
	prop, ok, err := e.Proposal(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, governance.BlockNumber(math.MaxUint32), prop.VotingPeriodEnd)
}

func TestProposalIDsNeverReused(t *testing.T) {
	store := governance.NewMemoryStore()
	e, err := governance.NewEngine(governance.EngineConfig{
		Store:      store,
		Dispatcher: &recordingDispatcher{},
	})
	require.NoError(t, err)
	require.NoError(t, e.RegisterMember(memberA))
	first, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	_, err = e.Resolve(context.Background(), memberA, 0, first)
	require.NoError(t, err)
	second, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	require.NoError(t, store.Update(func(s governance.State) error {
		return s.SetNextProposalID(math.MaxUint32 - 1)
	}))
	last, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(math.MaxUint32-1), last)
	_, err = e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.ErrorIs(t, err, governance.ErrProposalIDsExhausted)
}

func TestDispatchFailureIsFinal(t *testing.T) {
	dispatchErr := errors.New("callee trapped")
	d := &recordingDispatcher{err: dispatchErr}
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, failedCh := eb.Subscribe(governance.DispatchFailedEventType)
	e, err := governance.NewEngine(governance.EngineConfig{
		Config:     governance.Config{VoteThreshold: 1},
		Dispatcher: d,
		EventBus:   eb,
	})
	require.NoError(t, err)
	require.NoError(t, e.RegisterMember(memberA))
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))

	res, err := e.Resolve(context.Background(), memberA, 0, id)
	require.ErrorIs(t, err, governance.ErrDispatchFailed)
	require.ErrorIs(t, err, dispatchErr)
	require.NotNil(t, res)
	assert.True(t, res.Approved)
	assert.False(t, res.Dispatched)
	assert.Equal(t, dispatchErr, res.DispatchErr)

	_, ok, err := e.Proposal(id)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = e.Resolve(context.Background(), memberA, 0, id)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)

	failed := testutil.RequireEventData[governance.DispatchFailedEvent](
		t,
		failedCh,
		"dispatch failure event",
	)
	assert.Equal(t, id, failed.ID)
	assert.Equal(t, "callee trapped", failed.Error)
}

func TestChainCallProposal(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestEngine(t, governance.Config{VoteThreshold: 1}, d, memberA)
	msg := crossmsg.NewMessage(crossmsg.ClearOrigin())
	cc, err := call.NewChainCall(crossmsg.Parent(), msg)
	require.NoError(t, err)
	id, err := e.CreateProposal(memberA, 0, call.Chain(cc))
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))
	_, err = e.Resolve(context.Background(), memberA, 0, id)
	require.NoError(t, err)
	require.Len(t, d.calls, 1)
	require.Equal(t, call.KindChain, d.calls[0].Kind)
	dest, err := d.calls[0].Chain.Destination()
	require.NoError(t, err)
	assert.Equal(t, crossmsg.Parent(), dest)
}

func TestProposalsQuery(t *testing.T) {
	e := newTestEngine(t, governance.Config{VotingPeriod: 3}, &recordingDispatcher{}, memberA)
	var ids []governance.ProposalID
	for i := range 3 {
		id, err := e.CreateProposal(memberA, governance.BlockNumber(i), contractCallTo("X"))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := e.Resolve(context.Background(), memberA, 10, ids[1])
	require.NoError(t, err)
	entries, err := e.Proposals()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ids[0], entries[0].ID)
	assert.Equal(t, ids[2], entries[1].ID)
	assert.Equal(t, governance.BlockNumber(5), entries[1].Proposal.VotingPeriodEnd)
	props, err := e.ActiveProposals()
	require.NoError(t, err)
	assert.Len(t, props, 2)
	active, err := e.ActiveProposalIDs()
	require.NoError(t, err)
	assert.Equal(t, []governance.ProposalID{ids[0], ids[2]}, active)
	assert.Equal(t, governance.BlockNumber(3), e.VotingPeriod())
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := governance.NewEngine(governance.EngineConfig{
		Config:       governance.Config{VoteThreshold: 1},
		Dispatcher:   &recordingDispatcher{},
		PromRegistry: reg,
	})
	require.NoError(t, err)
	require.NoError(t, e.RegisterMember(memberA))
	id, err := e.CreateProposal(memberA, 0, contractCallTo("X"))
	require.NoError(t, err)
	_, err = e.CreateProposal(memberA, 0, contractCallTo("Y"))
	require.NoError(t, err)
	require.NoError(t, e.Vote(memberA, id, governance.Aye))
	_, err = e.Resolve(context.Background(), memberA, 0, id)
	require.NoError(t, err)
	count, err := promtestutil.GatherAndCount(reg, "superdao_governance_active_proposals")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		switch mf.GetName() {
		case "superdao_governance_active_proposals":
			assert.InDelta(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue(), 0)
		case "superdao_governance_proposals_created_total":
			assert.InDelta(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := governance.NewEngine(governance.EngineConfig{})
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
	_, err = governance.NewEngine(governance.EngineConfig{
		Config:     governance.Config{DeadlinePolicy: governance.DeadlinePolicy(5)},
		Dispatcher: &recordingDispatcher{},
	})
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
}
