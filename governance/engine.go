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
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/event"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatcher performs the action carried by an approved proposal
type Dispatcher interface {
	Dispatch(context.Context, call.Call) error
}

type DispatcherFunc func(context.Context, call.Call) error

func (f DispatcherFunc) Dispatch(ctx context.Context, c call.Call) error {
	return f(ctx, c)
}

type EngineConfig struct {
	Config
	Store        Store
	Dispatcher   Dispatcher
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	EventBus     *event.EventBus
}

// Engine owns membership, proposals, tallies and the active set. It runs
// each operation to completion and is not safe for concurrent use; the host
// must serialize calls.
type Engine struct {
	config     Config
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger
	eventBus   *event.EventBus
	metrics    *engineMetrics
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("%w: no dispatcher", ErrInvalidConfig)
	}
	e := &Engine{
		config:     cfg.Config,
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		eventBus:   cfg.EventBus,
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.logger = cfg.Logger.With("component", "governance")
	e.metrics = newEngineMetrics(cfg.PromRegistry)
	ids, err := e.ActiveProposalIDs()
	if err != nil {
		return nil, fmt.Errorf("load active proposals: %w", err)
	}
	e.metrics.activeProposals.Set(float64(len(ids)))
	return e, nil
}

func (e *Engine) VoteThreshold() uint8 {
	return e.config.VoteThreshold
}

func (e *Engine) VotingPeriod() BlockNumber {
	return e.config.VotingPeriod
}

func (e *Engine) DeadlinePolicy() DeadlinePolicy {
	return e.config.DeadlinePolicy
}

func (e *Engine) RegisterMember(caller account.ID) error {
	err := e.store.Update(func(s State) error {
		members, err := s.Members()
		if err != nil {
			return err
		}
		if slices.Contains(members, caller) {
			return ErrAlreadyMember
		}
		return s.SetMembers(append(members, caller))
	})
	if err != nil {
		return err
	}
	e.logger.Info("registered member", "member", caller.String())
	e.publish(MemberRegisteredEventType, MemberEvent{Member: caller})
	return nil
}

// DeregisterMember removes the caller from the member list. Removing a
// non-member is a no-op.
func (e *Engine) DeregisterMember(caller account.ID) error {
	removed := false
	err := e.store.Update(func(s State) error {
		members, err := s.Members()
		if err != nil {
			return err
		}
		remaining := slices.DeleteFunc(members, func(m account.ID) bool { return m == caller })
		if len(remaining) == len(members) {
			return nil
		}
		removed = true
		return s.SetMembers(remaining)
	})
	if err != nil || !removed {
		return err
	}
	e.logger.Info("deregistered member", "member", caller.String())
	e.publish(MemberDeregisteredEventType, MemberEvent{Member: caller})
	return nil
}

func (e *Engine) IsMember(caller account.ID) (bool, error) {
	members, err := e.Members()
	if err != nil {
		return false, err
	}
	return slices.Contains(members, caller), nil
}

// Members returns the member list in registration order
func (e *Engine) Members() ([]account.ID, error) {
	var ret []account.ID
	err := e.store.View(func(s State) error {
		var err error
		ret, err = s.Members()
		return err
	})
	return ret, err
}

// CreateProposal stores a new proposal carrying c and opens it for voting
// until height + VotingPeriod
func (e *Engine) CreateProposal(
	caller account.ID,
	height BlockNumber,
	c call.Call,
) (ProposalID, error) {
	var id ProposalID
	var prop Proposal
	var active int
	err := e.store.Update(func(s State) error {
		if err := requireMember(s, caller); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCall, err)
		}
		next, err := s.NextProposalID()
		if err != nil {
			return err
		}
		if next == math.MaxUint32 {
			return ErrProposalIDsExhausted
		}
		id = next
		prop = Proposal{
			Call:            c,
			VotingPeriodEnd: saturatingAdd(height, e.config.VotingPeriod),
		}
		if err := s.SetNextProposalID(next + 1); err != nil {
			return err
		}
		if err := s.SetProposal(id, prop); err != nil {
			return err
		}
		ids, err := s.ActiveProposalIDs()
		if err != nil {
			return err
		}
		ids = append(ids, id)
		active = len(ids)
		return s.SetActiveProposalIDs(ids)
	})
	if err != nil {
		return 0, err
	}
	e.metrics.proposalsCreated.Inc()
	e.metrics.activeProposals.Set(float64(active))
	e.logger.Info(
		"created proposal",
		"proposal_id", id,
		"proposer", caller.String(),
		"kind", c.Kind.String(),
		"voting_period_end", prop.VotingPeriodEnd,
	)
	evt := ProposalCreatedEvent{
		ID:              id,
		Proposer:        caller,
		Kind:            c.Kind,
		VotingPeriodEnd: prop.VotingPeriodEnd,
	}
	if digest, err := c.Digest(); err == nil {
		evt.CallDigest = digest.Bytes()
	}
	e.publish(ProposalCreatedEventType, evt)
	return id, nil
}

// Vote records the caller's vote on an active proposal. A later vote by the
// same member replaces the earlier one.
func (e *Engine) Vote(caller account.ID, id ProposalID, vote Vote) error {
	if !vote.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidVote, vote)
	}
	var tally Tally
	err := e.store.Update(func(s State) error {
		if err := requireMember(s, caller); err != nil {
			return err
		}
		if _, err := requireProposal(s, id); err != nil {
			return err
		}
		var err error
		tally, err = s.Tally(id)
		if err != nil {
			return err
		}
		tally = tally.Cast(caller, vote)
		return s.SetTally(id, tally)
	})
	if err != nil {
		return err
	}
	e.metrics.votesCast.Inc()
	e.logger.Debug(
		"vote cast",
		"proposal_id", id,
		"member", caller.String(),
		"vote", vote.String(),
	)
	e.publish(VoteCastEventType, VoteCastEvent{
		ID:    id,
		Voter: caller,
		Vote:  vote,
		Ayes:  tally.CountAyes(),
		Nays:  tally.CountNays(),
	})
	return nil
}

// Resolve closes a proposal. The proposal, its tally and its active set
// entry are removed in a single transaction which is committed before an
// approved call is dispatched. A dispatch failure is returned wrapped in
// ErrDispatchFailed along with the resolution, and the proposal is not
// restored.
func (e *Engine) Resolve(
	ctx context.Context,
	caller account.ID,
	height BlockNumber,
	id ProposalID,
) (*Resolution, error) {
	res := &Resolution{
		ID:        id,
		Threshold: e.config.VoteThreshold,
	}
	var active int
	err := e.store.Update(func(s State) error {
		prop, err := requireProposal(s, id)
		if err != nil {
			return err
		}
		if err := e.config.resolvable(height, prop.VotingPeriodEnd); err != nil {
			return fmt.Errorf(
				"%w: proposal %d ends at %d, height %d",
				err,
				id,
				prop.VotingPeriodEnd,
				height,
			)
		}
		tally, err := s.Tally(id)
		if err != nil {
			return err
		}
		ids, err := s.ActiveProposalIDs()
		if err != nil {
			return err
		}
		ids = slices.DeleteFunc(ids, func(v ProposalID) bool { return v == id })
		active = len(ids)
		if err := s.SetActiveProposalIDs(ids); err != nil {
			return err
		}
		if err := s.DeleteProposal(id); err != nil {
			return err
		}
		if err := s.DeleteTally(id); err != nil {
			return err
		}
		res.Proposal = prop
		res.Ayes = tally.CountAyes()
		res.Nays = tally.CountNays()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.activeProposals.Set(float64(active))
	res.Approved = res.Ayes >= int(res.Threshold)
	if !res.Approved {
		e.metrics.resolutions.WithLabelValues("rejected").Inc()
		e.logger.Debug(
			"proposal rejected",
			"proposal_id", id,
			"ayes", res.Ayes,
			"threshold", res.Threshold,
		)
		e.publishResolved(caller, res)
		return res, nil
	}
	if derr := e.dispatcher.Dispatch(ctx, res.Proposal.Call); derr != nil {
		res.DispatchErr = derr
		e.metrics.resolutions.WithLabelValues("dispatch_failed").Inc()
		e.logger.Error(
			"failed to dispatch approved proposal",
			"proposal_id", id,
			"kind", res.Proposal.Call.Kind.String(),
			"error", derr,
		)
		e.publish(DispatchFailedEventType, DispatchFailedEvent{
			ID:    id,
			Kind:  res.Proposal.Call.Kind,
			Error: derr.Error(),
		})
		e.publishResolved(caller, res)
		return res, fmt.Errorf("%w: proposal %d: %w", ErrDispatchFailed, id, derr)
	}
	res.Dispatched = true
	e.metrics.resolutions.WithLabelValues("approved").Inc()
	e.logger.Info(
		"dispatched approved proposal",
		"proposal_id", id,
		"kind", res.Proposal.Call.Kind.String(),
		"ayes", res.Ayes,
	)
	e.publishResolved(caller, res)
	return res, nil
}

// Proposal returns the active proposal with the given ID, if any
func (e *Engine) Proposal(id ProposalID) (Proposal, bool, error) {
	var ret Proposal
	var ok bool
	err := e.store.View(func(s State) error {
		var err error
		ret, ok, err = s.Proposal(id)
		return err
	})
	return ret, ok, err
}

func (e *Engine) ActiveProposalIDs() ([]ProposalID, error) {
	var ret []ProposalID
	err := e.store.View(func(s State) error {
		var err error
		ret, err = s.ActiveProposalIDs()
		return err
	})
	return ret, err
}

// Proposals returns the active proposals with their IDs in creation order
func (e *Engine) Proposals() ([]ProposalEntry, error) {
	var ret []ProposalEntry
	err := e.store.View(func(s State) error {
		ids, err := s.ActiveProposalIDs()
		if err != nil {
			return err
		}
		ret = make([]ProposalEntry, 0, len(ids))
		for _, id := range ids {
			prop, ok, err := s.Proposal(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("active proposal %d missing from store", id)
			}
			ret = append(ret, ProposalEntry{ID: id, Proposal: prop})
		}
		return nil
	})
	return ret, err
}

func (e *Engine) ActiveProposals() ([]Proposal, error) {
	entries, err := e.Proposals()
	if err != nil {
		return nil, err
	}
	ret := make([]Proposal, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, entry.Proposal)
	}
	return ret, nil
}

// Votes returns the ballots cast on a proposal in first-vote order
func (e *Engine) Votes(id ProposalID) ([]Ballot, error) {
	var ret Tally
	err := e.store.View(func(s State) error {
		var err error
		ret, err = s.Tally(id)
		return err
	})
	if ret == nil {
		ret = Tally{}
	}
	return ret, err
}

func (e *Engine) CountAyes(id ProposalID) (int, error) {
	tally, err := e.Votes(id)
	if err != nil {
		return 0, err
	}
	return Tally(tally).CountAyes(), nil
}

func requireMember(s State, caller account.ID) error {
	members, err := s.Members()
	if err != nil {
		return err
	}
	if !slices.Contains(members, caller) {
		return ErrNotMember
	}
	return nil
}

func requireProposal(s State, id ProposalID) (Proposal, error) {
	prop, ok, err := s.Proposal(id)
	if err != nil {
		return Proposal{}, err
	}
	if !ok {
		return Proposal{}, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return prop, nil
}

func (e *Engine) publishResolved(caller account.ID, res *Resolution) {
	e.publish(ProposalResolvedEventType, ProposalResolvedEvent{
		ID:         res.ID,
		Resolver:   caller,
		Ayes:       res.Ayes,
		Nays:       res.Nays,
		Threshold:  res.Threshold,
		Approved:   res.Approved,
		Dispatched: res.Dispatched,
	})
}

func (e *Engine) publish(eventType event.EventType, data any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
