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

// Package nomination forwards validator nominations to the parent chain
// through governance proposals. A suggestion becomes a chain call proposal
// and is only sent once enough members approve it.
package nomination

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
	"github.com/blinklabs-io/superdao/event"
	"github.com/blinklabs-io/superdao/governance"
)

var (
	ErrNotValidatorsProposal = errors.New("not a validators proposal")
	ErrEmptyExtrinsic        = errors.New("encoded extrinsic is empty")
)

// Governor is the subset of the host used to run nomination proposals
type Governor interface {
	CreateProposal(ctx context.Context, caller account.ID, c call.Call) (governance.ProposalID, error)
	Vote(ctx context.Context, caller account.ID, id governance.ProposalID, vote governance.Vote) error
	ResolveProposal(ctx context.Context, caller account.ID, id governance.ProposalID) (*governance.Resolution, error)
	Proposals(ctx context.Context) ([]governance.ProposalEntry, error)
}

// Suggestion is a pending validator nomination
type Suggestion struct {
	ID               governance.ProposalID
	EncodedExtrinsic []byte
	RefTime          uint64
	ProofSize        uint64
	Fee              uint64
	VotingPeriodEnd  governance.BlockNumber
}

type Pool struct {
	governor Governor
	logger   *slog.Logger
	eventBus *event.EventBus
}

type PoolOptionFunc func(*Pool)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PoolOptionFunc {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithEventBus specifies the event bus to publish nomination events on
func WithEventBus(eventBus *event.EventBus) PoolOptionFunc {
	return func(p *Pool) {
		p.eventBus = eventBus
	}
}

func NewPool(governor Governor, opts ...PoolOptionFunc) *Pool {
	p := &Pool{governor: governor}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	p.logger = p.logger.With("component", "nomination")
	return p
}

// BuildMessage returns the program that pays for execution on the parent
// chain with fee and then runs the extrinsic as the sovereign account
func BuildMessage(
	encodedExtrinsic []byte,
	refTime uint64,
	proofSize uint64,
	fee uint64,
) crossmsg.Message {
	asset := crossmsg.NewAsset(crossmsg.Here(), fee)
	return crossmsg.NewBuilder().
		WithdrawAsset(asset).
		BuyExecution(asset, nil).
		Transact(
			crossmsg.OriginSovereignAccount,
			crossmsg.NewWeight(refTime, proofSize),
			bytes.Clone(encodedExtrinsic),
		).
		Build()
}

// ParseCall recognizes a call built by SuggestValidators
func ParseCall(c call.Call) (Suggestion, bool) {
	if c.Kind != call.KindChain || c.Chain == nil {
		return Suggestion{}, false
	}
	dest, err := c.Chain.Destination()
	if err != nil || dest.Parents != 1 || len(dest.Interior) != 0 {
		return Suggestion{}, false
	}
	msg, err := c.Chain.Message()
	if err != nil || len(msg.Instructions) != 3 {
		return Suggestion{}, false
	}
	withdraw, buy, transact := msg.Instructions[0], msg.Instructions[1], msg.Instructions[2]
	if withdraw.Op != crossmsg.OpWithdrawAsset || len(withdraw.Assets) != 1 ||
		buy.Op != crossmsg.OpBuyExecution || len(buy.Assets) != 1 ||
		buy.WeightLimit != nil ||
		transact.Op != crossmsg.OpTransact || transact.WeightLimit == nil ||
		transact.Origin != crossmsg.OriginSovereignAccount {
		return Suggestion{}, false
	}
	fee := withdraw.Assets[0]
	if !fee.ID.IsHere() || !buy.Assets[0].ID.IsHere() ||
		buy.Assets[0].Amount != fee.Amount {
		return Suggestion{}, false
	}
	return Suggestion{
		EncodedExtrinsic: transact.Call,
		RefTime:          transact.WeightLimit.RefTime,
		ProofSize:        transact.WeightLimit.ProofSize,
		Fee:              fee.Amount,
	}, true
}

// SuggestValidators proposes running encodedExtrinsic on the parent chain.
// The caller must be a member
func (p *Pool) SuggestValidators(
	ctx context.Context,
	caller account.ID,
	encodedExtrinsic []byte,
	refTime uint64,
	proofSize uint64,
	fee uint64,
) (governance.ProposalID, error) {
	if len(encodedExtrinsic) == 0 {
		return 0, ErrEmptyExtrinsic
	}
	cc, err := call.NewChainCall(
		crossmsg.Parent(),
		BuildMessage(encodedExtrinsic, refTime, proofSize, fee),
	)
	if err != nil {
		return 0, err
	}
	id, err := p.governor.CreateProposal(ctx, caller, call.Chain(cc))
	if err != nil {
		return 0, err
	}
	p.logger.Info(
		"validators suggested",
		"proposal_id", id,
		"proposer", caller.String(),
	)
	p.publish(ValidatorsSuggestedEventType, ValidatorsSuggestedEvent{
		ID:       id,
		Proposer: caller,
	})
	return id, nil
}

// VoteValidators casts a vote on a validators proposal
func (p *Pool) VoteValidators(
	ctx context.Context,
	caller account.ID,
	id governance.ProposalID,
	vote governance.Vote,
) error {
	if _, err := p.suggestion(ctx, id); err != nil {
		return err
	}
	return p.governor.Vote(ctx, caller, id, vote)
}

// EnactValidators resolves a validators proposal. The returned resolution
// tells whether the message was sent
func (p *Pool) EnactValidators(
	ctx context.Context,
	caller account.ID,
	id governance.ProposalID,
) (*governance.Resolution, error) {
	if _, err := p.suggestion(ctx, id); err != nil {
		return nil, err
	}
	res, err := p.governor.ResolveProposal(ctx, caller, id)
	if err != nil {
		return res, err
	}
	if res.Dispatched {
		p.logger.Info(
			"validators changed",
			"proposal_id", id,
		)
		p.publish(ValidatorsChangedEventType, ValidatorsChangedEvent{ID: id})
	}
	return res, nil
}

// Suggestions returns the active validators proposals in id order
func (p *Pool) Suggestions(ctx context.Context) ([]Suggestion, error) {
	entries, err := p.governor.Proposals(ctx)
	if err != nil {
		return nil, err
	}
	var ret []Suggestion
	for _, entry := range entries {
		s, ok := ParseCall(entry.Proposal.Call)
		if !ok {
			continue
		}
		s.ID = entry.ID
		s.VotingPeriodEnd = entry.Proposal.VotingPeriodEnd
		ret = append(ret, s)
	}
	return ret, nil
}

func (p *Pool) suggestion(
	ctx context.Context,
	id governance.ProposalID,
) (Suggestion, error) {
	entries, err := p.governor.Proposals(ctx)
	if err != nil {
		return Suggestion{}, err
	}
	for _, entry := range entries {
		if entry.ID != id {
			continue
		}
		s, ok := ParseCall(entry.Proposal.Call)
		if !ok {
			return Suggestion{}, fmt.Errorf("%w: %d", ErrNotValidatorsProposal, id)
		}
		s.ID = id
		s.VotingPeriodEnd = entry.Proposal.VotingPeriodEnd
		return s, nil
	}
	return Suggestion{}, fmt.Errorf("%w: %d", governance.ErrProposalNotFound, id)
}

func (p *Pool) publish(eventType event.EventType, data any) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
