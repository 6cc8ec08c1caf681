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

// Package governance implements a threshold-governed proposal engine.
//
// Members create proposals that each carry a single call.Call, vote on them,
// and once the voting window has closed anyone may resolve a proposal. A
// proposal with at least VoteThreshold aye votes is dispatched exactly once;
// any other proposal is discarded. Resolution removes the proposal either way.
package governance

import (
	"fmt"
	"slices"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
)

// BlockNumber is a host-provided monotonic height
type BlockNumber uint32

// ProposalID identifies a proposal. IDs are allocated from a strictly
// increasing counter and never reused.
type ProposalID uint32

type Vote uint8

const (
	Aye Vote = iota
	Nay
)

func (v Vote) String() string {
	switch v {
	case Aye:
		return "aye"
	case Nay:
		return "nay"
	default:
		return fmt.Sprintf("Vote(%d)", uint8(v))
	}
}

func (v Vote) Valid() bool {
	return v == Aye || v == Nay
}

// ParseVote accepts "aye"/"yes" and "nay"/"no"
func ParseVote(s string) (Vote, error) {
	switch s {
	case "aye", "yes":
		return Aye, nil
	case "nay", "no":
		return Nay, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidVote, s)
	}
}

type Ballot struct {
	cbor.StructAsArray
	Member account.ID
	Vote   Vote
}

// Tally is the ordered list of ballots cast on a proposal. Each member
// appears at most once.
type Tally []Ballot

// Cast records a vote, replacing any earlier vote by the same member in place
func (t Tally) Cast(member account.ID, vote Vote) Tally {
	idx := slices.IndexFunc(t, func(b Ballot) bool { return b.Member == member })
	if idx >= 0 {
		ret := slices.Clone(t)
		ret[idx].Vote = vote
		return ret
	}
	return append(slices.Clone(t), Ballot{Member: member, Vote: vote})
}

func (t Tally) CountAyes() int {
	return t.count(Aye)
}

func (t Tally) CountNays() int {
	return t.count(Nay)
}

func (t Tally) count(vote Vote) int {
	ret := 0
	for _, b := range t {
		if b.Vote == vote {
			ret++
		}
	}
	return ret
}

// Proposal is immutable once created
type Proposal struct {
	cbor.StructAsArray
	Call            call.Call
	VotingPeriodEnd BlockNumber
}

type ProposalEntry struct {
	ID       ProposalID
	Proposal Proposal
}

// Resolution describes the outcome of resolving a proposal
type Resolution struct {
	ID          ProposalID
	Proposal    Proposal
	Ayes        int
	Nays        int
	Threshold   uint8
	Approved    bool
	Dispatched  bool
	DispatchErr error
}

func saturatingAdd(a, b BlockNumber) BlockNumber {
	sum := a + b
	if sum < a {
		return ^BlockNumber(0)
	}
	return sum
}
