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
	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/event"
)

const (
	MemberRegisteredEventType   event.EventType = "governance.member_registered"
	MemberDeregisteredEventType event.EventType = "governance.member_deregistered"
	ProposalCreatedEventType    event.EventType = "governance.proposal_created"
	VoteCastEventType           event.EventType = "governance.vote_cast"
	ProposalResolvedEventType   event.EventType = "governance.proposal_resolved"
	DispatchFailedEventType     event.EventType = "governance.dispatch_failed"
)

type MemberEvent struct {
	Member account.ID
}

type ProposalCreatedEvent struct {
	ID              ProposalID
	Proposer        account.ID
	Kind            call.Kind
	CallDigest      []byte
	VotingPeriodEnd BlockNumber
}

type VoteCastEvent struct {
	ID    ProposalID
	Voter account.ID
	Vote  Vote
	Ayes  int
	Nays  int
}

type ProposalResolvedEvent struct {
	ID         ProposalID
	Resolver   account.ID
	Ayes       int
	Nays       int
	Threshold  uint8
	Approved   bool
	Dispatched bool
}

type DispatchFailedEvent struct {
	ID    ProposalID
	Kind  call.Kind
	Error string
}
