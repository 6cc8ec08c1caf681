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

package nomination

import (
	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/event"
	"github.com/blinklabs-io/superdao/governance"
)

const (
	ValidatorsSuggestedEventType event.EventType = "nomination.validators_suggested"
	ValidatorsChangedEventType   event.EventType = "nomination.validators_changed"
)

type ValidatorsSuggestedEvent struct {
	ID       governance.ProposalID
	Proposer account.ID
}

type ValidatorsChangedEvent struct {
	ID governance.ProposalID
}
