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

import "errors"

var (
	ErrNotMember            = errors.New("caller is not a member")
	ErrAlreadyMember        = errors.New("caller is already a member")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrNotYetExpired        = errors.New("voting period has not ended")
	ErrVotingClosed         = errors.New("voting period has closed")
	ErrDispatchFailed       = errors.New("dispatch failed")
	ErrProposalIDsExhausted = errors.New("proposal IDs exhausted")
	ErrInvalidCall          = errors.New("invalid call")
	ErrInvalidVote          = errors.New("invalid vote")
	ErrInvalidConfig        = errors.New("invalid governance config")
	ErrReadOnly             = errors.New("state is read-only")
)
