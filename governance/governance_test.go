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
	"errors"
	"testing"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyCast(t *testing.T) {
	var tally governance.Tally
	tally = tally.Cast(memberA, governance.Aye)
	tally = tally.Cast(memberB, governance.Nay)
	before := tally
	tally = tally.Cast(memberA, governance.Nay)
	require.Len(t, tally, 2)
	assert.Equal(t, governance.Nay, tally[0].Vote)
	assert.Equal(t, governance.Aye, before[0].Vote, "Cast must not mutate its receiver")
	assert.Equal(t, 0, tally.CountAyes())
	assert.Equal(t, 2, tally.CountNays())
}

func TestParseVote(t *testing.T) {
	v, err := governance.ParseVote("aye")
	require.NoError(t, err)
	assert.Equal(t, governance.Aye, v)
	v, err = governance.ParseVote("no")
	require.NoError(t, err)
	assert.Equal(t, governance.Nay, v)
	_, err = governance.ParseVote("abstain")
	require.ErrorIs(t, err, governance.ErrInvalidVote)
}

func TestParseDeadlinePolicy(t *testing.T) {
	p, err := governance.ParseDeadlinePolicy("")
	require.NoError(t, err)
	assert.Equal(t, governance.DeadlineAfterExpiry, p)
	require.NoError(t, p.UnmarshalText([]byte("before-expiry")))
	assert.Equal(t, governance.DeadlineBeforeExpiry, p)
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "before-expiry", string(text))
	require.Error(t, p.UnmarshalText([]byte("whenever")))
}

func TestMemoryStoreRollback(t *testing.T) {
	store := governance.NewMemoryStore()
	failure := errors.New("abort")
	err := store.Update(func(s governance.State) error {
		require.NoError(t, s.SetMembers([]account.ID{memberA}))
		require.NoError(t, s.SetNextProposalID(7))
		return failure
	})
	require.ErrorIs(t, err, failure)
	require.NoError(t, store.View(func(s governance.State) error {
		members, err := s.Members()
		require.NoError(t, err)
		assert.Empty(t, members)
		next, err := s.NextProposalID()
		require.NoError(t, err)
		assert.Equal(t, governance.ProposalID(0), next)
		return nil
	}))
}

func TestMemoryStoreViewIsReadOnly(t *testing.T) {
	store := governance.NewMemoryStore()
	err := store.View(func(s governance.State) error {
		return s.SetNextProposalID(1)
	})
	require.ErrorIs(t, err, governance.ErrReadOnly)
}
