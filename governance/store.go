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
	"maps"
	"slices"
	"sync"

	"github.com/blinklabs-io/superdao/account"
)

// State is the logical governance state as seen inside a store transaction.
// Slices returned by State are owned by the caller.
type State interface {
	Members() ([]account.ID, error)
	SetMembers([]account.ID) error
	NextProposalID() (ProposalID, error)
	SetNextProposalID(ProposalID) error
	ActiveProposalIDs() ([]ProposalID, error)
	SetActiveProposalIDs([]ProposalID) error
	Proposal(ProposalID) (Proposal, bool, error)
	SetProposal(ProposalID, Proposal) error
	DeleteProposal(ProposalID) error
	Tally(ProposalID) (Tally, error)
	SetTally(ProposalID, Tally) error
	DeleteTally(ProposalID) error
}

// Store provides transactional access to State. Changes made inside Update
// are committed only if the function returns nil.
type Store interface {
	View(func(State) error) error
	Update(func(State) error) error
}

type memoryData struct {
	members   []account.ID
	nextID    ProposalID
	active    []ProposalID
	proposals map[ProposalID]Proposal
	tallies   map[ProposalID]Tally
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		members:   slices.Clone(d.members),
		nextID:    d.nextID,
		active:    slices.Clone(d.active),
		proposals: maps.Clone(d.proposals),
		tallies:   maps.Clone(d.tallies),
	}
}

// MemoryStore is a Store kept entirely in memory
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			proposals: make(map[ProposalID]Proposal),
			tallies:   make(map[ProposalID]Tally),
		},
	}
}

func (m *MemoryStore) View(fn func(State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryState{data: m.data, readOnly: true})
}

func (m *MemoryStore) Update(fn func(State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tmp := m.data.clone()
	if err := fn(&memoryState{data: tmp}); err != nil {
		return err
	}
	m.data = tmp
	return nil
}

type memoryState struct {
	data     *memoryData
	readOnly bool
}

func (s *memoryState) Members() ([]account.ID, error) {
	return slices.Clone(s.data.members), nil
}

func (s *memoryState) SetMembers(members []account.ID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.data.members = slices.Clone(members)
	return nil
}

func (s *memoryState) NextProposalID() (ProposalID, error) {
	return s.data.nextID, nil
}

func (s *memoryState) SetNextProposalID(id ProposalID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.data.nextID = id
	return nil
}

func (s *memoryState) ActiveProposalIDs() ([]ProposalID, error) {
	return slices.Clone(s.data.active), nil
}

func (s *memoryState) SetActiveProposalIDs(ids []ProposalID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.data.active = slices.Clone(ids)
	return nil
}

func (s *memoryState) Proposal(id ProposalID) (Proposal, bool, error) {
	prop, ok := s.data.proposals[id]
	return prop, ok, nil
}

func (s *memoryState) SetProposal(id ProposalID, prop Proposal) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.data.proposals[id] = prop
	return nil
}

func (s *memoryState) DeleteProposal(id ProposalID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	delete(s.data.proposals, id)
	return nil
}

func (s *memoryState) Tally(id ProposalID) (Tally, error) {
	return slices.Clone(s.data.tallies[id]), nil
}

func (s *memoryState) SetTally(id ProposalID, tally Tally) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.data.tallies[id] = slices.Clone(tally)
	return nil
}

func (s *memoryState) DeleteTally(id ProposalID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	delete(s.data.tallies, id)
	return nil
}
