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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/database/types"
	"github.com/blinklabs-io/superdao/governance"
)

// proposalRecord keeps the call in its exact wire encoding
type proposalRecord struct {
	cbor.StructAsArray
	Call            []byte
	VotingPeriodEnd uint32
}

// kvState maps governance.State onto store keys
type kvState struct {
	txn *Txn
}

func (s *kvState) get(key []byte, dest any) (bool, error) {
	data, err := s.txn.Get(key)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := cbor.Decode(data, dest); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

func (s *kvState) set(key []byte, val any) error {
	if !s.txn.ReadWrite() {
		return governance.ErrReadOnly
	}
	data, err := cbor.Encode(val)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	return s.txn.Set(key, data)
}

func (s *kvState) delete(key []byte) error {
	if !s.txn.ReadWrite() {
		return governance.ErrReadOnly
	}
	return s.txn.Delete(key)
}

func (s *kvState) Members() ([]account.ID, error) {
	var members []account.ID
	if _, err := s.get([]byte(types.MembersKey), &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *kvState) SetMembers(members []account.ID) error {
	return s.set([]byte(types.MembersKey), members)
}

func (s *kvState) NextProposalID() (governance.ProposalID, error) {
	var next uint32
	if _, err := s.get([]byte(types.NextProposalIDKey), &next); err != nil {
		return 0, err
	}
	return governance.ProposalID(next), nil
}

func (s *kvState) SetNextProposalID(id governance.ProposalID) error {
	return s.set([]byte(types.NextProposalIDKey), uint32(id))
}

func (s *kvState) ActiveProposalIDs() ([]governance.ProposalID, error) {
	var ids []governance.ProposalID
	if _, err := s.get([]byte(types.ActiveProposalIDsKey), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *kvState) SetActiveProposalIDs(ids []governance.ProposalID) error {
	return s.set([]byte(types.ActiveProposalIDsKey), ids)
}

func (s *kvState) Proposal(
	id governance.ProposalID,
) (governance.Proposal, bool, error) {
	var rec proposalRecord
	ok, err := s.get(types.ProposalKey(uint32(id)), &rec)
	if err != nil || !ok {
		return governance.Proposal{}, false, err
	}
	c, err := call.Decode(rec.Call)
	if err != nil {
		return governance.Proposal{}, false, fmt.Errorf(
			"proposal %d: %w",
			id,
			err,
		)
	}
	return governance.Proposal{
		Call:            c,
		VotingPeriodEnd: governance.BlockNumber(rec.VotingPeriodEnd),
	}, true, nil
}

func (s *kvState) SetProposal(
	id governance.ProposalID,
	prop governance.Proposal,
) error {
	encoded, err := call.Encode(prop.Call)
	if err != nil {
		return err
	}
	return s.set(
		types.ProposalKey(uint32(id)),
		proposalRecord{
			Call:            encoded,
			VotingPeriodEnd: uint32(prop.VotingPeriodEnd),
		},
	)
}

func (s *kvState) DeleteProposal(id governance.ProposalID) error {
	return s.delete(types.ProposalKey(uint32(id)))
}

func (s *kvState) Tally(id governance.ProposalID) (governance.Tally, error) {
	var tally governance.Tally
	if _, err := s.get(types.TallyKey(uint32(id)), &tally); err != nil {
		return nil, err
	}
	return tally, nil
}

func (s *kvState) SetTally(id governance.ProposalID, tally governance.Tally) error {
	return s.set(types.TallyKey(uint32(id)), tally)
}

func (s *kvState) DeleteTally(id governance.ProposalID) error {
	return s.delete(types.TallyKey(uint32(id)))
}
