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

package types

import (
	"encoding/binary"
	"fmt"
)

const (
	ProposalKeyPrefix     = "p"
	TallyKeyPrefix        = "t"
	OutboxKeyPrefix       = "o"
	NextProposalIDKey     = "mn"
	MembersKey            = "mm"
	ActiveProposalIDsKey  = "ma"
	NextOutboxSequenceKey = "mo"
	LastHeightKey         = "mh"
)

func Uint32ToBytes(input uint32) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, input)
	return ret
}

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func ProposalKey(id uint32) []byte {
	return append([]byte(ProposalKeyPrefix), Uint32ToBytes(id)...)
}

func TallyKey(id uint32) []byte {
	return append([]byte(TallyKeyPrefix), Uint32ToBytes(id)...)
}

// OutboxKey sorts in sequence order
func OutboxKey(seq uint64) []byte {
	return append([]byte(OutboxKeyPrefix), Uint64ToBytes(seq)...)
}

func OutboxSequenceFromKey(key []byte) (uint64, error) {
	if len(key) != len(OutboxKeyPrefix)+8 || string(key[:len(OutboxKeyPrefix)]) != OutboxKeyPrefix {
		return 0, fmt.Errorf("invalid outbox key: %x", key)
	}
	return binary.BigEndian.Uint64(key[len(OutboxKeyPrefix):]), nil
}
