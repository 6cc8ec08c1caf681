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

// Package account provides the opaque principal identifier used by the
// governance engine and the components it calls into.
package account

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// IDSize is the length in bytes of an account identifier
const IDSize = 32

var ErrInvalidID = errors.New("invalid account ID")

// ID identifies a principal as furnished by the host. IDs are compared for
// equality only and have no ordering semantics.
type ID [IDSize]byte

// NewID builds an ID from raw bytes
func NewID(data []byte) (ID, error) {
	var ret ID
	if len(data) != IDSize {
		return ret, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidID,
			IDSize,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

// FromHex parses a hex encoded ID, with or without a 0x prefix
func FromHex(s string) (ID, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return ID{}, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return NewID(data)
}

// Derive deterministically maps a seed string to an ID. It is meant for
// development and test fixtures where principals are referred to by name.
func Derive(seed string) ID {
	return ID(lcommon.Blake2b256Hash([]byte(seed)))
}

func (i ID) String() string {
	return hex.EncodeToString(i[:])
}

// Bytes returns a copy of the raw ID bytes
func (i ID) Bytes() []byte {
	ret := make([]byte, IDSize)
	copy(ret, i[:])
	return ret
}

func (i ID) IsZero() bool {
	return i == ID{}
}

func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID) UnmarshalText(data []byte) error {
	tmp, err := FromHex(string(data))
	if err != nil {
		return err
	}
	*i = tmp
	return nil
}
