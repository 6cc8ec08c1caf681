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

// Package call defines the actions a governance proposal can authorize.
//
// A Call is a closed tagged union with exactly two variants: a ContractCall
// into another addressable component, and a ChainCall carrying an encoded
// cross-domain destination and message.
package call

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

var ErrInvalidVariant = errors.New("call: invalid variant")

type Kind uint8

const (
	KindContract Kind = iota
	KindChain
)

func (k Kind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindChain:
		return "chain"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Call is the action a proposal authorizes. Exactly one of Contract or Chain
// is set, matching Kind. Use the Contract and Chain constructors.
type Call struct {
	cbor.StructAsArray
	Kind     Kind
	Contract *ContractCall
	Chain    *ChainCall
}

func Contract(c ContractCall) Call {
	return Call{Kind: KindContract, Contract: &c}
}

func Chain(c ChainCall) Call {
	return Call{Kind: KindChain, Chain: &c}
}

// Validate checks that the call is well-formed
func (c Call) Validate() error {
	switch c.Kind {
	case KindContract:
		if c.Contract == nil || c.Chain != nil {
			return fmt.Errorf("%w: contract call without contract payload", ErrInvalidVariant)
		}
	case KindChain:
		if c.Chain == nil || c.Contract != nil {
			return fmt.Errorf("%w: chain call without chain payload", ErrInvalidVariant)
		}
		if err := c.Chain.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidVariant, c.Kind)
	}
	return nil
}

// Equal reports whether both calls have the same encoding
func (c Call) Equal(other Call) bool {
	a, err := Encode(c)
	if err != nil {
		return false
	}
	b, err := Encode(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Digest returns the Blake2b-256 hash of the call encoding
func (c Call) Digest() (lcommon.Blake2b256, error) {
	data, err := Encode(c)
	if err != nil {
		return lcommon.Blake2b256{}, err
	}
	return lcommon.Blake2b256Hash(data), nil
}

func (c Call) String() string {
	switch {
	case c.Kind == KindContract && c.Contract != nil:
		return fmt.Sprintf(
			"contract(callee=%s, selector=%x, input=%d bytes)",
			c.Contract.Callee,
			c.Contract.Selector,
			len(c.Contract.Input),
		)
	case c.Kind == KindChain && c.Chain != nil:
		return fmt.Sprintf(
			"chain(dest=%d bytes, msg=%d bytes)",
			len(c.Chain.dest),
			len(c.Chain.msg),
		)
	default:
		return "invalid(" + c.Kind.String() + ")"
	}
}

// Encode returns the canonical CBOR encoding of a valid call
func Encode(c Call) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return cbor.Encode(&c)
}

// Decode parses a call encoding. The whole input must be consumed and the
// result must be a valid call.
func Decode(data []byte) (Call, error) {
	var ret Call
	if len(data) == 0 {
		return Call{}, fmt.Errorf("%w: empty call", ErrMalformedEncoding)
	}
	n, err := cbor.Decode(data, &ret)
	if err != nil {
		return Call{}, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	if n != len(data) {
		return Call{}, fmt.Errorf(
			"%w: %d trailing bytes after call",
			ErrMalformedEncoding,
			len(data)-n,
		)
	}
	if err := ret.Validate(); err != nil {
		return Call{}, err
	}
	return ret, nil
}
