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

// Package crossmsg models the structured values carried by a cross-domain
// call: the destination location and the instruction program executed there.
// Values are exchanged in their canonical CBOR form; decoding is strict and
// rejects anything that is not exactly one well-formed value.
package crossmsg

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// ErrMalformedEncoding is returned when bytes are not a valid encoding of
// the expected structure
var ErrMalformedEncoding = errors.New("malformed encoding")

// Encode returns the canonical encoding of a location or message
func Encode(v any) ([]byte, error) {
	switch tmp := v.(type) {
	case Location:
		if err := tmp.Validate(); err != nil {
			return nil, err
		}
	case Message:
		if err := tmp.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported type for encoding: %T", v)
	}
	return cbor.Encode(v)
}

// DecodeLocation decodes and validates an encoded location
func DecodeLocation(data []byte) (Location, error) {
	var ret Location
	if err := decodeExact(data, &ret); err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return Location{}, fmt.Errorf("location: %w: %w", ErrMalformedEncoding, err)
	}
	if err := requireCanonical(data, ret); err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	return ret, nil
}

// DecodeMessage decodes and validates an encoded message
func DecodeMessage(data []byte) (Message, error) {
	var ret Message
	if err := decodeExact(data, &ret); err != nil {
		return Message{}, fmt.Errorf("message: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return Message{}, fmt.Errorf("message: %w: %w", ErrMalformedEncoding, err)
	}
	if err := requireCanonical(data, ret); err != nil {
		return Message{}, fmt.Errorf("message: %w", err)
	}
	return ret, nil
}

// requireCanonical rejects input that decodes to v but is not the encoding
// Encode produces for v
func requireCanonical(data []byte, v any) error {
	canonical, err := Encode(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	if !bytes.Equal(canonical, data) {
		return fmt.Errorf("%w: non-canonical encoding", ErrMalformedEncoding)
	}
	return nil
}

// decodeExact decodes a single CBOR item which must span the whole input
func decodeExact(data []byte, dest any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrMalformedEncoding)
	}
	n, err := cbor.Decode(data, dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}
	if n != len(data) {
		return fmt.Errorf(
			"%w: %d trailing bytes",
			ErrMalformedEncoding,
			len(data)-n,
		)
	}
	return nil
}
