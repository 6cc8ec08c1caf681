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

package call

import (
	"bytes"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/superdao/crossmsg"
)

var ErrMalformedEncoding = crossmsg.ErrMalformedEncoding

// ChainCall carries a cross-domain destination and message. Only the
// canonical encodings are stored; the structured values are decoded on
// demand.
type ChainCall struct {
	dest []byte
	msg  []byte
}

type chainCallRecord struct {
	cbor.StructAsArray
	Dest []byte
	Msg  []byte
}

// NewChainCall encodes a destination and message into a ChainCall
func NewChainCall(dest crossmsg.Location, msg crossmsg.Message) (ChainCall, error) {
	destCbor, err := crossmsg.Encode(dest)
	if err != nil {
		return ChainCall{}, fmt.Errorf("encode destination: %w", err)
	}
	msgCbor, err := crossmsg.Encode(msg)
	if err != nil {
		return ChainCall{}, fmt.Errorf("encode message: %w", err)
	}
	return ChainCall{dest: destCbor, msg: msgCbor}, nil
}

// NewChainCallFromEncoded builds a ChainCall from pre-encoded values. Both
// encodings must decode exactly.
func NewChainCallFromEncoded(dest []byte, msg []byte) (ChainCall, error) {
	ret := ChainCall{
		dest: bytes.Clone(dest),
		msg:  bytes.Clone(msg),
	}
	if err := ret.Validate(); err != nil {
		return ChainCall{}, err
	}
	return ret, nil
}

func (c ChainCall) Validate() error {
	if _, err := c.Destination(); err != nil {
		return err
	}
	if _, err := c.Message(); err != nil {
		return err
	}
	return nil
}

// Destination decodes the stored destination
func (c ChainCall) Destination() (crossmsg.Location, error) {
	return crossmsg.DecodeLocation(c.dest)
}

// Message decodes the stored message
func (c ChainCall) Message() (crossmsg.Message, error) {
	return crossmsg.DecodeMessage(c.msg)
}

// EncodedDestination returns a copy of the destination encoding
func (c ChainCall) EncodedDestination() []byte {
	return bytes.Clone(c.dest)
}

// EncodedMessage returns a copy of the message encoding
func (c ChainCall) EncodedMessage() []byte {
	return bytes.Clone(c.msg)
}

func (c ChainCall) Equal(other ChainCall) bool {
	return bytes.Equal(c.dest, other.dest) && bytes.Equal(c.msg, other.msg)
}

func (c ChainCall) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(&chainCallRecord{Dest: c.dest, Msg: c.msg})
}

func (c *ChainCall) UnmarshalCBOR(data []byte) error {
	var tmp chainCallRecord
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return err
	}
	c.dest = tmp.Dest
	c.msg = tmp.Msg
	return nil
}
