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

package crossmsg

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

type Opcode uint8

const (
	OpWithdrawAsset Opcode = iota
	OpBuyExecution
	OpTransact
	OpDepositAsset
	OpClearOrigin
	OpRefundSurplus
)

const maxInstructions = 100

func (o Opcode) String() string {
	switch o {
	case OpWithdrawAsset:
		return "WithdrawAsset"
	case OpBuyExecution:
		return "BuyExecution"
	case OpTransact:
		return "Transact"
	case OpDepositAsset:
		return "DepositAsset"
	case OpClearOrigin:
		return "ClearOrigin"
	case OpRefundSurplus:
		return "RefundSurplus"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// OriginKind selects the origin a Transact call is dispatched with
type OriginKind uint8

const (
	OriginNative OriginKind = iota
	OriginSovereignAccount
	OriginSuperuser
	OriginXcm
)

// Weight is the two-dimensional execution budget of a call
type Weight struct {
	cbor.StructAsArray
	RefTime   uint64
	ProofSize uint64
}

func NewWeight(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

// Asset is a fungible amount of the asset identified by a location
type Asset struct {
	cbor.StructAsArray
	ID     Location
	Amount uint64
}

func NewAsset(id Location, amount uint64) Asset {
	return Asset{ID: id, Amount: amount}
}

// Instruction is a single step of a message program. Which fields are
// meaningful depends on Op:
//
//	WithdrawAsset: Assets (one or more)
//	BuyExecution:  Assets (exactly one, the fee), WeightLimit (nil = unlimited)
//	Transact:      Origin, WeightLimit (required), Call
//	DepositAsset:  Assets (one or more), Beneficiary
//	ClearOrigin, RefundSurplus: none
type Instruction struct {
	cbor.StructAsArray
	Op          Opcode
	Assets      []Asset
	WeightLimit *Weight
	Origin      OriginKind
	Call        []byte
	Beneficiary *Location
}

func WithdrawAsset(assets ...Asset) Instruction {
	return Instruction{Op: OpWithdrawAsset, Assets: assets}
}

// BuyExecution pays for execution with fees. A nil limit means unlimited.
func BuyExecution(fees Asset, limit *Weight) Instruction {
	return Instruction{
		Op:          OpBuyExecution,
		Assets:      []Asset{fees},
		WeightLimit: limit,
	}
}

func Transact(origin OriginKind, requireWeightAtMost Weight, call []byte) Instruction {
	return Instruction{
		Op:          OpTransact,
		Origin:      origin,
		WeightLimit: &requireWeightAtMost,
		Call:        call,
	}
}

func DepositAsset(beneficiary Location, assets ...Asset) Instruction {
	return Instruction{
		Op:          OpDepositAsset,
		Assets:      assets,
		Beneficiary: &beneficiary,
	}
}

func ClearOrigin() Instruction {
	return Instruction{Op: OpClearOrigin}
}

func RefundSurplus() Instruction {
	return Instruction{Op: OpRefundSurplus}
}

func (i Instruction) Validate() error {
	for idx, asset := range i.Assets {
		if err := asset.ID.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", idx, err)
		}
	}
	switch i.Op {
	case OpWithdrawAsset:
		if len(i.Assets) == 0 {
			return errors.New("WithdrawAsset requires at least one asset")
		}
		if i.WeightLimit != nil || i.Beneficiary != nil || len(i.Call) != 0 {
			return errors.New("WithdrawAsset carries unexpected operands")
		}
	case OpBuyExecution:
		if len(i.Assets) != 1 {
			return fmt.Errorf("BuyExecution requires exactly one fee asset, got %d", len(i.Assets))
		}
		if i.Beneficiary != nil || len(i.Call) != 0 {
			return errors.New("BuyExecution carries unexpected operands")
		}
	case OpTransact:
		if i.WeightLimit == nil {
			return errors.New("Transact requires a weight limit")
		}
		if i.Origin > OriginXcm {
			return fmt.Errorf("unknown origin kind: %d", i.Origin)
		}
		if len(i.Assets) != 0 || i.Beneficiary != nil {
			return errors.New("Transact carries unexpected operands")
		}
	case OpDepositAsset:
		if len(i.Assets) == 0 {
			return errors.New("DepositAsset requires at least one asset")
		}
		if i.Beneficiary == nil {
			return errors.New("DepositAsset requires a beneficiary")
		}
		if err := i.Beneficiary.Validate(); err != nil {
			return fmt.Errorf("beneficiary: %w", err)
		}
	case OpClearOrigin, OpRefundSurplus:
		if len(i.Assets) != 0 || i.WeightLimit != nil || i.Beneficiary != nil || len(i.Call) != 0 {
			return fmt.Errorf("%s takes no operands", i.Op)
		}
	default:
		return fmt.Errorf("unknown opcode: %d", i.Op)
	}
	return nil
}

// Message is an ordered program of instructions executed at a destination
type Message struct {
	cbor.StructAsArray
	Instructions []Instruction
}

func NewMessage(instructions ...Instruction) Message {
	return Message{Instructions: instructions}
}

func (m Message) Validate() error {
	if len(m.Instructions) > maxInstructions {
		return fmt.Errorf(
			"too many instructions: %d (max %d)",
			len(m.Instructions),
			maxInstructions,
		)
	}
	for idx, inst := range m.Instructions {
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", idx, inst.Op, err)
		}
	}
	return nil
}

// Builder assembles a message one instruction at a time
type Builder struct {
	instructions []Instruction
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithdrawAsset(assets ...Asset) *Builder {
	b.instructions = append(b.instructions, WithdrawAsset(assets...))
	return b
}

func (b *Builder) BuyExecution(fees Asset, limit *Weight) *Builder {
	b.instructions = append(b.instructions, BuyExecution(fees, limit))
	return b
}

func (b *Builder) Transact(origin OriginKind, weight Weight, call []byte) *Builder {
	b.instructions = append(b.instructions, Transact(origin, weight, call))
	return b
}

func (b *Builder) DepositAsset(beneficiary Location, assets ...Asset) *Builder {
	b.instructions = append(b.instructions, DepositAsset(beneficiary, assets...))
	return b
}

func (b *Builder) ClearOrigin() *Builder {
	b.instructions = append(b.instructions, ClearOrigin())
	return b
}

func (b *Builder) Build() Message {
	return NewMessage(b.instructions...)
}
