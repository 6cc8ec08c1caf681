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

// Package scenario runs scripted sequences of host calls against a node
package scenario

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
	"gopkg.in/yaml.v3"
)

const (
	ActionRegister   = "register"
	ActionDeregister = "deregister"
	ActionPropose    = "propose"
	ActionNominate   = "nominate"
	ActionVote       = "vote"
	ActionAdvance    = "advance"
	ActionResolve    = "resolve"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Scenario struct {
	Contracts []Contract `yaml:"contracts"`
	Steps     []Step     `yaml:"steps"`
}

// Contract is an in-process component that records its invocations
type Contract struct {
	Name      string   `yaml:"name"`
	Selectors []string `yaml:"selectors"`
	// Fail makes every invocation return an error
	Fail bool `yaml:"fail"`
}

type Step struct {
	Action      string        `yaml:"action"`
	Caller      string        `yaml:"caller"`
	Contract    *ContractSpec `yaml:"contract,omitempty"`
	Chain       *ChainSpec    `yaml:"chain,omitempty"`
	Nomination  *Nomination   `yaml:"nomination,omitempty"`
	Vote        string        `yaml:"vote"`
	ExpectError string        `yaml:"expectError"`
	Proposal    uint32        `yaml:"proposal"`
	Blocks      uint32        `yaml:"blocks"`
}

type ContractSpec struct {
	Callee       string `yaml:"callee"`
	Selector     string `yaml:"selector"`
	Input        string `yaml:"input"`
	Value        uint64 `yaml:"value"`
	RefTimeLimit uint64 `yaml:"refTimeLimit"`
	AllowReentry bool   `yaml:"allowReentry"`
}

// ChainSpec describes a chain call either as raw encoded bytes or as a
// destination and a list of instructions
type ChainSpec struct {
	EncodedDest  string            `yaml:"encodedDest"`
	EncodedMsg   string            `yaml:"encodedMsg"`
	Parents      uint8             `yaml:"parents"`
	Parachain    *uint32           `yaml:"parachain,omitempty"`
	Instructions []InstructionSpec `yaml:"instructions"`
}

type InstructionSpec struct {
	Op       string        `yaml:"op"`
	Origin   string        `yaml:"origin"`
	Contract *ContractSpec `yaml:"contract,omitempty"`
}

type Nomination struct {
	Extrinsic string `yaml:"extrinsic"`
	RefTime   uint64 `yaml:"refTime"`
	ProofSize uint64 `yaml:"proofSize"`
	Fee       uint64 `yaml:"fee"`
}

func Load(path string) (*Scenario, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scenario: %w", err)
	}
	return Parse(buf)
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	for idx, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, idx+1, err)
		}
	}
	return &sc, nil
}

func (s Step) validate() error {
	switch s.Action {
	case ActionRegister, ActionDeregister, ActionVote, ActionResolve:
		if s.Caller == "" {
			return fmt.Errorf("%s requires a caller", s.Action)
		}
	case ActionPropose:
		if s.Caller == "" {
			return errors.New("propose requires a caller")
		}
		if (s.Contract == nil) == (s.Chain == nil) {
			return errors.New("propose requires exactly one of contract or chain")
		}
	case ActionNominate:
		if s.Caller == "" || s.Nomination == nil {
			return errors.New("nominate requires a caller and a nomination")
		}
	case ActionAdvance:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

// Account resolves a name or a hex account id
func Account(name string) (account.ID, error) {
	if strings.HasPrefix(name, "0x") {
		return account.FromHex(name[2:])
	}
	if name == "" {
		return account.ID{}, errors.New("empty account name")
	}
	return account.Derive(name), nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func (c ContractSpec) Call() (call.ContractCall, error) {
	callee, err := Account(c.Callee)
	if err != nil {
		return call.ContractCall{}, fmt.Errorf("callee: %w", err)
	}
	input, err := decodeHex(c.Input)
	if err != nil {
		return call.ContractCall{}, fmt.Errorf("input: %w", err)
	}
	return call.ContractCall{
		Callee:           callee,
		Selector:         call.SelectorFor(c.Selector),
		Input:            input,
		TransferredValue: c.Value,
		RefTimeLimit:     c.RefTimeLimit,
		AllowReentry:     c.AllowReentry,
	}, nil
}

func (c ChainSpec) Call() (call.ChainCall, error) {
	if c.EncodedDest != "" || c.EncodedMsg != "" {
		dest, err := decodeHex(c.EncodedDest)
		if err != nil {
			return call.ChainCall{}, fmt.Errorf("encodedDest: %w", err)
		}
		msg, err := decodeHex(c.EncodedMsg)
		if err != nil {
			return call.ChainCall{}, fmt.Errorf("encodedMsg: %w", err)
		}
		return call.NewChainCallFromEncoded(dest, msg)
	}
	var interior []crossmsg.Junction
	if c.Parachain != nil {
		interior = append(interior, crossmsg.Parachain(*c.Parachain))
	}
	builder := crossmsg.NewBuilder()
	for idx, inst := range c.Instructions {
		switch inst.Op {
		case "clearOrigin":
			builder.ClearOrigin()
		case "transact":
			if inst.Contract == nil {
				return call.ChainCall{}, fmt.Errorf("instruction %d: transact requires a contract", idx)
			}
			cc, err := inst.Contract.Call()
			if err != nil {
				return call.ChainCall{}, fmt.Errorf("instruction %d: %w", idx, err)
			}
			encoded, err := call.Encode(call.Contract(cc))
			if err != nil {
				return call.ChainCall{}, fmt.Errorf("instruction %d: %w", idx, err)
			}
			origin, err := parseOrigin(inst.Origin)
			if err != nil {
				return call.ChainCall{}, fmt.Errorf("instruction %d: %w", idx, err)
			}
			builder.Transact(
				origin,
				crossmsg.NewWeight(cc.RefTimeLimit, 0),
				encoded,
			)
		default:
			return call.ChainCall{}, fmt.Errorf("instruction %d: unsupported op %q", idx, inst.Op)
		}
	}
	return call.NewChainCall(
		crossmsg.NewLocation(c.Parents, interior...),
		builder.Build(),
	)
}

func parseOrigin(s string) (crossmsg.OriginKind, error) {
	switch s {
	case "", "native":
		return crossmsg.OriginNative, nil
	case "sovereign":
		return crossmsg.OriginSovereignAccount, nil
	case "superuser":
		return crossmsg.OriginSuperuser, nil
	case "xcm":
		return crossmsg.OriginXcm, nil
	default:
		return 0, fmt.Errorf("unknown origin %q", s)
	}
}
