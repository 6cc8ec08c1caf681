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

// Package dispatch carries out the calls authorized by approved proposals
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
)

var (
	ErrUnknownCallee            = errors.New("unknown callee")
	ErrUnknownSelector          = errors.New("unknown selector")
	ErrReentrancyDenied         = errors.New("re-entrancy denied")
	ErrNoTransport              = errors.New("no transport for destination")
	ErrUnsupportedCall          = errors.New("unsupported call")
	ErrUnsupportedInstruction   = errors.New("unsupported instruction")
	ErrValueTransferUnsupported = errors.New("value transfer not supported")
)

// ContractInvoker invokes a function on an addressable component
type ContractInvoker interface {
	InvokeContract(context.Context, call.ContractCall) error
}

// MessageExecutor executes a cross-domain message addressed to this domain
type MessageExecutor interface {
	ExecuteMessage(context.Context, crossmsg.Message) error
}

// MessageSender forwards an encoded cross-domain message verbatim
type MessageSender interface {
	SendMessage(ctx context.Context, dest []byte, msg []byte) error
}

type AdapterOptionFunc func(*Adapter)

func WithContractInvoker(invoker ContractInvoker) AdapterOptionFunc {
	return func(a *Adapter) {
		a.invoker = invoker
	}
}

func WithMessageExecutor(executor MessageExecutor) AdapterOptionFunc {
	return func(a *Adapter) {
		a.executor = executor
	}
}

func WithMessageSender(sender MessageSender) AdapterOptionFunc {
	return func(a *Adapter) {
		a.sender = sender
	}
}

func WithLogger(logger *slog.Logger) AdapterOptionFunc {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// Adapter routes each call variant to its collaborator
type Adapter struct {
	invoker  ContractInvoker
	executor MessageExecutor
	sender   MessageSender
	logger   *slog.Logger
}

func NewAdapter(opts ...AdapterOptionFunc) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "dispatch")
	return a
}

func (a *Adapter) Dispatch(ctx context.Context, c call.Call) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCall, err)
	}
	switch c.Kind {
	case call.KindContract:
		return a.dispatchContract(ctx, *c.Contract)
	case call.KindChain:
		return a.dispatchChain(ctx, *c.Chain)
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedCall, c.Kind)
	}
}

func (a *Adapter) dispatchContract(ctx context.Context, cc call.ContractCall) error {
	if a.invoker == nil {
		return fmt.Errorf("%w: no contract invoker configured", ErrUnsupportedCall)
	}
	a.logger.Debug(
		"invoking contract",
		"callee", cc.Callee.String(),
		"selector", fmt.Sprintf("%x", cc.Selector),
		"allow_reentry", cc.AllowReentry,
	)
	return invoke(ctx, a.invoker, cc)
}

func (a *Adapter) dispatchChain(ctx context.Context, cc call.ChainCall) error {
	dest, err := cc.Destination()
	if err != nil {
		return err
	}
	if dest.IsHere() {
		if a.executor == nil {
			return fmt.Errorf("%w: no local executor configured", ErrUnsupportedCall)
		}
		msg, err := cc.Message()
		if err != nil {
			return err
		}
		a.logger.Debug(
			"executing local message",
			"instructions", len(msg.Instructions),
		)
		return a.executor.ExecuteMessage(ctx, msg)
	}
	if a.sender == nil {
		return fmt.Errorf("%w: %s", ErrNoTransport, dest)
	}
	a.logger.Debug("forwarding message", "destination", dest.String())
	return a.sender.SendMessage(ctx, cc.EncodedDestination(), cc.EncodedMessage())
}

// invoke runs a contract call inside a call frame for its callee
func invoke(ctx context.Context, invoker ContractInvoker, cc call.ContractCall) error {
	ctx = withFrame(ctx, Frame{
		Callee:       cc.Callee,
		Selector:     cc.Selector,
		AllowReentry: cc.AllowReentry,
	})
	return invoker.InvokeContract(ctx, cc)
}
