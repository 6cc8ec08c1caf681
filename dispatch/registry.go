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

package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
)

// Invocation is what a registered handler receives for a contract call
type Invocation struct {
	Callee           account.ID
	Selector         call.Selector
	Input            []byte
	TransferredValue uint64
	RefTimeLimit     uint64
}

type Handler func(context.Context, Invocation) error

// ValueTransferFunc moves value to a callee ahead of its invocation
type ValueTransferFunc func(ctx context.Context, callee account.ID, amount uint64) error

type RegistryOptionFunc func(*Registry)

func WithRegistryLogger(logger *slog.Logger) RegistryOptionFunc {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithValueTransfer(transferFunc ValueTransferFunc) RegistryOptionFunc {
	return func(r *Registry) {
		r.transfer = transferFunc
	}
}

// Registry is an in-process table of addressable components keyed by callee
// and selector
type Registry struct {
	mu       sync.RWMutex
	handlers map[account.ID]map[call.Selector]Handler
	transfer ValueTransferFunc
	logger   *slog.Logger
}

func NewRegistry(opts ...RegistryOptionFunc) *Registry {
	r := &Registry{
		handlers: make(map[account.ID]map[call.Selector]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// Register adds or replaces the handler for a callee's selector
func (r *Registry) Register(callee account.ID, selector call.Selector, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[callee]; !ok {
		r.handlers[callee] = make(map[call.Selector]Handler)
	}
	r.handlers[callee][selector] = handler
}

// Deregister removes every handler of a callee
func (r *Registry) Deregister(callee account.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, callee)
}

func (r *Registry) InvokeContract(ctx context.Context, cc call.ContractCall) error {
	r.mu.RLock()
	selectors, ok := r.handlers[cc.Callee]
	var handler Handler
	if ok {
		handler = selectors[cc.Selector]
	}
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCallee, cc.Callee)
	}
	if handler == nil {
		return fmt.Errorf("%w: %x on %s", ErrUnknownSelector, cc.Selector, cc.Callee)
	}
	if cc.TransferredValue > 0 {
		if r.transfer == nil {
			return ErrValueTransferUnsupported
		}
		if err := r.transfer(ctx, cc.Callee, cc.TransferredValue); err != nil {
			return fmt.Errorf("transfer value: %w", err)
		}
	}
	r.logger.Debug(
		"invoking handler",
		"callee", cc.Callee.String(),
		"selector", fmt.Sprintf("%x", cc.Selector),
	)
	return handler(ctx, Invocation{
		Callee:           cc.Callee,
		Selector:         cc.Selector,
		Input:            cc.Input,
		TransferredValue: cc.TransferredValue,
		RefTimeLimit:     cc.RefTimeLimit,
	})
}
