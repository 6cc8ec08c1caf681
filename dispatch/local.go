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

	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/crossmsg"
)

// LocalExecutor executes messages addressed to this domain. Fee and origin
// instructions are accepted as no-ops, Transact runs an encoded contract
// call, and asset movement is rejected.
type LocalExecutor struct {
	invoker ContractInvoker
	logger  *slog.Logger
}

func NewLocalExecutor(invoker ContractInvoker, logger *slog.Logger) *LocalExecutor {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LocalExecutor{
		invoker: invoker,
		logger:  logger.With("component", "executor"),
	}
}

func (l *LocalExecutor) ExecuteMessage(ctx context.Context, msg crossmsg.Message) error {
	for idx, inst := range msg.Instructions {
		if err := l.execute(ctx, inst); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", idx, inst.Op, err)
		}
	}
	return nil
}

func (l *LocalExecutor) execute(ctx context.Context, inst crossmsg.Instruction) error {
	switch inst.Op {
	case crossmsg.OpBuyExecution, crossmsg.OpClearOrigin, crossmsg.OpRefundSurplus:
		return nil
	case crossmsg.OpTransact:
		c, err := call.Decode(inst.Call)
		if err != nil {
			return err
		}
		if c.Kind != call.KindContract {
			return fmt.Errorf("%w: transact carries a %s call", ErrUnsupportedCall, c.Kind)
		}
		if l.invoker == nil {
			return fmt.Errorf("%w: no contract invoker configured", ErrUnsupportedCall)
		}
		l.logger.Debug("transact", "callee", c.Contract.Callee.String())
		return invoke(ctx, l.invoker, *c.Contract)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedInstruction, inst.Op)
	}
}
