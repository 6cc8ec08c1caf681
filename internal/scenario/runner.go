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

package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/superdao"
	"github.com/blinklabs-io/superdao/call"
	"github.com/blinklabs-io/superdao/dispatch"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/blinklabs-io/superdao/nomination"
)

var (
	ErrUnexpectedError = errors.New("step failed unexpectedly")
	ErrMissingError    = errors.New("step succeeded but an error was expected")
	errContractFailed  = errors.New("contract failed")
)

// Result is the outcome of a single step
type Result struct {
	Step   int
	Action string
	Output string
	Err    error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("step %d: %s: error: %s", r.Step, r.Action, r.Err)
	}
	return fmt.Sprintf("step %d: %s: %s", r.Step, r.Action, r.Output)
}

// Runner executes scenarios against a node whose height it controls
type Runner struct {
	node   *superdao.Node
	clock  *superdao.ManualClock
	out    io.Writer
	logger *slog.Logger
	// Invocations counts calls per contract name and selector
	Invocations map[string]int
}

func NewRunner(
	node *superdao.Node,
	clock *superdao.ManualClock,
	out io.Writer,
	logger *slog.Logger,
) *Runner {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Runner{
		node:        node,
		clock:       clock,
		out:         out,
		logger:      logger.With("component", "scenario"),
		Invocations: make(map[string]int),
	}
}

// Run registers the scenario's contracts and executes its steps in order. It
// stops at the first step whose outcome does not match its expectation
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]Result, error) {
	for _, contract := range sc.Contracts {
		if err := r.registerContract(contract); err != nil {
			return nil, err
		}
	}
	var results []Result
	for idx, step := range sc.Steps {
		res := Result{Step: idx + 1, Action: step.Action}
		res.Output, res.Err = r.runStep(ctx, step)
		results = append(results, res)
		fmt.Fprintln(r.out, res.String())
		if err := checkExpectation(step, res); err != nil {
			r.logger.Error(
				"scenario step failed",
				"step", res.Step,
				"action", res.Action,
				"error", err,
			)
			return results, err
		}
	}
	return results, nil
}

func checkExpectation(step Step, res Result) error {
	if step.ExpectError == "" {
		if res.Err != nil {
			return fmt.Errorf("%w: step %d: %w", ErrUnexpectedError, res.Step, res.Err)
		}
		return nil
	}
	if res.Err == nil {
		return fmt.Errorf("%w: step %d: %q", ErrMissingError, res.Step, step.ExpectError)
	}
	if !strings.Contains(res.Err.Error(), step.ExpectError) {
		return fmt.Errorf(
			"%w: step %d: expected %q: %w",
			ErrUnexpectedError,
			res.Step,
			step.ExpectError,
			res.Err,
		)
	}
	return nil
}

func (r *Runner) registerContract(contract Contract) error {
	callee, err := Account(contract.Name)
	if err != nil {
		return fmt.Errorf("%w: contract: %w", ErrInvalidScenario, err)
	}
	for _, selName := range contract.Selectors {
		key := contract.Name + "." + selName
		fail := contract.Fail
		r.node.Registry().Register(
			callee,
			call.SelectorFor(selName),
			func(_ context.Context, inv dispatch.Invocation) error {
				r.Invocations[key]++
				fmt.Fprintf(r.out, "  %s invoked (input %x, value %d)\n", key, inv.Input, inv.TransferredValue)
				if fail {
					return errContractFailed
				}
				return nil
			},
		)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (string, error) {
	if step.Action == ActionAdvance {
		height := r.clock.Advance(governance.BlockNumber(step.Blocks))
		return fmt.Sprintf("height %d", height), nil
	}
	caller, err := Account(step.Caller)
	if err != nil {
		return "", err
	}
	switch step.Action {
	case ActionRegister:
		return "ok", r.node.RegisterMember(ctx, caller)
	case ActionDeregister:
		return "ok", r.node.DeregisterMember(ctx, caller)
	case ActionPropose:
		c, err := step.call()
		if err != nil {
			return "", err
		}
		id, err := r.node.CreateProposal(ctx, caller, c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("proposal %d (%s)", id, c.Kind), nil
	case ActionNominate:
		extrinsic, err := decodeHex(step.Nomination.Extrinsic)
		if err != nil {
			return "", fmt.Errorf("extrinsic: %w", err)
		}
		id, err := r.node.Nomination().SuggestValidators(
			ctx,
			caller,
			extrinsic,
			step.Nomination.RefTime,
			step.Nomination.ProofSize,
			step.Nomination.Fee,
		)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("proposal %d (nomination)", id), nil
	case ActionVote:
		vote, err := governance.ParseVote(step.Vote)
		if err != nil {
			return "", err
		}
		id := governance.ProposalID(step.Proposal)
		validators, err := r.isValidatorsProposal(ctx, id)
		if err != nil {
			return "", err
		}
		if validators {
			err = r.node.Nomination().VoteValidators(ctx, caller, id, vote)
		} else {
			err = r.node.Vote(ctx, caller, id, vote)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s on %d", vote, id), nil
	case ActionResolve:
		id := governance.ProposalID(step.Proposal)
		validators, err := r.isValidatorsProposal(ctx, id)
		if err != nil {
			return "", err
		}
		var res *governance.Resolution
		if validators {
			res, err = r.node.Nomination().EnactValidators(ctx, caller, id)
		} else {
			res, err = r.node.ResolveProposal(ctx, caller, id)
		}
		if err != nil {
			return "", err
		}
		if !res.Approved {
			return fmt.Sprintf("rejected (%d/%d ayes)", res.Ayes, res.Threshold), nil
		}
		return fmt.Sprintf("approved and dispatched (%d/%d ayes)", res.Ayes, res.Threshold), nil
	}
	return "", fmt.Errorf("unknown action %q", step.Action)
}

// isValidatorsProposal reports whether id is an open proposal built by the
// nomination pool. Unknown ids are left for the node to reject
func (r *Runner) isValidatorsProposal(
	ctx context.Context,
	id governance.ProposalID,
) (bool, error) {
	prop, ok, err := r.node.Proposal(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	_, validators := nomination.ParseCall(prop.Call)
	return validators, nil
}

func (s Step) call() (call.Call, error) {
	if s.Contract != nil {
		cc, err := s.Contract.Call()
		if err != nil {
			return call.Call{}, err
		}
		return call.Contract(cc), nil
	}
	cc, err := s.Chain.Call()
	if err != nil {
		return call.Call{}, err
	}
	return call.Chain(cc), nil
}
