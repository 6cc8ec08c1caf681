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

	"github.com/blinklabs-io/superdao/account"
	"github.com/blinklabs-io/superdao/call"
)

// Frame marks a context as running inside a dispatched contract call
type Frame struct {
	Callee       account.ID
	Selector     call.Selector
	AllowReentry bool
}

type frameContextKey struct{}

// withFrame is only used when invoking a contract call
func withFrame(ctx context.Context, frame Frame) context.Context {
	return context.WithValue(ctx, frameContextKey{}, frame)
}

// FrameFromContext returns the innermost call frame, if any
func FrameFromContext(ctx context.Context) (Frame, bool) {
	frame, ok := ctx.Value(frameContextKey{}).(Frame)
	return frame, ok
}

// CheckReentry returns ErrReentrancyDenied when ctx is inside a call frame
// that does not allow re-entry. The second return value reports whether ctx
// is re-entrant at all.
func CheckReentry(ctx context.Context) (bool, error) {
	frame, ok := FrameFromContext(ctx)
	if !ok {
		return false, nil
	}
	if !frame.AllowReentry {
		return true, ErrReentrancyDenied
	}
	return true, nil
}
