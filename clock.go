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

package superdao

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/blinklabs-io/superdao/governance"
)

var ErrHeightRegression = errors.New("block height cannot move backward")

// HeightSource provides the current block height to the node. Heights must
// never decrease
type HeightSource interface {
	Height() governance.BlockNumber
}

// ManualClock is a HeightSource advanced explicitly by its owner
type ManualClock struct {
	height atomic.Uint32
}

func NewManualClock(start governance.BlockNumber) *ManualClock {
	c := &ManualClock{}
	c.height.Store(uint32(start))
	return c
}

func (c *ManualClock) Height() governance.BlockNumber {
	return governance.BlockNumber(c.height.Load())
}

// Set moves the clock to height, which must not be below the current height
func (c *ManualClock) Set(height governance.BlockNumber) error {
	for {
		cur := c.height.Load()
		if uint32(height) < cur {
			return fmt.Errorf("%w: %d < %d", ErrHeightRegression, height, cur)
		}
		if c.height.CompareAndSwap(cur, uint32(height)) {
			return nil
		}
	}
}

// Advance moves the clock forward, stopping at the maximum height, and
// returns the new height
func (c *ManualClock) Advance(blocks governance.BlockNumber) governance.BlockNumber {
	for {
		cur := c.height.Load()
		next := uint64(cur) + uint64(blocks)
		if next > math.MaxUint32 {
			next = math.MaxUint32
		}
		if c.height.CompareAndSwap(cur, uint32(next)) {
			return governance.BlockNumber(next)
		}
	}
}
