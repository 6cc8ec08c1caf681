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

package governance

import "fmt"

// DeadlinePolicy selects how the voting period end gates resolution
type DeadlinePolicy uint8

const (
	// DeadlineAfterExpiry allows resolution once height >= VotingPeriodEnd
	DeadlineAfterExpiry DeadlinePolicy = iota
	// DeadlineBeforeExpiry allows resolution only while height <= VotingPeriodEnd
	DeadlineBeforeExpiry
)

func (p DeadlinePolicy) String() string {
	switch p {
	case DeadlineAfterExpiry:
		return "after-expiry"
	case DeadlineBeforeExpiry:
		return "before-expiry"
	default:
		return fmt.Sprintf("DeadlinePolicy(%d)", uint8(p))
	}
}

func ParseDeadlinePolicy(s string) (DeadlinePolicy, error) {
	switch s {
	case "", "after-expiry":
		return DeadlineAfterExpiry, nil
	case "before-expiry":
		return DeadlineBeforeExpiry, nil
	default:
		return 0, fmt.Errorf("%w: unknown deadline policy %q", ErrInvalidConfig, s)
	}
}

func (p DeadlinePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DeadlinePolicy) UnmarshalText(data []byte) error {
	tmp, err := ParseDeadlinePolicy(string(data))
	if err != nil {
		return err
	}
	*p = tmp
	return nil
}

// Config is fixed at engine construction
type Config struct {
	VoteThreshold  uint8
	VotingPeriod   BlockNumber
	DeadlinePolicy DeadlinePolicy
}

func (c Config) Validate() error {
	switch c.DeadlinePolicy {
	case DeadlineAfterExpiry, DeadlineBeforeExpiry:
	default:
		return fmt.Errorf("%w: unknown deadline policy %d", ErrInvalidConfig, c.DeadlinePolicy)
	}
	return nil
}

// resolvable reports whether a proposal ending at end may be resolved at
// height under the configured policy
func (c Config) resolvable(height, end BlockNumber) error {
	if c.DeadlinePolicy == DeadlineBeforeExpiry {
		if height > end {
			return ErrVotingClosed
		}
		return nil
	}
	if height < end {
		return ErrNotYetExpired
	}
	return nil
}
