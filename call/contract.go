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
	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/superdao/account"
)

// Selector identifies the function of a callee
type Selector [4]byte

// SelectorFor derives a selector from a function name by taking the first
// four bytes of its Blake2b-256 hash
func SelectorFor(name string) Selector {
	hash := lcommon.Blake2b256Hash([]byte(name))
	return Selector(hash[:4])
}

// ContractCall invokes a function on another addressable component.
// Re-entry into the caller is forbidden unless AllowReentry is set.
type ContractCall struct {
	cbor.StructAsArray
	Callee           account.ID
	Selector         Selector
	Input            []byte
	TransferredValue uint64
	RefTimeLimit     uint64
	AllowReentry     bool
}
