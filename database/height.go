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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/superdao/database/types"
	"github.com/blinklabs-io/superdao/governance"
)

// LastHeight returns the highest block height recorded so far, or 0 when
// nothing has been recorded
func (d *Database) LastHeight() (governance.BlockNumber, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ret governance.BlockNumber
	err := d.Transaction(false).Do(func(txn *Txn) error {
		var err error
		ret, err = lastHeight(txn)
		return err
	})
	if err != nil {
		return 0, err
	}
	return ret, nil
}

// RecordHeight stores height unless a higher one is already recorded
func (d *Database) RecordHeight(height governance.BlockNumber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Transaction(true).Do(func(txn *Txn) error {
		last, err := lastHeight(txn)
		if err != nil {
			return err
		}
		if height <= last {
			return nil
		}
		data, err := cbor.Encode(uint32(height))
		if err != nil {
			return err
		}
		return txn.Set([]byte(types.LastHeightKey), data)
	})
}

func lastHeight(txn *Txn) (governance.BlockNumber, error) {
	data, err := txn.Get([]byte(types.LastHeightKey))
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var height uint32
	if _, err := cbor.Decode(data, &height); err != nil {
		return 0, fmt.Errorf("decode last height: %w", err)
	}
	return governance.BlockNumber(height), nil
}
