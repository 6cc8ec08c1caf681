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
	"fmt"
	"sync"

	"github.com/blinklabs-io/superdao/database/types"
)

// Txn wraps a store transaction with commit/rollback bookkeeping
type Txn struct {
	db        *Database
	txn       types.Txn
	lock      sync.Mutex
	finished  bool
	readWrite bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		txn:       db.store.NewTransaction(readWrite),
		readWrite: readWrite,
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// Get returns types.ErrKeyNotFound for a missing key
func (t *Txn) Get(key []byte) ([]byte, error) {
	return t.db.store.Get(t.txn, key)
}

func (t *Txn) Set(key, val []byte) error {
	return t.db.store.Set(t.txn, key, val)
}

func (t *Txn) Delete(key []byte) error {
	return t.db.store.Delete(t.txn, key)
}

func (t *Txn) NewIterator(prefix []byte) types.Iterator {
	return t.db.store.NewIterator(
		t.txn,
		types.IteratorOptions{Prefix: prefix},
	)
}

// Do executes the specified function in the context of the transaction. Any
// returned error will be propagated back to the caller after the transaction
// is rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		return t.txn.Rollback()
	}
	return t.txn.Commit()
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	return t.txn.Rollback()
}
