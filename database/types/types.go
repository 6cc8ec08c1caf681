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

package types

import "errors"

// ErrKeyNotFound is returned by store operations when a key is missing
var ErrKeyNotFound = errors.New("key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrTxnFinished is returned when a committed or rolled back transaction is used
var ErrTxnFinished = errors.New("transaction already finished")

// ErrReadOnlyTxn is returned when writing through a read-only transaction
var ErrReadOnlyTxn = errors.New("read-only transaction")

// Item represents a value returned by an iterator
type Item interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// Iterator provides ordered key iteration over a store. Items must only be
// accessed while the transaction used to create the iterator is active.
type Iterator interface {
	Rewind()
	Seek(key []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() Item
	Close()
	Err() error
}

// IteratorOptions configures iterator creation
type IteratorOptions struct {
	Prefix []byte
}

// Txn is a transaction handle for commit/rollback only
type Txn interface {
	Commit() error
	Rollback() error
}
