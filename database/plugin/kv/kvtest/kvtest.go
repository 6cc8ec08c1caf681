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

// Package kvtest holds behavior tests shared by every kv.Store plugin
package kvtest

import (
	"testing"

	"github.com/blinklabs-io/superdao/database/plugin/kv"
	"github.com/blinklabs-io/superdao/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests exercises a store returned by newStore. Each subtest gets a
// fresh, empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Run("SetGetDelete", func(t *testing.T) {
		s := newStore(t)
		txn := s.NewTransaction(true)
		require.NoError(t, s.Set(txn, []byte("a"), []byte("1")))
		val, err := s.Get(txn, []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), val)
		require.NoError(t, txn.Commit())

		txn = s.NewTransaction(true)
		require.NoError(t, s.Set(txn, []byte("a"), []byte("2")))
		require.NoError(t, txn.Commit())
		txn = s.NewTransaction(false)
		val, err = s.Get(txn, []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), val)
		require.NoError(t, txn.Rollback())

		txn = s.NewTransaction(true)
		require.NoError(t, s.Delete(txn, []byte("a")))
		require.NoError(t, txn.Commit())
		txn = s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
		_, err = s.Get(txn, []byte("a"))
		require.ErrorIs(t, err, types.ErrKeyNotFound)
	})

	t.Run("RollbackDiscards", func(t *testing.T) {
		s := newStore(t)
		txn := s.NewTransaction(true)
		require.NoError(t, s.Set(txn, []byte("k"), []byte("v")))
		require.NoError(t, txn.Rollback())
		txn = s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
		_, err := s.Get(txn, []byte("k"))
		require.ErrorIs(t, err, types.ErrKeyNotFound)
	})

	t.Run("ReadOnlyTxn", func(t *testing.T) {
		s := newStore(t)
		txn := s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
		require.ErrorIs(t, s.Set(txn, []byte("k"), []byte("v")), types.ErrReadOnlyTxn)
		require.ErrorIs(t, s.Delete(txn, []byte("k")), types.ErrReadOnlyTxn)
	})

	t.Run("FinishedTxn", func(t *testing.T) {
		s := newStore(t)
		txn := s.NewTransaction(true)
		require.NoError(t, txn.Commit())
		require.NoError(t, txn.Commit())
		require.ErrorIs(t, s.Set(txn, []byte("k"), []byte("v")), types.ErrTxnFinished)
		_, err := s.Get(nil, []byte("k"))
		require.ErrorIs(t, err, types.ErrNilTxn)
	})

	t.Run("PrefixIteration", func(t *testing.T) {
		s := newStore(t)
		txn := s.NewTransaction(true)
		for _, key := range []string{"o\x00\x02", "o\x00\x01", "p\x00", "n", "o\x00\x03"} {
			require.NoError(t, s.Set(txn, []byte(key), []byte("v"+key)))
		}
		require.NoError(t, txn.Commit())

		txn = s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
		prefix := []byte("o")
		iter := s.NewIterator(txn, types.IteratorOptions{Prefix: prefix})
		var keys []string
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			keys = append(keys, string(item.Key()))
			val, err := item.ValueCopy(nil)
			require.NoError(t, err)
			assert.Equal(t, "v"+string(item.Key()), string(val))
		}
		require.NoError(t, iter.Err())
		iter.Close()
		assert.Equal(t, []string{"o\x00\x01", "o\x00\x02", "o\x00\x03"}, keys)

		iter = s.NewIterator(txn, types.IteratorOptions{Prefix: prefix})
		count := 0
		for iter.Seek([]byte("o\x00\x02")); iter.ValidForPrefix(prefix); iter.Next() {
			count++
		}
		iter.Close()
		assert.Equal(t, 2, count)
	})
}
