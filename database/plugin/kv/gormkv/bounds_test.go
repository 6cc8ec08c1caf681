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

package gormkv

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/blinklabs-io/superdao/database/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPrefixSuccessor(t *testing.T) {
	testDefs := []struct {
		prefix   []byte
		expected []byte
	}{
		{prefix: []byte("o"), expected: []byte("p")},
		{prefix: []byte{'o', 0xff}, expected: []byte("p")},
		{prefix: []byte{'a', 0x01, 0xff, 0xff}, expected: []byte{'a', 0x02}},
		{prefix: []byte{0xff}, expected: nil},
		{prefix: []byte{0xff, 0xff}, expected: nil},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.expected,
			prefixSuccessor(testDef.prefix),
			"prefix %x",
			testDef.prefix,
		)
	}
}

func TestIteratorReadsOnlyPrefixRows(t *testing.T) {
	s, err := Open(Config{
		Dialector: sqlite.Open(
			fmt.Sprintf("file:gormkv-bounds-%s?mode=memory&cache=shared", t.Name()),
		),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	txn := s.NewTransaction(true)
	for _, key := range [][]byte{
		[]byte("ma"),
		{'o', 0, 1},
		{'o', 0, 2},
		{'o', 0xff},
		[]byte("p1"),
		[]byte("p2"),
		[]byte("t1"),
		{0xff, 0x01},
	} {
		require.NoError(t, s.Set(txn, key, []byte("v")))
	}
	require.NoError(t, txn.Commit())

	var rowsRead int64
	err = s.db.Callback().Query().After("gorm:query").Register(
		"test:rows_read",
		func(db *gorm.DB) {
			rowsRead = db.RowsAffected
		},
	)
	require.NoError(t, err)

	scan := func(prefix []byte) [][]byte {
		txn := s.NewTransaction(false)
		defer txn.Rollback() //nolint:errcheck
		it := s.NewIterator(txn, types.IteratorOptions{Prefix: prefix})
		defer it.Close()
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, bytes.Clone(it.Item().Key()))
		}
		require.NoError(t, it.Err())
		return keys
	}

	assert.Equal(t, [][]byte{{'o', 0, 1}, {'o', 0, 2}, {'o', 0xff}}, scan([]byte("o")))
	assert.Equal(t, int64(3), rowsRead)
	assert.Equal(t, [][]byte{{0xff, 0x01}}, scan([]byte{0xff}))
	assert.Equal(t, int64(1), rowsRead)
}
