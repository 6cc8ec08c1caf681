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


package gormkv_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/superdao/database/plugin/kv/gormkv"
	"github.com/blinklabs-io/superdao/database/types"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbCounter atomic.Uint64

func openStore(t *testing.T, reg prometheus.Registerer) *gormkv.Store {
	t.Helper()
	s, err := gormkv.Open(gormkv.Config{
		Dialector: sqlite.Open(
			fmt.Sprintf(
				"file:gormkv-test-%d?mode=memory&cache=shared",
				dbCounter.Add(1),
			),
		),
		PromRegistry:  reg,
		MetricsPrefix: "test_kv",
		MaxOpenConns:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenWithoutDialector(t *testing.T) {
	_, err := gormkv.Open(gormkv.Config{})
	require.Error(t, err)
}

func TestTxnFromOtherStore(t *testing.T) {
	s1 := openStore(t, nil)
	s2 := openStore(t, nil)
	txn := s1.NewTransaction(true)
	defer txn.Rollback() //nolint:errcheck
	err := s2.Set(txn, []byte("k"), []byte("v"))
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestUpsertAndIterateEmptyPrefix(t *testing.T) {
	s := openStore(t, nil)
	txn := s.NewTransaction(true)
	require.NoError(t, s.Set(txn, []byte("b"), []byte("1")))
	require.NoError(t, s.Set(txn, []byte("a"), []byte("2")))
	require.NoError(t, s.Set(txn, []byte("b"), []byte("3")))
	require.NoError(t, txn.Commit())

	txn = s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	it := s.NewIterator(txn, types.IteratorOptions{})
	defer it.Close()
	var keys, vals []string
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		require.NoError(t, err)
		keys = append(keys, string(item.Key()))
		vals = append(vals, string(val))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, []string{"2", "3"}, vals)
}

func TestConnectionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	openStore(t, reg)
	count, err := testutil.GatherAndCount(reg, "test_kv_in_use_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
