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

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/superdao/database/plugin/kv"
	"github.com/blinklabs-io/superdao/database/plugin/kv/badger"
	"github.com/blinklabs-io/superdao/database/plugin/kv/kvtest"
	"github.com/blinklabs-io/superdao/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	kvtest.RunStoreTests(t, func(t *testing.T) kv.Store {
		s, err := badger.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDiskStore(t *testing.T) {
	kvtest.RunStoreTests(t, func(t *testing.T) kv.Store {
		s, err := badger.New(badger.WithDataDir(t.TempDir()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDiskStorePersists(t *testing.T) {
	dataDir := t.TempDir()
	s, err := badger.New(badger.WithDataDir(dataDir), badger.WithGc(false))
	require.NoError(t, err)
	txn := s.NewTransaction(true)
	require.NoError(t, s.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Commit())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = badger.New(badger.WithDataDir(dataDir))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	txn = s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := s.Get(txn, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
}

func TestWrongTxnType(t *testing.T) {
	s1, err := badger.New()
	require.NoError(t, err)
	defer s1.Close() //nolint:errcheck
	s2, err := badger.New()
	require.NoError(t, err)
	defer s2.Close() //nolint:errcheck
	txn := s1.NewTransaction(true)
	defer txn.Rollback() //nolint:errcheck
	require.ErrorIs(t, s2.Set(txn, []byte("k"), nil), types.ErrTxnWrongType)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := badger.New(badger.WithPromRegistry(reg))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	count, err := testutil.GatherAndCount(
		reg,
		"superdao_badger_lsm_size_bytes",
		"superdao_badger_vlog_size_bytes",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
