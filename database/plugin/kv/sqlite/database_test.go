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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/superdao/database/plugin/kv"
	"github.com/blinklabs-io/superdao/database/plugin/kv/kvtest"
	"github.com/blinklabs-io/superdao/database/plugin/kv/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	kvtest.RunStoreTests(t, func(t *testing.T) kv.Store {
		s, err := sqlite.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDiskStore(t *testing.T) {
	kvtest.RunStoreTests(t, func(t *testing.T) kv.Store {
		s, err := sqlite.New(sqlite.WithDataDir(t.TempDir()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	s1, err := sqlite.New()
	require.NoError(t, err)
	defer s1.Close() //nolint:errcheck
	s2, err := sqlite.New()
	require.NoError(t, err)
	defer s2.Close() //nolint:errcheck

	txn := s1.NewTransaction(true)
	require.NoError(t, s1.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())

	txn = s2.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = s2.Get(txn, []byte("k"))
	require.Error(t, err)
}

func TestDiskStorePersists(t *testing.T) {
	dataDir := t.TempDir()
	s, err := sqlite.New(sqlite.WithDataDir(dataDir))
	require.NoError(t, err)
	txn := s.NewTransaction(true)
	require.NoError(t, s.Set(txn, []byte("key"), nil))
	require.NoError(t, txn.Commit())
	require.NoError(t, s.Close())

	s, err = sqlite.New(sqlite.WithDataDir(dataDir))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	txn = s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := s.Get(txn, []byte("key"))
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := sqlite.New(sqlite.WithPromRegistry(reg))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	count, err := testutil.GatherAndCount(
		reg,
		"superdao_sqlite_in_use_connections",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
