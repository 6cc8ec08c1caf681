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


package postgres_test

import (
	"os"
	"testing"

	"github.com/blinklabs-io/superdao/database/plugin/kv"
	"github.com/blinklabs-io/superdao/database/plugin/kv/gormkv"
	"github.com/blinklabs-io/superdao/database/plugin/kv/kvtest"
	"github.com/blinklabs-io/superdao/database/plugin/kv/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	s, err := postgres.NewWithOptions(
		postgres.WithHost("db.example"),
		postgres.WithPassword("secret"),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"host=db.example user=postgres password=secret dbname=superdao port=5432 sslmode=disable",
		s.DSN(),
	)

	s, err = postgres.NewWithOptions(
		postgres.WithTimeZone("UTC"),
		postgres.WithDSN("  postgres://u:p@h/db  "),
	)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", s.DSN())
}

func TestCloseBeforeStart(t *testing.T) {
	s, err := postgres.NewWithOptions()
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}

func TestStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip(
			"Skipping postgres integration test: set POSTGRES_DSN to run",
		)
	}
	kvtest.RunStoreTests(t, func(t *testing.T) kv.Store {
		s, err := postgres.NewWithOptions(postgres.WithDSN(dsn))
		require.NoError(t, err)
		require.NoError(t, s.Start())
		t.Cleanup(func() { _ = s.Close() })
		// Each subtest starts from an empty table
		require.NoError(
			t,
			s.DB().Exec("DELETE FROM "+gormkv.TableName).Error,
		)
		return s
	})
}
