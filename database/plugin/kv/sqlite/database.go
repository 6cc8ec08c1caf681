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


package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/blinklabs-io/superdao/database/plugin/kv/gormkv"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

var memoryDbCounter atomic.Uint64

type StoreSqlite struct {
	*gormkv.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	dataDir      string
}

func New(opts ...StoreSqliteOptionFunc) (*StoreSqlite, error) {
	s := &StoreSqlite{}
	for _, opt := range opts {
		opt(s)
	}
	var dsn string
	if s.dataDir == "" {
		// Each in-memory store gets its own shared-cache database
		dsn = fmt.Sprintf(
			"file:superdao-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		)
	} else {
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			filepath.Join(s.dataDir, "kv.sqlite"),
		)
	}
	store, err := gormkv.Open(gormkv.Config{
		Dialector:     sqlite.Open(dsn),
		Logger:        s.logger,
		PromRegistry:  s.promRegistry,
		MetricsPrefix: "superdao_sqlite",
		// A single connection keeps the in-memory database alive and avoids
		// shared-cache table locks
		MaxOpenConns: 1,
	})
	if err != nil {
		return nil, err
	}
	s.Store = store
	return s, nil
}

func (s *StoreSqlite) Start() error {
	return nil
}

func (s *StoreSqlite) Stop() error {
	return s.Close()
}
