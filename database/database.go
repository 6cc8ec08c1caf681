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

// Package database persists governance state and the outbound message queue
// in a pluggable key-value store
package database

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/superdao/database/plugin"
	"github.com/blinklabs-io/superdao/database/plugin/kv"
	"github.com/blinklabs-io/superdao/governance"
	"github.com/prometheus/client_golang/prometheus"

	// Register store plugins
	_ "github.com/blinklabs-io/superdao/database/plugin/kv/badger"
	_ "github.com/blinklabs-io/superdao/database/plugin/kv/mysql"
	_ "github.com/blinklabs-io/superdao/database/plugin/kv/postgres"
	_ "github.com/blinklabs-io/superdao/database/plugin/kv/sqlite"
)

const DefaultStorePlugin = "badger"

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir overrides the store plugin's data-dir option when set
	DataDir     string
	StorePlugin string
	// Store is used as-is when set and bypasses the plugin registry
	Store kv.Store
}

// Database serializes access to the underlying store. Updates are exclusive
// and views may run concurrently
type Database struct {
	logger  *slog.Logger
	store   kv.Store
	metrics databaseMetrics
	mu      sync.RWMutex
}

var _ governance.Store = (*Database)(nil)

// New creates a new database
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	store := cfg.Store
	if store == nil {
		pluginName := cfg.StorePlugin
		if pluginName == "" {
			pluginName = DefaultStorePlugin
		}
		if cfg.DataDir != "" {
			if err := plugin.SetPluginOption(
				plugin.PluginTypeStore,
				pluginName,
				"data-dir",
				cfg.DataDir,
			); err != nil {
				return nil, err
			}
		}
		var err error
		store, err = kv.New(
			pluginName,
			plugin.Environment{
				Logger:       logger,
				PromRegistry: cfg.PromRegistry,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	d := &Database{
		logger: logger,
		store:  store,
	}
	d.initMetrics(cfg.PromRegistry)
	if err := d.initOutboxMetrics(); err != nil {
		return d, errors.Join(err, store.Close())
	}
	return d, nil
}

func (d *Database) Logger() *slog.Logger {
	return d.logger
}

func (d *Database) Store() kv.Store {
	return d.store
}

// Transaction starts a raw store transaction. Callers are responsible for
// their own serialization; View and Update handle it for governance state
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// View runs fn against a read-only snapshot of governance state
func (d *Database) View(fn func(governance.State) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Transaction(false).Do(func(txn *Txn) error {
		return fn(&kvState{txn: txn})
	})
}

// Update runs fn in a read-write transaction that commits only if fn
// returns nil
func (d *Database) Update(fn func(governance.State) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.Transaction(true).Do(func(txn *Txn) error {
		return fn(&kvState{txn: txn})
	})
	if err != nil {
		d.metrics.rollbacks.Inc()
		return err
	}
	d.metrics.commits.Inc()
	return nil
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Close()
}
