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

// Package kv defines the transactional key-value store that backs the
// governance database, and selects an implementation by plugin name.
package kv

import (
	"fmt"

	"github.com/blinklabs-io/superdao/database/plugin"
	"github.com/blinklabs-io/superdao/database/types"
)

type Store interface {
	plugin.Plugin
	Close() error
	// NewTransaction starts a transaction. Writes are only allowed when
	// update is true.
	NewTransaction(update bool) types.Txn
	Get(txn types.Txn, key []byte) ([]byte, error)
	Set(txn types.Txn, key, val []byte) error
	Delete(txn types.Txn, key []byte) error
	NewIterator(txn types.Txn, opts types.IteratorOptions) types.Iterator
}

// New returns the started store plugin selected by name
func New(pluginName string, env plugin.Environment) (Store, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeStore, pluginName, env)
	if err != nil {
		return nil, err
	}
	store, ok := p.(Store)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement Store interface",
			pluginName,
		)
	}
	return store, nil
}
