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


// Package gormkv implements the key-value store contract on top of a
// relational database through gorm. The sqlite, postgres and mysql store
// plugins differ only in the dialector they open.
package gormkv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/blinklabs-io/superdao/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const TableName = "kv_entries"

// Entry is a single stored key. Keys are bounded so that engines requiring a
// sized primary key (MySQL) map them to varbinary
type Entry struct {
	Key   []byte `gorm:"column:entry_key;primaryKey;size:255"`
	Value []byte `gorm:"column:entry_value;not null"`
}

func (Entry) TableName() string {
	return TableName
}

type Config struct {
	Dialector    gorm.Dialector
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// MetricsPrefix names the connection gauge, e.g. superdao_sqlite
	MetricsPrefix string
	// MaxOpenConns limits the connection pool. Zero leaves it unbounded
	MaxOpenConns int
}

type Store struct {
	db        *gorm.DB
	logger    *slog.Logger
	closeOnce sync.Once
}

// Open connects using cfg.Dialector and migrates the entry table
func Open(cfg Config) (*Store, error) {
	if cfg.Dialector == nil {
		return nil, errors.New("no database dialector configured")
	}
	s := &Store{
		logger: cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	db, err := gorm.Open(
		cfg.Dialector,
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	s.db = db
	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		_ = sqlDb.Close()
		return nil, err
	}
	s.logger.Debug(
		"creating table",
		"component", "database",
		"table", TableName,
	)
	if err := db.AutoMigrate(&Entry{}); err != nil {
		_ = sqlDb.Close()
		return nil, err
	}
	if cfg.PromRegistry != nil && cfg.MetricsPrefix != "" {
		promauto.With(cfg.PromRegistry).NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: cfg.MetricsPrefix + "_in_use_connections",
				Help: "number of database connections currently in use",
			},
			func() float64 {
				return float64(sqlDb.Stats().InUse)
			},
		)
	}
	return s, nil
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		sqlDb, dbErr := s.db.DB()
		if dbErr != nil {
			err = fmt.Errorf("get database handle: %w", dbErr)
			return
		}
		err = sqlDb.Close()
	})
	return err
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

type gormTxn struct {
	store    *Store
	tx       *gorm.DB
	update   bool
	finished bool
}

func (t *gormTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.update {
		return t.tx.Rollback().Error
	}
	return t.tx.Commit().Error
}

func (t *gormTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback().Error
}

func (s *Store) NewTransaction(update bool) types.Txn {
	return &gormTxn{
		store:  s,
		tx:     s.db.Begin(),
		update: update,
	}
}

func (s *Store) validateTxn(txn types.Txn) (*gormTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	gTxn, ok := txn.(*gormTxn)
	if !ok || gTxn.store != s {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if gTxn.tx.Error != nil {
		return nil, gTxn.tx.Error
	}
	return gTxn, nil
}

func (s *Store) writableTxn(txn types.Txn) (*gormTxn, error) {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if !gTxn.update {
		return nil, types.ErrReadOnlyTxn
	}
	return gTxn, nil
}

func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	var entry Entry
	result := gTxn.tx.Where("entry_key = ?", key).Take(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrKeyNotFound
		}
		return nil, result.Error
	}
	return entry.Value, nil
}

func (s *Store) Set(txn types.Txn, key, val []byte) error {
	gTxn, err := s.writableTxn(txn)
	if err != nil {
		return err
	}
	if val == nil {
		val = []byte{}
	}
	return gTxn.tx.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&Entry{Key: key, Value: val}).Error
}

func (s *Store) Delete(txn types.Txn, key []byte) error {
	gTxn, err := s.writableTxn(txn)
	if err != nil {
		return err
	}
	return gTxn.tx.Where("entry_key = ?", key).Delete(&Entry{}).Error
}

// NewIterator loads the entries under the prefix in key order. Key ordering
// relies on the engine comparing binary columns bytewise
func (s *Store) NewIterator(
	txn types.Txn,
	opts types.IteratorOptions,
) types.Iterator {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return &iterator{err: err}
	}
	var entries []Entry
	query := gTxn.tx.Order("entry_key")
	if len(opts.Prefix) > 0 {
		query = query.Where("entry_key >= ?", opts.Prefix)
		if upper := prefixSuccessor(opts.Prefix); upper != nil {
			query = query.Where("entry_key < ?", upper)
		}
	}
	result := query.Find(&entries)
	if result.Error != nil {
		return &iterator{err: result.Error}
	}
	end := len(entries)
	for i, entry := range entries {
		if !bytes.HasPrefix(entry.Key, opts.Prefix) {
			end = i
			break
		}
	}
	return &iterator{entries: entries[:end]}
}

// prefixSuccessor returns the smallest key greater than every key starting
// with prefix, or nil when no such key exists (prefix is all 0xff)
func prefixSuccessor(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			ret := bytes.Clone(prefix[:i+1])
			ret[i]++
			return ret
		}
	}
	return nil
}

type iterator struct {
	err     error
	entries []Entry
	pos     int
}

func (it *iterator) Rewind() { it.pos = 0 }

func (it *iterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.entries), func(i int) bool {
		return bytes.Compare(it.entries[i].Key, key) >= 0
	})
}

func (it *iterator) Valid() bool {
	return it.pos < len(it.entries)
}

func (it *iterator) ValidForPrefix(prefix []byte) bool {
	return it.Valid() && bytes.HasPrefix(it.entries[it.pos].Key, prefix)
}

func (it *iterator) Next() { it.pos++ }

func (it *iterator) Item() types.Item {
	if !it.Valid() {
		return nil
	}
	return &item{entry: it.entries[it.pos]}
}

func (it *iterator) Close()     { it.entries = nil }
func (it *iterator) Err() error { return it.err }

type item struct {
	entry Entry
}

func (i *item) Key() []byte {
	return bytes.Clone(i.entry.Key)
}

func (i *item) ValueCopy(dst []byte) ([]byte, error) {
	return append(dst[:0], i.entry.Value...), nil
}
