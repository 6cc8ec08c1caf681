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


package postgres

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/superdao/database/plugin/kv/gormkv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
)

// StorePostgres keeps the key-value entries in a Postgres table. The
// connection is opened by Start
type StorePostgres struct {
	*gormkv.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
}

func NewWithOptions(opts ...StorePostgresOptionFunc) (*StorePostgres, error) {
	s := &StorePostgres{}
	for _, opt := range opts {
		opt(s)
	}
	// Set defaults after options are applied
	if s.host == "" {
		s.host = "localhost"
	}
	if s.port == 0 {
		s.port = 5432
	}
	if s.user == "" {
		s.user = "postgres"
	}
	if s.database == "" {
		s.database = "superdao"
	}
	if s.sslMode == "" {
		s.sslMode = "disable"
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s, nil
}

// DSN returns the connection string used by Start
func (s *StorePostgres) DSN() string {
	if dsn := strings.TrimSpace(s.dsn); dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + s.host,
		"user=" + s.user,
		"password=" + s.password,
		"dbname=" + s.database,
		"port=" + strconv.FormatUint(uint64(s.port), 10),
		"sslmode=" + s.sslMode,
	}
	if s.timeZone != "" {
		parts = append(parts, "TimeZone="+s.timeZone)
	}
	return strings.Join(parts, " ")
}

func (s *StorePostgres) Start() error {
	if s.Store != nil {
		return nil
	}
	store, err := gormkv.Open(gormkv.Config{
		Dialector:     postgres.Open(s.DSN()),
		Logger:        s.logger,
		PromRegistry:  s.promRegistry,
		MetricsPrefix: "superdao_postgres",
	})
	if err != nil {
		return err
	}
	s.logger.Info(
		"connected to postgres store",
		"component", "database",
		"host", s.host,
		"port", s.port,
		"database", s.database,
	)
	s.Store = store
	return nil
}

func (s *StorePostgres) Stop() error {
	return s.Close()
}

func (s *StorePostgres) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
