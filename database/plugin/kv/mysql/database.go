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


package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/superdao/database/plugin/kv/gormkv"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MySQL error returned when the configured database does not exist
const errUnknownDatabase = 1049

// StoreMysql keeps the key-value entries in a MySQL table. The connection is
// opened by Start, creating the database if it is missing
type StoreMysql struct {
	*gormkv.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	tlsMode  string
	dsn      string
}

func NewWithOptions(opts ...StoreMysqlOptionFunc) (*StoreMysql, error) {
	s := &StoreMysql{}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == "" {
		s.host = "localhost"
	}
	if s.port == 0 {
		s.port = 3306
	}
	if s.user == "" {
		s.user = "root"
	}
	if s.database == "" {
		s.database = "superdao"
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s, nil
}

// DSN returns the connection string used by Start
func (s *StoreMysql) DSN() string {
	if dsn := strings.TrimSpace(s.dsn); dsn != "" {
		return dsn
	}
	cfg := mysql.NewConfig()
	cfg.User = s.user
	cfg.Passwd = s.password
	cfg.Net = "tcp"
	cfg.Addr = s.host + ":" + strconv.FormatUint(uint64(s.port), 10)
	cfg.DBName = s.database
	cfg.AllowNativePasswords = true
	if s.tlsMode != "" {
		cfg.Params = map[string]string{"tls": s.tlsMode}
	}
	return cfg.FormatDSN()
}

func (s *StoreMysql) Start() error {
	if s.Store != nil {
		return nil
	}
	dsn := s.DSN()
	store, err := s.open(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if err := createDatabase(dsn); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		if store, err = s.open(dsn); err != nil {
			return err
		}
	}
	s.logger.Info(
		"connected to mysql store",
		"component", "database",
		"host", s.host,
		"port", s.port,
		"database", s.database,
	)
	s.Store = store
	return nil
}

func (s *StoreMysql) open(dsn string) (*gormkv.Store, error) {
	return gormkv.Open(gormkv.Config{
		Dialector:     gormmysql.Open(dsn),
		Logger:        s.logger,
		PromRegistry:  s.promRegistry,
		MetricsPrefix: "superdao_mysql",
	})
}

func (s *StoreMysql) Stop() error {
	return s.Close()
}

func (s *StoreMysql) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// createDatabase connects without a database selected and creates the one
// named in dsn
func createDatabase(dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	dbName := cfg.DBName
	if dbName == "" {
		return errors.New("no database name in DSN")
	}
	cfg.DBName = ""
	adminDb, err := gorm.Open(
		gormmysql.Open(cfg.FormatDSN()),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	return adminDb.Exec(
		fmt.Sprintf(
			"CREATE DATABASE IF NOT EXISTS `%s`",
			strings.ReplaceAll(dbName, "`", "``"),
		),
	).Error
}
