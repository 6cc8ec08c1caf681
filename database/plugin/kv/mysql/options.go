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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type StoreMysqlOptionFunc func(*StoreMysql)

func WithLogger(logger *slog.Logger) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.logger = logger
	}
}

func WithPromRegistry(
	registry prometheus.Registerer,
) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.promRegistry = registry
	}
}

func WithHost(host string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.host = host
	}
}

func WithPort(port uint) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.port = port
	}
}

func WithUser(user string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.user = user
	}
}

func WithPassword(password string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.password = password
	}
}

func WithDatabase(database string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.database = database
	}
}

func WithTLSMode(tlsMode string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.tlsMode = tlsMode
	}
}

func WithDSN(dsn string) StoreMysqlOptionFunc {
	return func(s *StoreMysql) {
		s.dsn = dsn
	}
}
