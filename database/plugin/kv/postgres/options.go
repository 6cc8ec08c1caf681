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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type StorePostgresOptionFunc func(*StorePostgres)

func WithLogger(logger *slog.Logger) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.logger = logger
	}
}

func WithPromRegistry(
	registry prometheus.Registerer,
) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.promRegistry = registry
	}
}

func WithHost(host string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.host = host
	}
}

func WithPort(port uint) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.port = port
	}
}

func WithUser(user string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.user = user
	}
}

func WithPassword(password string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.password = password
	}
}

func WithDatabase(database string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.database = database
	}
}

func WithSSLMode(sslMode string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.sslMode = sslMode
	}
}

func WithTimeZone(timeZone string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.timeZone = timeZone
	}
}

// WithDSN sets a full connection string, which takes precedence over the
// individual connection options
func WithDSN(dsn string) StorePostgresOptionFunc {
	return func(s *StorePostgres) {
		s.dsn = dsn
	}
}
