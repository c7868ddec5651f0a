// Copyright 2025 Google LLC
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

package clickhouse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/goccy/go-yaml"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlengine"
)

const SourceKind string = "clickhouse"

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum lifetime of a connection.
	DefaultConnMaxLifetime = 5 * time.Minute
)

// validate interface
var _ sources.SourceConfig = Config{}

func init() {
	if !sources.Register(SourceKind, newConfig) {
		panic(fmt.Sprintf("source kind %q already registered", SourceKind))
	}
}

func newConfig(ctx context.Context, name string, decoder *yaml.Decoder) (sources.SourceConfig, error) {
	actual := Config{Name: name}
	if err := decoder.DecodeContext(ctx, &actual); err != nil {
		return nil, err
	}
	return actual, nil
}

type Config struct {
	Name            string `yaml:"name" validate:"required"`
	Kind            string `yaml:"kind" validate:"required"`
	Host            string `yaml:"host" validate:"required"`
	Port            string `yaml:"port" validate:"required"`
	Database        string `yaml:"database" validate:"required"`
	User            string `yaml:"user" validate:"required"`
	Password        string `yaml:"password"`
	Protocol        string `yaml:"protocol"`
	Secure          bool   `yaml:"secure"`
	MaxOpenConns    *int   `yaml:"maxOpenConns" validate:"omitempty,gt=0"`
	MaxIdleConns    *int   `yaml:"maxIdleConns" validate:"omitempty,gt=0"`
	ConnMaxLifetime string `yaml:"connMaxLifetime"`
}

func (r Config) SourceConfigKind() string {
	return SourceKind
}

func (r Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Engine, error) {
	db, err := initClickHouseConnection(ctx, tracer, r)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}

	return sqlengine.New(SourceKind, db, relalg.ClickHouseDialect{}, schemaQueryFor(r.Database), typeMapper), nil
}

func validateConfig(protocol string) error {
	validProtocols := map[string]bool{"http": true, "https": true}

	if protocol != "" && !validProtocols[protocol] {
		return fmt.Errorf("invalid protocol: %s, must be one of: http, https", protocol)
	}
	return nil
}

func initClickHouseConnection(ctx context.Context, tracer trace.Tracer, config Config) (*sqlx.DB, error) {
	//nolint:all // Reassigned ctx
	ctx, span := sources.InitConnectionSpan(ctx, tracer, SourceKind, config.Name)
	defer span.End()

	protocol := config.Protocol
	if protocol == "" {
		protocol = "https"
	}

	if err := validateConfig(protocol); err != nil {
		return nil, err
	}

	encodedUser := url.QueryEscape(config.User)
	encodedPass := url.QueryEscape(config.Password)

	scheme := protocol
	if protocol == "http" && config.Secure {
		scheme = "https"
	}
	dsn := fmt.Sprintf("%s://%s:%s@%s:%s/%s", scheme, encodedUser, encodedPass, config.Host, config.Port, config.Database)
	if scheme == "https" {
		dsn += "?secure=true&skip_verify=false"
	}

	db, err := sqlx.ConnectContext(ctx, "clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	maxOpen := DefaultMaxOpenConns
	if config.MaxOpenConns != nil {
		maxOpen = *config.MaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)

	maxIdle := DefaultMaxIdleConns
	if config.MaxIdleConns != nil {
		maxIdle = *config.MaxIdleConns
	}
	db.SetMaxIdleConns(maxIdle)

	connLifetime := DefaultConnMaxLifetime
	if config.ConnMaxLifetime != "" {
		parsedLifetime, err := time.ParseDuration(config.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("invalid connMaxLifetime %q: %w", config.ConnMaxLifetime, err)
		}
		connLifetime = parsedLifetime
	}
	db.SetConnMaxLifetime(connLifetime)

	return db, nil
}

func schemaQueryFor(database string) func(schemaName, tableName string) (string, []any) {
	return func(schemaName, tableName string) (string, []any) {
		db := schemaName
		if db == "" {
			db = database
		}
		return `SELECT name, type FROM system.columns WHERE database = ? AND table = ? ORDER BY position`,
			[]any{db, tableName}
	}
}

func typeMapper(dbType string) relalg.ColumnKind {
	switch {
	case strings.Contains(dbType, "Int"):
		return relalg.KindInt64
	case strings.Contains(dbType, "Float"), strings.Contains(dbType, "Decimal"):
		return relalg.KindFloat64
	case dbType == "Bool":
		return relalg.KindBool
	case strings.Contains(dbType, "FixedString"), strings.Contains(dbType, "String"):
		return relalg.KindString
	case dbType == "Date" || dbType == "Date32":
		return relalg.KindDate
	case strings.Contains(dbType, "DateTime"):
		return relalg.KindTimestamp
	default:
		return relalg.KindUnknown
	}
}
