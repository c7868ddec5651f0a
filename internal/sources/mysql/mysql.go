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

package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlengine"
)

const SourceKind string = "mysql"

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
	Name         string            `yaml:"name" validate:"required"`
	Kind         string            `yaml:"kind" validate:"required"`
	Host         string            `yaml:"host" validate:"required"`
	Port         string            `yaml:"port" validate:"required"`
	User         string            `yaml:"user" validate:"required"`
	Password     string            `yaml:"password" validate:"required"`
	Database     string            `yaml:"database" validate:"required"`
	QueryTimeout string            `yaml:"queryTimeout"`
	QueryParams  map[string]string `yaml:"queryParams"`
}

func (r Config) SourceConfigKind() string {
	return SourceKind
}

func (r Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Engine, error) {
	if r.QueryTimeout != "" {
		if _, err := time.ParseDuration(r.QueryTimeout); err != nil {
			return nil, fmt.Errorf("invalid queryTimeout %q: %w", r.QueryTimeout, err)
		}
	}

	db, err := initMySQLConnection(ctx, tracer, r)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}

	return sqlengine.New(SourceKind, db, relalg.MySQLDialect{}, schemaQuery, typeMapper), nil
}

func initMySQLConnection(ctx context.Context, tracer trace.Tracer, r Config) (*sqlx.DB, error) {
	//nolint:all // Reassigned ctx
	ctx, span := sources.InitConnectionSpan(ctx, tracer, SourceKind, r.Name)
	defer span.End()

	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", r.Host, r.Port)
	cfg.User = r.User
	cfg.Passwd = r.Password
	cfg.DBName = r.Database
	cfg.Params = r.QueryParams

	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return db, nil
}

func schemaQuery(schemaName, tableName string) (string, []any) {
	return `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`,
		[]any{schemaName, tableName}
}

func typeMapper(dbType string) relalg.ColumnKind {
	switch dbType {
	case "tinyint", "smallint", "mediumint", "int", "bigint":
		return relalg.KindInt64
	case "float", "double", "decimal":
		return relalg.KindFloat64
	case "varchar", "char", "text", "mediumtext", "longtext":
		return relalg.KindString
	case "blob", "varbinary", "binary", "longblob":
		return relalg.KindBinary
	case "date":
		return relalg.KindDate
	case "datetime", "timestamp":
		return relalg.KindTimestamp
	default:
		return relalg.KindUnknown
	}
}
