// Copyright 2024 Google LLC
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

package duckdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-yaml"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlengine"
)

const SourceKind string = "duckdb"

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

// validate interface
var _ sources.SourceConfig = Config{}

type Config struct {
	Name           string            `yaml:"name" validate:"required"`
	Kind           string            `yaml:"kind" validate:"required"`
	DatabaseFile   string            `yaml:"dbFilePath,omitempty"`
	Configurations map[string]string `yaml:"configurations,omitempty"`
}

func (r Config) SourceConfigKind() string {
	return SourceKind
}

func (r Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Engine, error) {
	db, err := initDuckDbConnection(ctx, tracer, r.Name, r.DatabaseFile, r.Configurations)
	if err != nil {
		return nil, fmt.Errorf("unable to create db connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect sucessfully: %w", err)
	}

	return sqlengine.New(SourceKind, db, relalg.NewDuckDBDialect(), schemaQuery, typeMapper), nil
}

func initDuckDbConnection(ctx context.Context, tracer trace.Tracer, name string, dbFilePath string, duckdbConfiguration map[string]string) (*sqlx.DB, error) {
	//nolint:all // Reassigned ctx
	ctx, span := sources.InitConnectionSpan(ctx, tracer, SourceKind, name)
	defer span.End()

	configStr := getDuckDbConfiguration(dbFilePath, duckdbConfiguration)

	db, err := sqlx.ConnectContext(ctx, "duckdb", configStr)
	if err != nil {
		return nil, fmt.Errorf("unable to open duckdb connection: %w", err)
	}
	return db, nil
}

func getDuckDbConfiguration(dbFilePath string, duckdbConfiguration map[string]string) string {
	if dbFilePath == "" && len(duckdbConfiguration) == 0 {
		return ""
	}
	var configStr strings.Builder
	if dbFilePath != "" {
		configStr.WriteString(dbFilePath)
	}
	configStr.WriteString("?")
	first := true
	for key, value := range duckdbConfiguration {
		if !first {
			configStr.WriteString("&")
		}
		configStr.WriteString(url.QueryEscape(key))
		configStr.WriteString("=")
		configStr.WriteString(url.QueryEscape(value))
		first = false
	}
	return configStr.String()
}

func schemaQuery(schemaName, tableName string) (string, []any) {
	return `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`,
		[]any{schemaName, tableName}
}

func typeMapper(dbType string) relalg.ColumnKind {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT":
		return relalg.KindInt64
	case "REAL", "DOUBLE", "DECIMAL":
		return relalg.KindFloat64
	case "BOOLEAN":
		return relalg.KindBool
	case "BLOB":
		return relalg.KindBinary
	case "DATE":
		return relalg.KindDate
	case "TIMESTAMP", "TIMESTAMP WITH TIME ZONE":
		return relalg.KindTimestamp
	case "VARCHAR":
		return relalg.KindString
	default:
		return relalg.KindUnknown
	}
}
