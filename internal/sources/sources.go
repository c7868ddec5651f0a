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

// Package sources is the Engine Registry: the concrete form of the
// "connection/client factory" external collaborator. Each engine package
// (postgres, mysql, sqlite, duckdb, clickhouse, bigquery) registers a
// SourceConfig factory keyed by its kind string, mirroring the teacher's
// own per-source registration pattern (sources.Register called from each
// package's init()).
package sources

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"
	"go.opentelemetry.io/otel/trace"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/table"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/telemetry"
)

// ColumnInfo is one column of a schema(table) lookup result.
type ColumnInfo struct {
	Name string
	Kind relalg.ColumnKind
}

// Engine is the opaque query-engine handle the Validation Builder, Executor,
// and Combiner consume: execute(query) -> tabular result, plus the metadata
// calls (schema, column_type) spec.md §6 names.
type Engine interface {
	// Execute runs query against this engine and returns the result as an
	// in-memory table.
	Execute(ctx context.Context, query string, args []any) (*table.Table, error)
	// Schema returns column metadata for schemaName.tableName.
	Schema(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error)
	// ColumnType resolves the scalar kind of a column expression, used by the
	// Random-Row Sampler on a custom-query source to decide whether a binary
	// round-trip is needed.
	ColumnType(ctx context.Context, expr string) (relalg.ColumnKind, error)
	// Dialect returns the relational-expression dialect this engine compiles
	// against.
	Dialect() relalg.Dialect
	// Kind returns the registered source kind ("postgres", "bigquery", ...).
	Kind() string
	// Close releases the underlying connection, if the Run opened it.
	Close() error
}

// SourceConfig is a decoded, not-yet-connected source declaration.
type SourceConfig interface {
	SourceConfigKind() string
	Initialize(ctx context.Context, tracer trace.Tracer) (Engine, error)
}

// SourceConfigFactory decodes one source's YAML block into a SourceConfig.
type SourceConfigFactory func(ctx context.Context, name string, decoder *yaml.Decoder) (SourceConfig, error)

var registry = map[string]SourceConfigFactory{}

// Register adds kind's factory to the registry. Returns false if kind is
// already registered, mirroring the teacher's tools.Register contract so
// every engine package's init() can panic on an accidental duplicate the
// same way the teacher's tool registrations do.
func Register(kind string, factory SourceConfigFactory) bool {
	if _, ok := registry[kind]; ok {
		return false
	}
	registry[kind] = factory
	return true
}

// DecodeConfig looks up kind's factory and decodes name's YAML block through
// it.
func DecodeConfig(ctx context.Context, kind, name string, decoder *yaml.Decoder) (SourceConfig, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unable to parse source %q: unknown kind %q", name, kind)
	}
	cfg, err := factory(ctx, name, decoder)
	if err != nil {
		return nil, fmt.Errorf("unable to parse source %q as %q: %w", name, kind, err)
	}
	return cfg, nil
}

// InitConnectionSpan starts a tracing span around opening a connection to
// the named engine kind. It forwards to internal/telemetry so every engine
// package can call sources.InitConnectionSpan exactly as the teacher's
// per-source Initialize methods call sources.InitConnectionSpan.
func InitConnectionSpan(ctx context.Context, tracer trace.Tracer, kind, name string) (context.Context, trace.Span) {
	_ = tracer // the engine always resolves the tracer from the global provider; kept for call-site symmetry with the teacher
	return telemetry.InitConnectionSpan(ctx, kind, name)
}
