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

// Package sqlengine is the sources.Engine implementation shared by every
// database/sql-backed engine this module drives (postgres, mysql, sqlite,
// duckdb, clickhouse). Each engine package supplies its own dialect, driver
// name, schema-introspection query, and database-type-name mapper; row
// scanning and execution are identical across all five, so that plumbing
// lives here once rather than five times.
package sqlengine

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/errs"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/table"
)

// SchemaQueryFunc builds the introspection query (and its bind args) that
// lists a table's columns as (column_name, data_type) pairs for one dialect.
type SchemaQueryFunc func(schemaName, tableName string) (string, []any)

// TypeMapperFunc maps a driver-reported database type name to the small
// scalar vocabulary the engine reasons about.
type TypeMapperFunc func(dbType string) relalg.ColumnKind

// Engine adapts a *sqlx.DB into a sources.Engine.
type Engine struct {
	kind        string
	db          *sqlx.DB
	dialect     relalg.Dialect
	schemaQuery SchemaQueryFunc
	typeMapper  TypeMapperFunc
}

var _ sources.Engine = (*Engine)(nil)

// New wraps an already-opened *sqlx.DB as a sources.Engine.
func New(kind string, db *sqlx.DB, dialect relalg.Dialect, schemaQuery SchemaQueryFunc, typeMapper TypeMapperFunc) *Engine {
	return &Engine{kind: kind, db: db, dialect: dialect, schemaQuery: schemaQuery, typeMapper: typeMapper}
}

func (e *Engine) Kind() string            { return e.kind }
func (e *Engine) Dialect() relalg.Dialect { return e.dialect }
func (e *Engine) Close() error            { return e.db.Close() }

// Execute runs query and materializes every row into a table.Table.
func (e *Engine) Execute(ctx context.Context, query string, args []any) (*table.Table, error) {
	rows, err := e.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewEngineError(e.kind, err)
	}
	defer rows.Close()

	out := table.New(nil)
	for rows.Next() {
		row := table.Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, errs.NewEngineError(e.kind, err)
		}
		out.AddRow(row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewEngineError(e.kind, err)
	}
	return out, nil
}

// ColumnType resolves expr's scalar kind by asking the driver for the
// column type of "SELECT expr AS c". The query has no FROM clause, so expr
// cannot reference a table's columns.
func (e *Engine) ColumnType(ctx context.Context, expr string) (relalg.ColumnKind, error) {
	rows, err := e.db.QueryContext(ctx, fmt.Sprintf("SELECT %s AS c", expr))
	if err != nil {
		return relalg.KindUnknown, errs.NewEngineError(e.kind, err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil || len(cols) == 0 {
		return relalg.KindUnknown, errs.NewEngineError(e.kind, err)
	}
	return e.typeMapper(cols[0].DatabaseTypeName()), nil
}

// Schema lists tableName's columns via the dialect-specific introspection
// query supplied at construction.
func (e *Engine) Schema(ctx context.Context, schemaName, tableName string) ([]sources.ColumnInfo, error) {
	query, args := e.schemaQuery(schemaName, tableName)
	rows, err := e.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewEngineError(e.kind, err)
	}
	defer rows.Close()

	var out []sources.ColumnInfo
	for rows.Next() {
		var name, dtype string
		if err := rows.Scan(&name, &dtype); err != nil {
			return nil, errs.NewEngineError(e.kind, err)
		}
		out = append(out, sources.ColumnInfo{Name: name, Kind: e.typeMapper(dtype)})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewEngineError(e.kind, err)
	}
	return out, nil
}
