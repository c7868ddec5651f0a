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

// Package relalg is the concrete form of the spec's "query-expression
// library" collaborator: a small relational-algebra builder exposing exactly
// the capability set the Validation Builder needs (projection, mutation,
// cast, filter, group-by, aggregate, literal) and compiling it to
// dialect-aware SQL text. Dialect differences are isolated to placeholder
// syntax, identifier quoting, cast type names, literal quoting, random
// ordering, and hex encode/decode functions — the same kind of seam the
// pack's standalone query-builder reference (other_examples'
// query_builder.Dialect) uses for Postgres/MySQL/Oracle.
package relalg

import "fmt"

// ColumnKind is the small set of scalar types the engine needs to reason
// about for casting and binary round-tripping.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindString
	KindInt64
	KindFloat64
	KindBool
	KindBinary
	KindDate
	KindTimestamp
)

func (k ColumnKind) IsBinary() bool { return k == KindBinary }

// Dialect isolates the SQL-text differences between the engines this module
// drives.
type Dialect interface {
	Name() string
	// Placeholder returns the positional or non-positional parameter
	// placeholder for the given 1-based index.
	Placeholder(index int) string
	// QuoteIdentifier wraps a table or column name in the dialect's quote
	// character.
	QuoteIdentifier(name string) string
	// CastType returns the dialect's type name for a cast target.
	CastType(kind ColumnKind) string
	// QuoteLiteral renders v as a SQL literal (used for IN-list values
	// re-bound as filters after random-row sampling).
	QuoteLiteral(v any) (string, error)
	// RandomOrderExpr returns the dialect's random-ordering function call,
	// used by the Random-Row Sampler's bounded-sample query (§4.C).
	RandomOrderExpr() string
	// HexEncodeExpr wraps column in the dialect's binary-to-hex-string
	// function, and HexDecodeExpr wraps a hex literal in the inverse
	// function — the binary primary-key round trip §4.C and §9 require.
	HexEncodeExpr(column string) string
	HexDecodeExpr(hexLiteral string) string
}

// PostgresDialect drives postgres, alloydb-/cloudsql-pg-shaped engines.
type PostgresDialect struct{}

func (PostgresDialect) Name() string                    { return "postgres" }
func (PostgresDialect) Placeholder(i int) string        { return fmt.Sprintf("$%d", i) }
func (PostgresDialect) QuoteIdentifier(n string) string { return fmt.Sprintf(`"%s"`, n) }
func (PostgresDialect) CastType(k ColumnKind) string {
	switch k {
	case KindString:
		return "text"
	case KindInt64:
		return "bigint"
	case KindFloat64:
		return "double precision"
	case KindBool:
		return "boolean"
	case KindBinary:
		return "bytea"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}
func (PostgresDialect) QuoteLiteral(v any) (string, error) { return quoteLiteralAnsi(v) }
func (PostgresDialect) RandomOrderExpr() string            { return "RANDOM()" }
func (PostgresDialect) HexEncodeExpr(column string) string {
	return fmt.Sprintf("encode(%s, 'hex')", column)
}
func (PostgresDialect) HexDecodeExpr(hexLiteral string) string {
	return fmt.Sprintf("decode(%s, 'hex')", hexLiteral)
}

// MySQLDialect drives mysql, mariadb-, tidb-shaped engines.
type MySQLDialect struct{}

func (MySQLDialect) Name() string                    { return "mysql" }
func (MySQLDialect) Placeholder(int) string          { return "?" }
func (MySQLDialect) QuoteIdentifier(n string) string { return fmt.Sprintf("`%s`", n) }
func (MySQLDialect) CastType(k ColumnKind) string {
	switch k {
	case KindString:
		return "char"
	case KindInt64:
		return "signed"
	case KindFloat64:
		return "decimal(38,9)"
	case KindBool:
		return "unsigned"
	case KindBinary:
		return "binary"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "datetime"
	default:
		return "char"
	}
}
func (MySQLDialect) QuoteLiteral(v any) (string, error) { return quoteLiteralAnsi(v) }
func (MySQLDialect) RandomOrderExpr() string            { return "RAND()" }
func (MySQLDialect) HexEncodeExpr(column string) string { return fmt.Sprintf("HEX(%s)", column) }
func (MySQLDialect) HexDecodeExpr(hexLiteral string) string {
	return fmt.Sprintf("UNHEX(%s)", hexLiteral)
}

// SQLiteDialect drives sqlite and, since duckdb's SQL surface is ANSI-close
// enough for the expressions this engine emits, duckdb as well.
type SQLiteDialect struct{ dialectName string }

func NewSQLiteDialect() SQLiteDialect { return SQLiteDialect{dialectName: "sqlite"} }
func NewDuckDBDialect() SQLiteDialect { return SQLiteDialect{dialectName: "duckdb"} }

func (d SQLiteDialect) Name() string                  { return d.dialectName }
func (SQLiteDialect) Placeholder(int) string          { return "?" }
func (SQLiteDialect) QuoteIdentifier(n string) string { return fmt.Sprintf(`"%s"`, n) }
func (SQLiteDialect) CastType(k ColumnKind) string {
	switch k {
	case KindString:
		return "text"
	case KindInt64:
		return "integer"
	case KindFloat64:
		return "real"
	case KindBool:
		return "boolean"
	case KindBinary:
		return "blob"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}
func (SQLiteDialect) QuoteLiteral(v any) (string, error) { return quoteLiteralAnsi(v) }
func (SQLiteDialect) RandomOrderExpr() string            { return "RANDOM()" }
func (SQLiteDialect) HexEncodeExpr(column string) string { return fmt.Sprintf("hex(%s)", column) }
func (SQLiteDialect) HexDecodeExpr(hexLiteral string) string {
	return fmt.Sprintf("unhex(%s)", hexLiteral)
}

// ClickHouseDialect drives clickhouse.
type ClickHouseDialect struct{}

func (ClickHouseDialect) Name() string                    { return "clickhouse" }
func (ClickHouseDialect) Placeholder(int) string          { return "?" }
func (ClickHouseDialect) QuoteIdentifier(n string) string { return fmt.Sprintf("`%s`", n) }
func (ClickHouseDialect) CastType(k ColumnKind) string {
	switch k {
	case KindString:
		return "String"
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindBool:
		return "UInt8"
	case KindBinary:
		return "String"
	case KindDate:
		return "Date"
	case KindTimestamp:
		return "DateTime"
	default:
		return "String"
	}
}
func (ClickHouseDialect) QuoteLiteral(v any) (string, error) { return quoteLiteralAnsi(v) }
func (ClickHouseDialect) RandomOrderExpr() string            { return "rand()" }
func (ClickHouseDialect) HexEncodeExpr(column string) string { return fmt.Sprintf("hex(%s)", column) }
func (ClickHouseDialect) HexDecodeExpr(hexLiteral string) string {
	return fmt.Sprintf("unhex(%s)", hexLiteral)
}

// BigQueryDialect drives the bigquery engine, whose standard SQL dialect
// shares the ANSI quoting/cast conventions this builder already emits for
// postgres/mysql/sqlite, differing mainly in placeholder syntax.
type BigQueryDialect struct{}

func (BigQueryDialect) Name() string                    { return "bigquery" }
func (BigQueryDialect) Placeholder(i int) string        { return fmt.Sprintf("@p%d", i) }
func (BigQueryDialect) QuoteIdentifier(n string) string { return fmt.Sprintf("`%s`", n) }
func (BigQueryDialect) CastType(k ColumnKind) string {
	switch k {
	case KindString:
		return "STRING"
	case KindInt64:
		return "INT64"
	case KindFloat64:
		return "FLOAT64"
	case KindBool:
		return "BOOL"
	case KindBinary:
		return "BYTES"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	default:
		return "STRING"
	}
}
func (BigQueryDialect) QuoteLiteral(v any) (string, error) { return quoteLiteralAnsi(v) }
func (BigQueryDialect) RandomOrderExpr() string            { return "RAND()" }
func (BigQueryDialect) HexEncodeExpr(column string) string { return fmt.Sprintf("TO_HEX(%s)", column) }
func (BigQueryDialect) HexDecodeExpr(hexLiteral string) string {
	return fmt.Sprintf("FROM_HEX(%s)", hexLiteral)
}
