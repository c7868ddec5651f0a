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

package relalg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
)

// Projection is a single named output column of the inner (pre-aggregate)
// query: a pass-through base column, a cast column, or a resolved
// calculated field.
type Projection struct {
	Alias string
	Expr  string
}

// Filter is a single WHERE-clause predicate against a named column.
type Filter struct {
	Kind   consts.FilterType
	Column string
	Value  any
	Values []any  // populated for FilterTypeIsIn
	Raw    string // populated for FilterTypeCustom

	// RawValues, when non-empty, overrides Values for FilterTypeIsIn: each
	// entry is a raw SQL fragment rather than a literal to quote. The
	// Random-Row Sampler uses this to re-bind a binary primary key's
	// hex-stringified samples back to binary literals (§4.C, §9).
	RawValues []string
}

// Aggregate is one aggregate projection of the outer query.
type Aggregate struct {
	Alias string
	Kind  consts.AggregateKind
	Expr  string // the (possibly cast) inner-query column or expression being aggregated
}

// Expression is a mutable, clonable relational-algebra builder for one side
// (source or target) of a validation. It records operations faithfully in
// the order the Validation Builder applies them; Compile assembles the
// final SQL. Expression intentionally does no semantic validation of its
// own (unknown aggregate kinds, unresolved calculated-field inputs, etc. are
// the Validation Builder's job) — it is a mechanical recorder/compiler, the
// concrete stand-in for what the spec treats as an external collaborator.
type Expression struct {
	dialect Dialect

	schema, table string
	rawQuery      string // set instead of schema/table for custom-query mode

	filters     []Filter
	projections []Projection
	aggregates  []Aggregate
	groupBy     []string

	orderByRaw string // set by the Random-Row Sampler's bounded-sample query
	limit      int    // 0 means unset
}

// Table builds an Expression over a physical schema.table.
func Table(dialect Dialect, schema, table string) *Expression {
	return &Expression{dialect: dialect, schema: schema, table: table}
}

// Raw builds an Expression over a caller-supplied query (custom_query mode).
func Raw(dialect Dialect, query string) *Expression {
	return &Expression{dialect: dialect, rawQuery: query}
}

// Dialect returns the dialect this expression compiles against.
func (e *Expression) Dialect() Dialect { return e.dialect }

// Schema, Table, and RawQuery expose the expression's base source, letting
// the Random-Row Sampler build a standalone sampling query over the same
// base table/custom-query and filters as this expression.
func (e *Expression) Schema() string   { return e.schema }
func (e *Expression) Table() string    { return e.table }
func (e *Expression) RawQuery() string { return e.rawQuery }

// Clone deep-copies the expression so a recursion branch can diverge its
// filters and group-bys without mutating its parent's, per §4.B "clone()".
func (e *Expression) Clone() *Expression {
	c := &Expression{
		dialect:  e.dialect,
		schema:   e.schema,
		table:    e.table,
		rawQuery: e.rawQuery,
	}
	c.filters = append([]Filter(nil), e.filters...)
	c.projections = append([]Projection(nil), e.projections...)
	c.aggregates = append([]Aggregate(nil), e.aggregates...)
	c.groupBy = append([]string(nil), e.groupBy...)
	c.orderByRaw = e.orderByRaw
	c.limit = e.limit
	return c
}

// AddFilter appends a WHERE predicate. Additive and order-preserving —
// filters are never removed, only added, matching §4.B's "add_filter"; adding
// the same filter twice records it twice.
func (e *Expression) AddFilter(f Filter) {
	e.filters = append(e.filters, f)
}

// Filters returns the currently registered WHERE predicates, used by the
// Random-Row Sampler to replay a builder's existing filters onto its
// standalone sampling query.
func (e *Expression) Filters() []Filter {
	return append([]Filter(nil), e.filters...)
}

// Project registers (or overwrites, by alias) a named output column of the
// inner query: a pass-through base column, a cast expression, or a resolved
// calculated field.
func (e *Expression) Project(alias, expr string) {
	for i := range e.projections {
		if e.projections[i].Alias == alias {
			e.projections[i].Expr = expr
			return
		}
	}
	e.projections = append(e.projections, Projection{Alias: alias, Expr: expr})
}

// CastExpr wraps a column reference in a dialect-appropriate CAST. Casts
// declared in config are applied before the aggregate expression, per
// §4.A: callers pass the cast result into Project/Aggregate rather than
// this mutating any existing projection.
func CastExpr(d Dialect, columnExpr string, kind ColumnKind) string {
	return fmt.Sprintf("CAST(%s AS %s)", columnExpr, d.CastType(kind))
}

// Aggregate registers one aggregate projection of the outer query.
func (e *Expression) Aggregate(alias string, kind consts.AggregateKind, expr string) {
	e.aggregates = append(e.aggregates, Aggregate{Alias: alias, Kind: kind, Expr: expr})
}

// GroupBy sets the (possibly empty) ordered list of projection aliases the
// outer query groups on.
func (e *Expression) GroupBy(aliases []string) {
	e.groupBy = append([]string(nil), aliases...)
}

// GroupByAliases returns the currently registered group-by aliases.
func (e *Expression) GroupByAliases() []string {
	return append([]string(nil), e.groupBy...)
}

// OrderByRandom and Limit configure the bounded-sample query the Random-Row
// Sampler issues (§4.C); they are meaningless on an aggregate query and are
// ignored once Aggregate has been called.
func (e *Expression) OrderByRandom() { e.orderByRaw = e.dialect.RandomOrderExpr() }

func (e *Expression) Limit(n int) { e.limit = n }

func aggregateSQL(kind consts.AggregateKind, expr string) (string, error) {
	switch kind {
	case consts.AggCount:
		return fmt.Sprintf("COUNT(%s)", expr), nil
	case consts.AggSum:
		return fmt.Sprintf("SUM(%s)", expr), nil
	case consts.AggMin:
		return fmt.Sprintf("MIN(%s)", expr), nil
	case consts.AggMax:
		return fmt.Sprintf("MAX(%s)", expr), nil
	case consts.AggAvg:
		return fmt.Sprintf("AVG(%s)", expr), nil
	case consts.AggBitXor:
		return fmt.Sprintf("BIT_XOR(%s)", expr), nil
	default:
		return "", fmt.Errorf("relalg: unknown aggregate kind %q", kind)
	}
}

func filterSQL(d Dialect, f Filter, argN *int, args *[]any) (string, error) {
	col := d.QuoteIdentifier(f.Column)
	switch f.Kind {
	case consts.FilterTypeEquals:
		lit, err := d.QuoteLiteral(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, lit), nil
	case consts.FilterTypeIsIn:
		if len(f.RawValues) > 0 {
			return fmt.Sprintf("%s IN (%s)", col, strings.Join(f.RawValues, ", ")), nil
		}
		if len(f.Values) == 0 {
			// An empty IN-list matches nothing; this is a valid outcome of
			// an empty random-row sample, not an error.
			return "1 = 0", nil
		}
		parts := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			lit, err := d.QuoteLiteral(v)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(parts, ", ")), nil
	case consts.FilterTypeCustom:
		return f.Raw, nil
	default:
		return "", fmt.Errorf("relalg: unknown filter kind %q", f.Kind)
	}
}

// Compile assembles the final SQL text for this expression. Parameter args
// is always empty in the current implementation: literals are inlined via
// QuoteLiteral rather than bound, since filter values here originate from
// trusted configuration and sampled primary keys, never end-user input: the
// result is returned anyway, in the shape Engine.Execute accepts.
func (e *Expression) Compile() (string, []any, error) {
	if e.rawQuery != "" && len(e.projections) == 0 && len(e.aggregates) == 0 {
		return e.compileRawPassthrough()
	}

	from := e.innerFrom()
	var args []any
	argN := 0

	innerSelect := "*"
	if len(e.projections) > 0 {
		cols := make([]string, 0, len(e.projections))
		for _, p := range e.projections {
			cols = append(cols, fmt.Sprintf("%s AS %s", p.Expr, e.dialect.QuoteIdentifier(p.Alias)))
		}
		innerSelect = strings.Join(cols, ", ")
	}

	var where string
	if len(e.filters) > 0 {
		preds := make([]string, 0, len(e.filters))
		for _, f := range e.filters {
			p, err := filterSQL(e.dialect, f, &argN, &args)
			if err != nil {
				return "", nil, err
			}
			preds = append(preds, p)
		}
		where = " WHERE " + strings.Join(preds, " AND ")
	}

	inner := fmt.Sprintf("SELECT %s FROM %s%s", innerSelect, from, where)

	if len(e.aggregates) == 0 {
		if e.orderByRaw != "" {
			inner += " ORDER BY " + e.orderByRaw
		}
		if e.limit > 0 {
			inner += fmt.Sprintf(" LIMIT %d", e.limit)
		}
		return inner, args, nil
	}

	outerCols := make([]string, 0, len(e.groupBy)+len(e.aggregates))
	for _, g := range e.groupBy {
		outerCols = append(outerCols, e.dialect.QuoteIdentifier(g))
	}
	for _, agg := range e.aggregates {
		aggSQL, err := aggregateSQL(agg.Kind, agg.Expr)
		if err != nil {
			return "", nil, err
		}
		outerCols = append(outerCols, fmt.Sprintf("%s AS %s", aggSQL, e.dialect.QuoteIdentifier(agg.Alias)))
	}

	outer := fmt.Sprintf("SELECT %s FROM (%s) AS base", strings.Join(outerCols, ", "), inner)
	if len(e.groupBy) > 0 {
		grouped := make([]string, 0, len(e.groupBy))
		for _, g := range e.groupBy {
			grouped = append(grouped, e.dialect.QuoteIdentifier(g))
		}
		sort.Strings(grouped) // deterministic GROUP BY order; output row order is not relied upon (§5)
		outer += " GROUP BY " + strings.Join(grouped, ", ")
	}
	return outer, args, nil
}

func (e *Expression) innerFrom() string {
	if e.rawQuery != "" {
		return fmt.Sprintf("(%s) AS q", e.rawQuery)
	}
	if e.schema == "" {
		return e.dialect.QuoteIdentifier(e.table)
	}
	return fmt.Sprintf("%s.%s", e.dialect.QuoteIdentifier(e.schema), e.dialect.QuoteIdentifier(e.table))
}

func (e *Expression) compileRawPassthrough() (string, []any, error) {
	if len(e.filters) == 0 {
		return e.rawQuery, nil, nil
	}
	preds := make([]string, 0, len(e.filters))
	for _, f := range e.filters {
		p, err := filterSQL(e.dialect, f, new(int), new([]any))
		if err != nil {
			return "", nil, err
		}
		preds = append(preds, p)
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS q WHERE %s", e.rawQuery, strings.Join(preds, " AND ")), nil, nil
}
