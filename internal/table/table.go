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

// Package table is the in-memory tabular result the Executor's in-memory
// strategy materializes both sides into, and the Combiner joins. No
// dataframe library appears anywhere in the retrieval pack's go.mod files
// (the teacher and its SQL-engine siblings all hand the caller a
// database/sql-shaped row set, nothing pandas-/gota-/dataframe-go-shaped);
// this is the one component of the engine built directly on the standard
// library for that reason — see DESIGN.md.
package table

import "fmt"

// Row is one record, keyed by column name. Using a map instead of a
// positional slice keeps the Combiner's join and suffixing logic simple at
// the cost of per-row allocation, which is acceptable at the row counts a
// rollup-oriented comparison engine produces (see spec §4.F: row validation
// compares aggregate rollups, not raw rows, until the final drill-down
// level).
type Row map[string]any

// Table is an ordered list of rows sharing a column set.
type Table struct {
	Columns []string
	Rows    []Row
}

// New returns an empty Table with the given column order.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// AddRow appends a row, registering any column not already known.
func (t *Table) AddRow(row Row) {
	for col := range row {
		if !t.hasColumn(col) {
			t.Columns = append(t.Columns, col)
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns every row's value for name, in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Filter returns a new Table containing only rows for which keep returns
// true, preserving row order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// KeyTuple renders the values of keys from row as a comparable string key,
// used for grouping rows by their join key.
func KeyTuple(row Row, keys []string) string {
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += "\x1f"
		}
		s += fmt.Sprintf("%v", row[k])
	}
	return s
}

// FullOuterJoin joins left and right on keys, carrying forward every key
// present on either side (§4.E "Join kind: FULL OUTER"). Non-key columns
// from left and right are suffixed with leftSuffix/rightSuffix so
// same-named aggregates from both sides survive in the joined row
// unambiguously (§4.E "Suffixes"). If keys is empty, only the first row of
// each side is used: the two are merged into a single output row, and any
// further rows are ignored. Pure column validation emits one global row per
// side upstream, so in that case nothing is dropped.
func FullOuterJoin(left, right *Table, keys []string, leftSuffix, rightSuffix string) *Table {
	out := New(nil)

	if len(keys) == 0 {
		leftRow := Row{}
		if len(left.Rows) > 0 {
			leftRow = left.Rows[0]
		}
		rightRow := Row{}
		if len(right.Rows) > 0 {
			rightRow = right.Rows[0]
		}
		out.AddRow(mergeRows(leftRow, rightRow, nil, leftSuffix, rightSuffix))
		return out
	}

	rightByKey := map[string][]Row{}
	rightKeyOrder := []string{}
	for _, r := range right.Rows {
		k := KeyTuple(r, keys)
		if _, ok := rightByKey[k]; !ok {
			rightKeyOrder = append(rightKeyOrder, k)
		}
		rightByKey[k] = append(rightByKey[k], r)
	}
	matchedRight := map[string]bool{}

	for _, lr := range left.Rows {
		k := KeyTuple(lr, keys)
		rr, ok := rightByKey[k]
		if !ok {
			out.AddRow(mergeRows(lr, nil, keys, leftSuffix, rightSuffix))
			continue
		}
		matchedRight[k] = true
		for _, r := range rr {
			out.AddRow(mergeRows(lr, r, keys, leftSuffix, rightSuffix))
		}
	}

	for _, k := range rightKeyOrder {
		if matchedRight[k] {
			continue
		}
		for _, rr := range rightByKey[k] {
			out.AddRow(mergeRows(nil, rr, keys, leftSuffix, rightSuffix))
		}
	}

	return out
}

func mergeRows(left, right Row, keys []string, leftSuffix, rightSuffix string) Row {
	isKey := map[string]bool{}
	for _, k := range keys {
		isKey[k] = true
	}
	merged := Row{}
	for col, v := range left {
		if isKey[col] {
			merged[col] = v
			continue
		}
		merged[col+leftSuffix] = v
	}
	for col, v := range right {
		if isKey[col] {
			if _, exists := merged[col]; !exists {
				merged[col] = v
			}
			continue
		}
		merged[col+rightSuffix] = v
	}
	return merged
}
