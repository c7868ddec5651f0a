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

package combiner_test

import (
	"testing"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/combiner"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/table"
)

func plan(alias string, kind consts.AggregateKind, threshold float64) []builder.MetricPlan {
	return []builder.MetricPlan{{Alias: alias, Kind: kind, SourceColumn: "col_a", TargetColumn: "col_a", Threshold: threshold}}
}

// E1 — perfect match (column).
func TestCombinePerfectMatch(t *testing.T) {
	source := &table.Table{Rows: []table.Row{{"count_col_a": int64(2)}}}
	target := &table.Table{Rows: []table.Row{{"count_col_a": int64(2)}}}

	report := combiner.Combine(source, target, nil, plan("count_col_a", consts.AggCount, 0), combiner.RunInfo{}, nil, false)
	if len(report) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report))
	}
	row := report[0]
	if row.Difference != float64(0) || row.PctDifference != float64(0) || row.ValidationStatus != consts.StatusSuccess {
		t.Errorf("unexpected row: %+v", row)
	}
}

// E2 — zero/null on one side.
func TestCombineZeroSourceRule(t *testing.T) {
	source := &table.Table{Rows: []table.Row{{"count_col_a": nil}}}
	target := &table.Table{Rows: []table.Row{{"count_col_a": int64(2)}}}

	report := combiner.Combine(source, target, nil, plan("count_col_a", consts.AggCount, 0), combiner.RunInfo{}, nil, false)
	row := report[0]
	if row.PctDifference != float64(100) {
		t.Errorf("expected pct_difference=100 for null source / positive target, got %v", row.PctDifference)
	}
	if row.ValidationStatus != consts.StatusFail {
		t.Errorf("expected fail status at threshold 0, got %v", row.ValidationStatus)
	}
}

// E3 — threshold exactly at diff: pct_difference 150, threshold 150 => success.
func TestCombineThresholdBoundary(t *testing.T) {
	source := &table.Table{Rows: []table.Row{{"count_col_a": int64(2)}}}
	target := &table.Table{Rows: []table.Row{{"count_col_a": int64(5)}}}

	report := combiner.Combine(source, target, nil, plan("count_col_a", consts.AggCount, 150), combiner.RunInfo{}, nil, false)
	row := report[0]
	if row.PctDifference != float64(150) {
		t.Fatalf("expected pct_difference=150, got %v", row.PctDifference)
	}
	if row.ValidationStatus != consts.StatusSuccess {
		t.Errorf("expected success at threshold==diff, got %v", row.ValidationStatus)
	}

	failReport := combiner.Combine(source, target, nil, plan("count_col_a", consts.AggCount, 149.999), combiner.RunInfo{}, nil, false)
	if failReport[0].ValidationStatus != consts.StatusFail {
		t.Errorf("expected fail just below the diff, got %v", failReport[0].ValidationStatus)
	}
}

// E6-shaped — orphans on both sides: row coverage invariant.
func TestCombineRowCoverageFullOuterJoin(t *testing.T) {
	source := &table.Table{}
	for i := 0; i < 100; i++ {
		source.AddRow(table.Row{"id": i, "count_col_a": int64(1)})
	}
	target := &table.Table{}
	target.AddRow(table.Row{"id": 100, "count_col_a": int64(1)})

	report := combiner.Combine(source, target, []string{"id"}, plan("count_col_a", consts.AggCount, 0), combiner.RunInfo{}, nil, false)
	if len(report) != 101 {
		t.Fatalf("expected 101 rows (100 source orphans + 1 target orphan), got %d", len(report))
	}
	for _, row := range report {
		if row.ValidationStatus != consts.StatusFail {
			t.Errorf("expected fail for an orphaned key, got %+v", row)
		}
	}
}

func TestCombineFilterStatusIdempotence(t *testing.T) {
	source := &table.Table{}
	source.AddRow(table.Row{"id": 1, "count_col_a": int64(1)})
	source.AddRow(table.Row{"id": 2, "count_col_a": int64(1)})
	target := &table.Table{}
	target.AddRow(table.Row{"id": 1, "count_col_a": int64(1)})
	target.AddRow(table.Row{"id": 2, "count_col_a": int64(9)})

	full := combiner.Combine(source, target, []string{"id"}, plan("count_col_a", consts.AggCount, 0), combiner.RunInfo{}, nil, false)
	failOnly := combiner.Combine(source, target, []string{"id"}, plan("count_col_a", consts.AggCount, 0), combiner.RunInfo{}, []consts.Status{consts.StatusFail}, false)

	var wantFail int
	for _, r := range full {
		if r.ValidationStatus == consts.StatusFail {
			wantFail++
		}
	}
	if len(failOnly) != wantFail {
		t.Fatalf("filter_status=[fail] returned %d rows, want %d", len(failOnly), wantFail)
	}
	for _, r := range failOnly {
		if r.ValidationStatus != consts.StatusFail {
			t.Errorf("filter_status=[fail] leaked a non-fail row: %+v", r)
		}
	}
}

func TestCombineValueComparisonUsesDirectEquality(t *testing.T) {
	source := &table.Table{Rows: []table.Row{{"name": "Alice"}}}
	target := &table.Table{Rows: []table.Row{{"name": "Alicia"}}}

	report := combiner.Combine(source, target, nil,
		[]builder.MetricPlan{{Alias: "name", Kind: consts.AggMax, Threshold: 0}},
		combiner.RunInfo{}, nil, true)
	if report[0].ValidationStatus != consts.StatusFail {
		t.Errorf("expected fail for unequal string value comparison, got %+v", report[0])
	}
	if report[0].PctDifference != nil {
		t.Errorf("expected nil pct_difference for non-numeric comparison, got %v", report[0].PctDifference)
	}
}

func TestCombineGroupByColumnsAnnotation(t *testing.T) {
	source := &table.Table{}
	source.AddRow(table.Row{"date_value": "2026-07-29", "sum_col_a": int64(10)})
	target := &table.Table{}
	target.AddRow(table.Row{"date_value": "2026-07-29", "sum_col_a": int64(10)})

	report := combiner.Combine(source, target, []string{"date_value"}, plan("sum_col_a", consts.AggSum, 0), combiner.RunInfo{}, nil, false)
	if got := report[0].GroupByColumns["date_value"]; got != "2026-07-29" {
		t.Errorf("GroupByColumns[date_value] = %v, want 2026-07-29", got)
	}
}
