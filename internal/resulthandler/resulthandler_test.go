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

package resulthandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/resulthandler"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlite"
)

func sampleReport() []metric.Metric {
	return []metric.Metric{
		{
			RunID: "run-1", ValidationName: "count_col_a", ValidationType: consts.ColumnValidation,
			SourceTableName: "orders", TargetTableName: "orders",
			AggregationType: consts.AggCount, SourceAggValue: int64(2), TargetAggValue: int64(2),
			Difference: 0.0, PctDifference: 0.0, ValidationStatus: consts.StatusSuccess,
			GroupByColumns: map[string]any{},
		},
	}
}

func TestStdoutTableRendersHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	h, err := resulthandler.New(config.ResultHandlerConfig{Kind: "stdout-table"}, &buf, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Handle(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(buf.String(), "count_col_a") {
		t.Errorf("expected rendered table to contain the validation name, got %q", buf.String())
	}
}

func TestTextRendersTabAlignedRows(t *testing.T) {
	var buf bytes.Buffer
	h, err := resulthandler.New(config.ResultHandlerConfig{Kind: "text"}, &buf, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Handle(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(buf.String(), "count_col_a") {
		t.Errorf("expected rendered text to contain the validation name, got %q", buf.String())
	}
}

func TestJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	h, err := resulthandler.New(config.ResultHandlerConfig{Kind: "json"}, &buf, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Handle(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var decoded []metric.Metric
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ValidationName != "count_col_a" {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
}

func TestCSVHasHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	h, err := resulthandler.New(config.ResultHandlerConfig{Kind: "csv"}, &buf, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Handle(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a header line and one data line, got %d: %q", len(lines), buf.String())
	}
}

func TestSinkDBWritesRowsToRegisteredEngine(t *testing.T) {
	ctx := context.Background()
	engine, err := (&sqlite.Config{Name: "sink", Kind: sqlite.SourceKind, Database: ":memory:"}).Initialize(ctx, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Execute(ctx, `CREATE TABLE results (
		run_id TEXT, validation_name TEXT, validation_type TEXT, source_table_name TEXT, target_table_name TEXT,
		source_column_name TEXT, target_column_name TEXT, aggregation_type TEXT, source_agg_value TEXT,
		target_agg_value TEXT, difference TEXT, pct_difference TEXT, pct_threshold REAL, validation_status TEXT,
		group_by_columns TEXT, start_time TEXT, end_time TEXT
	)`, nil); err != nil {
		t.Fatalf("create results table: %v", err)
	}

	h, err := resulthandler.New(
		config.ResultHandlerConfig{Kind: "sink-db", SinkConn: "sink", SinkTable: "results"},
		nil,
		map[string]sources.Engine{"sink": engine},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Handle(ctx, sampleReport()); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	result, err := engine.Execute(ctx, "SELECT validation_name FROM results", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["validation_name"] != "count_col_a" {
		t.Fatalf("expected one persisted row for count_col_a, got %+v", result.Rows)
	}
}
