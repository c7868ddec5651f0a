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

// Package resulthandler is the Result Handler §6 names: "execute(report) ->
// return value surfaced to caller". Five concrete sinks are provided, keyed
// by result_handler.type: stdout-table, text, json, csv, and sink-db.
package resulthandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/olekukonko/tablewriter"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
)

// reportColumns is the field order the report is rendered in, per §6
// "field ordering follows that enumeration" (the Metric struct's own field
// order).
var reportColumns = []string{
	"run_id", "validation_name", "validation_type",
	"source_table_name", "target_table_name",
	"source_column_name", "target_column_name",
	"aggregation_type", "source_agg_value", "target_agg_value",
	"difference", "pct_difference", "pct_threshold", "validation_status",
	"group_by_columns",
}

// Handler is the Result Handler's contract: consume a finished report, doing
// whatever this sink does with it (render, write, persist).
type Handler interface {
	Handle(ctx context.Context, report []metric.Metric) error
}

// New builds the Handler named by cfg.Kind. engines resolves cfg.SinkConn
// for the sink-db handler; it is unused by every other kind.
func New(cfg config.ResultHandlerConfig, out io.Writer, engines map[string]sources.Engine) (Handler, error) {
	switch cfg.Kind {
	case "stdout-table":
		return &stdoutTable{out: out}, nil
	case "text":
		return &text{out: out}, nil
	case "json":
		return &jsonFile{path: cfg.Path, out: out}, nil
	case "csv":
		return &csvFile{path: cfg.Path, out: out}, nil
	case "sink-db":
		engine, ok := engines[cfg.SinkConn]
		if !ok {
			return nil, fmt.Errorf("result_handler: sink_conn %q is not a connected source", cfg.SinkConn)
		}
		return &sinkDB{engine: engine, schema: cfg.SinkSchema, table: cfg.SinkTable}, nil
	default:
		return nil, fmt.Errorf("result_handler: unknown type %q", cfg.Kind)
	}
}

func row(m metric.Metric) []string {
	groupBy, _ := json.Marshal(m.GroupByColumns)
	return []string{
		m.RunID,
		m.ValidationName,
		string(m.ValidationType),
		m.SourceTableName,
		m.TargetTableName,
		m.SourceColumnName,
		m.TargetColumnName,
		string(m.AggregationType),
		fmt.Sprintf("%v", m.SourceAggValue),
		fmt.Sprintf("%v", m.TargetAggValue),
		fmt.Sprintf("%v", m.Difference),
		fmt.Sprintf("%v", m.PctDifference),
		strconv.FormatFloat(m.PctThreshold, 'g', -1, 64),
		string(m.ValidationStatus),
		string(groupBy),
	}
}

// stdoutTable renders the report as a bordered table, the format a human
// operator reads at a terminal.
type stdoutTable struct {
	out io.Writer
}

func (h *stdoutTable) Handle(ctx context.Context, report []metric.Metric) error {
	t := tablewriter.NewTable(h.out)
	t.Header(reportColumns...)
	for _, m := range report {
		if err := t.Append(row(m)...); err != nil {
			return fmt.Errorf("resulthandler: rendering table row: %w", err)
		}
	}
	return t.Render()
}

// text renders the report as tab-aligned plain text, for piping into
// scripts that don't want box-drawing characters.
type text struct {
	out io.Writer
}

func (h *text) Handle(ctx context.Context, report []metric.Metric) error {
	w := tabwriter.NewWriter(h.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, tabJoin(reportColumns))
	for _, m := range report {
		fmt.Fprintln(w, tabJoin(row(m)))
	}
	return w.Flush()
}

func tabJoin(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "\t"
		}
		out += f
	}
	return out
}

// jsonFile writes the report as a JSON array, to Path if set, else out.
type jsonFile struct {
	path string
	out  io.Writer
}

func (h *jsonFile) Handle(ctx context.Context, report []metric.Metric) error {
	w, closeFn, err := openOrPass(h.path, h.out)
	if err != nil {
		return err
	}
	defer closeFn()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// csvFile writes the report as CSV, to Path if set, else out.
type csvFile struct {
	path string
	out  io.Writer
}

func (h *csvFile) Handle(ctx context.Context, report []metric.Metric) error {
	w, closeFn, err := openOrPass(h.path, h.out)
	if err != nil {
		return err
	}
	defer closeFn()

	cw := csv.NewWriter(w)
	if err := cw.Write(reportColumns); err != nil {
		return fmt.Errorf("resulthandler: writing csv header: %w", err)
	}
	for _, m := range report {
		if err := cw.Write(row(m)); err != nil {
			return fmt.Errorf("resulthandler: writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func openOrPass(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resulthandler: creating %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// sinkDB persists the report as rows in a table on a registered engine,
// mirroring how the original validator writes its results to a BigQuery
// "results" table (§6 "sink-db").
type sinkDB struct {
	engine        sources.Engine
	schema, table string
}

func (h *sinkDB) Handle(ctx context.Context, report []metric.Metric) error {
	qualified := h.table
	if h.schema != "" {
		qualified = h.schema + "." + h.table
	}
	for _, m := range report {
		groupBy, err := json.Marshal(m.GroupByColumns)
		if err != nil {
			return fmt.Errorf("resulthandler: marshaling group_by_columns: %w", err)
		}
		query := fmt.Sprintf(`INSERT INTO %s (
			run_id, validation_name, validation_type, source_table_name, target_table_name,
			source_column_name, target_column_name, aggregation_type, source_agg_value,
			target_agg_value, difference, pct_difference, pct_threshold, validation_status,
			group_by_columns, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, qualified)
		args := []any{
			m.RunID, m.ValidationName, string(m.ValidationType), m.SourceTableName, m.TargetTableName,
			m.SourceColumnName, m.TargetColumnName, string(m.AggregationType), m.SourceAggValue,
			m.TargetAggValue, m.Difference, m.PctDifference, m.PctThreshold, string(m.ValidationStatus),
			string(groupBy), m.StartTime, m.EndTime,
		}
		if _, err := h.engine.Execute(ctx, query, args); err != nil {
			return fmt.Errorf("resulthandler: writing report row to %s: %w", qualified, err)
		}
	}
	return nil
}
