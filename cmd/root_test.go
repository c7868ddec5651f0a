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

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlite"
)

const sampleConfig = `
sources:
  src_db:
    kind: sqlite
    database: ":memory:"
  tgt_db:
    kind: sqlite
    database: ":memory:"
validation:
  type: Column
  source_conn: src_db
  target_conn: tgt_db
  table_name: orders
  aggregates:
    - alias: count_col_a
      source_column: col_a
      target_column: col_a
      kind: count
  result_handler:
    type: stdout-table
`

func TestParseRunFileResolvesSourcesAndValidation(t *testing.T) {
	vcfg, sourceConfigs, err := parseRunFile(context.Background(), []byte(sampleConfig))
	if err != nil {
		t.Fatalf("parseRunFile: %v", err)
	}
	if vcfg.SourceConn != "src_db" || vcfg.TargetConn != "tgt_db" {
		t.Errorf("unexpected validation config: %+v", vcfg)
	}
	if _, ok := sourceConfigs["src_db"]; !ok {
		t.Errorf("expected src_db to be decoded, got %+v", sourceConfigs)
	}
	if _, ok := sourceConfigs["tgt_db"]; !ok {
		t.Errorf("expected tgt_db to be decoded, got %+v", sourceConfigs)
	}
}

func TestParseRunFileRejectsSourceWithoutKind(t *testing.T) {
	_, _, err := parseRunFile(context.Background(), []byte(`
sources:
  src_db:
    database: ":memory:"
validation:
  type: Column
  source_conn: src_db
  target_conn: src_db
`))
	if err == nil {
		t.Fatal("expected an error for a source block missing 'kind'")
	}
}

func TestFormatToHandlerKind(t *testing.T) {
	cases := map[string]string{
		"":      "stdout-table",
		"table": "stdout-table",
		"text":  "text",
		"json":  "json",
		"csv":   "csv",
	}
	for format, want := range cases {
		if got := formatToHandlerKind(format); got != want {
			t.Errorf("formatToHandlerKind(%q) = %q, want %q", format, got, want)
		}
	}
}

func seedSQLiteFile(t *testing.T, path string, rows [][2]int) {
	t.Helper()
	ctx := context.Background()
	engine, err := (&sqlite.Config{Name: "seed", Kind: sqlite.SourceKind, Database: path}).Initialize(ctx, nil)
	if err != nil {
		t.Fatalf("Initialize %s: %v", path, err)
	}
	defer engine.Close()

	if _, err := engine.Execute(ctx, "CREATE TABLE orders (id INTEGER, col_a INTEGER)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, r := range rows {
		if _, err := engine.Execute(ctx, "INSERT INTO orders (id, col_a) VALUES (?, ?)", []any{r[0], r[1]}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestRunExecutesValidationAndRendersReport(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.db")
	targetPath := filepath.Join(dir, "target.db")
	seedSQLiteFile(t, sourcePath, [][2]int{{1, 10}, {2, 20}})
	seedSQLiteFile(t, targetPath, [][2]int{{1, 10}, {2, 20}})

	fileConfig := fmt.Sprintf(`
sources:
  src_db:
    kind: sqlite
    database: %q
  tgt_db:
    kind: sqlite
    database: %q
validation:
  type: Column
  source_conn: src_db
  target_conn: tgt_db
  table_name: orders
  aggregates:
    - alias: count_col_a
      source_column: col_a
      target_column: col_a
      kind: count
  result_handler:
    type: stdout-table
`, sourcePath, targetPath)

	configPath := filepath.Join(dir, "validation.yaml")
	if err := os.WriteFile(configPath, []byte(fileConfig), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out, errOut bytes.Buffer
	c := NewCommand(WithStreams(&out, &errOut))
	c.SetArgs([]string{"--config", configPath})
	if err := c.Execute(); err != nil {
		t.Fatalf("Execute: %v, stderr=%s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "count_col_a") {
		t.Errorf("expected the report to mention count_col_a, got %q", out.String())
	}
}
