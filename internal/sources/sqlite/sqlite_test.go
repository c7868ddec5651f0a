// Copyright 2025 Google LLC
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

package sqlite_test

import (
	"context"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlite"
)

func TestParseFromYaml(t *testing.T) {
	in := `
kind: sqlite
database: /tmp/my.db
`
	want := sqlite.Config{
		Name:     "my-sqlite-instance",
		Kind:     sqlite.SourceKind,
		Database: "/tmp/my.db",
	}

	cfg, err := sources.DecodeConfig(context.Background(), "sqlite", "my-sqlite-instance",
		yaml.NewDecoder(strings.NewReader(in), yaml.Strict()))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if diff := cmp.Diff(sources.SourceConfig(want), cfg); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestInitializeInMemory(t *testing.T) {
	cfg := sqlite.Config{Name: "mem", Kind: sqlite.SourceKind, Database: ":memory:"}
	engine, err := cfg.Initialize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	if engine.Kind() != sqlite.SourceKind {
		t.Errorf("Kind() = %q, want %q", engine.Kind(), sqlite.SourceKind)
	}

	result, err := engine.Execute(context.Background(), "SELECT 1 AS n", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
}
