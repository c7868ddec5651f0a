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

package duckdb_test

import (
	"context"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/duckdb"
)

func TestParseFromYaml(t *testing.T) {
	in := `
kind: duckdb
dbFilePath: /tmp/my.duckdb
`
	want := duckdb.Config{
		Name:         "my-duckdb-instance",
		Kind:         duckdb.SourceKind,
		DatabaseFile: "/tmp/my.duckdb",
	}

	cfg, err := sources.DecodeConfig(context.Background(), "duckdb", "my-duckdb-instance",
		yaml.NewDecoder(strings.NewReader(in), yaml.Strict()))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if diff := cmp.Diff(sources.SourceConfig(want), cfg); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGetDuckDbConfiguration(t *testing.T) {
	// Exercised indirectly through Initialize; this asserts the in-memory
	// (no file path, no configuration) case produces an empty DSN, which
	// go-duckdb treats as an ephemeral in-memory database.
	cfg := duckdb.Config{Name: "mem", Kind: duckdb.SourceKind}
	engine, err := cfg.Initialize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	if engine.Kind() != duckdb.SourceKind {
		t.Errorf("Kind() = %q, want %q", engine.Kind(), duckdb.SourceKind)
	}
}
