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

package sampler_test

import (
	"context"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/sampler"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources/sqlite"
)

func newMemoryEngine(t *testing.T) *sqlite.Config {
	t.Helper()
	return &sqlite.Config{Name: "mem", Kind: sqlite.SourceKind, Database: ":memory:"}
}

func TestSamplerInstallsInFilterOnBothSides(t *testing.T) {
	ctx := context.Background()
	cfg := newMemoryEngine(t)
	engine, err := cfg.Initialize(ctx, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Execute(ctx, "CREATE TABLE orders (id INTEGER, col_a INTEGER)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if _, err := engine.Execute(ctx, "INSERT INTO orders (id, col_a) VALUES (?, ?)", []any{i, i * 10}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	vcfg := config.Configuration{
		Type:          consts.RowValidation,
		TableName:     "orders",
		UseRandomRows: true,
		PrimaryKeys:   []config.ColumnMatch{{Alias: "id", SourceColumn: "id", TargetColumn: "id"}},
		Aggregates:    []config.AggregateConfig{{Alias: "count_col_a", SourceColumn: "col_a", TargetColumn: "col_a", Kind: consts.AggCount}},
	}
	mgr := config.NewManager(vcfg)

	b, err := builder.New(mgr.Config(), engine.Dialect(), engine.Dialect())
	if err != nil {
		t.Fatalf("builder.New: %v", err)
	}

	if err := sampler.Run(ctx, b, engine, mgr.Config()); err != nil {
		t.Fatalf("sampler.Run: %v", err)
	}

	sql, _, err := b.GetSourceQuery().Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(sql, "IN (") {
		t.Errorf("expected an IN-filter in compiled source query, got: %s", sql)
	}

	targetSQL, _, err := b.GetTargetQuery().Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(targetSQL, "IN (") {
		t.Errorf("expected an IN-filter in compiled target query, got: %s", targetSQL)
	}
}

func TestSamplerNoopWhenUseRandomRowsFalse(t *testing.T) {
	ctx := context.Background()
	cfg := newMemoryEngine(t)
	engine, err := cfg.Initialize(ctx, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	vcfg := config.Configuration{
		Type:       consts.ColumnValidation,
		TableName:  "orders",
		Aggregates: []config.AggregateConfig{{Alias: "count_col_a", SourceColumn: "col_a", TargetColumn: "col_a", Kind: consts.AggCount}},
	}
	b, err := builder.New(vcfg, engine.Dialect(), engine.Dialect())
	if err != nil {
		t.Fatalf("builder.New: %v", err)
	}
	if err := sampler.Run(ctx, b, engine, vcfg); err != nil {
		t.Fatalf("sampler.Run: %v", err)
	}
	sql, _, err := b.GetSourceQuery().Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(sql, "IN (") {
		t.Errorf("expected no IN-filter when use_random_rows is false, got: %s", sql)
	}
}

func TestSamplerRequiresPrimaryKey(t *testing.T) {
	ctx := context.Background()
	cfg := newMemoryEngine(t)
	engine, err := cfg.Initialize(ctx, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer engine.Close()

	vcfg := config.Configuration{
		Type:          consts.RowValidation,
		TableName:     "orders",
		UseRandomRows: true,
	}
	b, err := builder.New(vcfg, engine.Dialect(), engine.Dialect())
	if err != nil {
		t.Fatalf("builder.New: %v", err)
	}
	if err := sampler.Run(ctx, b, engine, vcfg); err == nil {
		t.Fatal("expected ConfigError when use_random_rows is set without primary keys")
	}
}
