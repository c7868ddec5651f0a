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

package registry_test

import (
	"testing"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/registry"
)

func TestAggregateUnknownKind(t *testing.T) {
	if _, err := registry.Aggregate("not-a-kind"); err == nil {
		t.Fatal("expected error for unknown aggregate kind")
	}
}

func TestCalculatedFieldConcatRequiresTwoInputs(t *testing.T) {
	tmpl, err := registry.CalculatedField(consts.CalcConcat)
	if err != nil {
		t.Fatalf("CalculatedField: %v", err)
	}
	if _, err := tmpl.Expr([]string{"a"}); err == nil {
		t.Fatal("expected error for concat with 1 input")
	}
	got, err := tmpl.Expr([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Expr: %v", err)
	}
	want := "((a || b) || c)"
	if got != want {
		t.Errorf("Expr() = %q, want %q", got, want)
	}
}

func TestCalculatedFieldIfNullRequiresTwoInputs(t *testing.T) {
	tmpl, _ := registry.CalculatedField(consts.CalcIfNull)
	if _, err := tmpl.Expr([]string{"a", "b", "c"}); err == nil {
		t.Fatal("expected error for ifnull with 3 inputs")
	}
	got, err := tmpl.Expr([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Expr: %v", err)
	}
	if got != "COALESCE(a, b)" {
		t.Errorf("Expr() = %q", got)
	}
}

func TestIsNumericAggregate(t *testing.T) {
	cases := map[consts.AggregateKind]bool{
		consts.AggCount: true,
		consts.AggSum:   true,
		consts.AggAvg:   true,
		consts.AggMin:   false,
		consts.AggMax:   false,
	}
	for kind, want := range cases {
		if got := registry.IsNumericAggregate(kind); got != want {
			t.Errorf("IsNumericAggregate(%s) = %v, want %v", kind, got, want)
		}
	}
}
