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

// Package registry is the Metric Registry (§4.A): the single source of
// truth for which aggregate and calculated-field kinds exist and how each
// compiles to a relational-algebra expression template. It mirrors the
// shape of the teacher's tool/source registries (a map literal, not dynamic
// dispatch) per §9's "polymorphism over metric kinds" design note: a closed
// tagged variant, not an interface hierarchy.
package registry

import (
	"fmt"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
)

// AggregateTemplate renders one aggregate kind's inner-query expression
// (the column or expression the SQL aggregate function wraps) given the
// already-cast column reference.
type AggregateTemplate struct {
	Kind consts.AggregateKind
	// Expr returns the expression the outer query's aggregate function
	// applies to, given the (possibly cast) column reference.
	Expr func(column string) string
}

// CalculatedFieldTemplate renders one calculated-field kind's projection
// expression given its resolved input column references, in the dialect's
// SQL syntax.
type CalculatedFieldTemplate struct {
	Kind consts.CalculatedFieldKind
	// Expr returns the SQL expression computing this field from its inputs.
	// concat accepts two or more inputs; the rest expect exactly one,
	// except ifnull which expects exactly two (value, default).
	Expr func(inputs []string) (string, error)
}

var aggregates = map[consts.AggregateKind]AggregateTemplate{
	consts.AggCount:  {Kind: consts.AggCount, Expr: func(c string) string { return c }},
	consts.AggSum:    {Kind: consts.AggSum, Expr: func(c string) string { return c }},
	consts.AggMin:    {Kind: consts.AggMin, Expr: func(c string) string { return c }},
	consts.AggMax:    {Kind: consts.AggMax, Expr: func(c string) string { return c }},
	consts.AggAvg:    {Kind: consts.AggAvg, Expr: func(c string) string { return c }},
	consts.AggBitXor: {Kind: consts.AggBitXor, Expr: func(c string) string { return c }},
}

var calculatedFields = map[consts.CalculatedFieldKind]CalculatedFieldTemplate{
	consts.CalcLength: {
		Kind: consts.CalcLength,
		Expr: func(inputs []string) (string, error) {
			if len(inputs) != 1 {
				return "", fmt.Errorf("registry: length takes exactly 1 input, got %d", len(inputs))
			}
			return fmt.Sprintf("LENGTH(%s)", inputs[0]), nil
		},
	},
	consts.CalcUpper: {
		Kind: consts.CalcUpper,
		Expr: func(inputs []string) (string, error) {
			if len(inputs) != 1 {
				return "", fmt.Errorf("registry: upper takes exactly 1 input, got %d", len(inputs))
			}
			return fmt.Sprintf("UPPER(%s)", inputs[0]), nil
		},
	},
	consts.CalcLower: {
		Kind: consts.CalcLower,
		Expr: func(inputs []string) (string, error) {
			if len(inputs) != 1 {
				return "", fmt.Errorf("registry: lower takes exactly 1 input, got %d", len(inputs))
			}
			return fmt.Sprintf("LOWER(%s)", inputs[0]), nil
		},
	},
	consts.CalcConcat: {
		Kind: consts.CalcConcat,
		Expr: func(inputs []string) (string, error) {
			if len(inputs) < 2 {
				return "", fmt.Errorf("registry: concat takes at least 2 inputs, got %d", len(inputs))
			}
			expr := inputs[0]
			for _, in := range inputs[1:] {
				expr = fmt.Sprintf("(%s || %s)", expr, in)
			}
			return expr, nil
		},
	},
	consts.CalcIfNull: {
		Kind: consts.CalcIfNull,
		Expr: func(inputs []string) (string, error) {
			if len(inputs) != 2 {
				return "", fmt.Errorf("registry: ifnull takes exactly 2 inputs, got %d", len(inputs))
			}
			return fmt.Sprintf("COALESCE(%s, %s)", inputs[0], inputs[1]), nil
		},
	},
}

// Aggregate looks up an aggregate kind's template, returning a ConfigError-
// worthy error when the kind is unknown (§4.B "unknown aggregate/calculated
// kind").
func Aggregate(kind consts.AggregateKind) (AggregateTemplate, error) {
	t, ok := aggregates[kind]
	if !ok {
		return AggregateTemplate{}, fmt.Errorf("registry: unknown aggregate kind %q", kind)
	}
	return t, nil
}

// CalculatedField looks up a calculated-field kind's template.
func CalculatedField(kind consts.CalculatedFieldKind) (CalculatedFieldTemplate, error) {
	t, ok := calculatedFields[kind]
	if !ok {
		return CalculatedFieldTemplate{}, fmt.Errorf("registry: unknown calculated field kind %q", kind)
	}
	return t, nil
}

// IsNumericAggregate reports whether an aggregate kind's output is always
// compared numerically by the Combiner (count/sum/avg/bit_xor — min/max
// inherit the underlying column's type and may be string-valued).
func IsNumericAggregate(kind consts.AggregateKind) bool {
	switch kind {
	case consts.AggCount, consts.AggSum, consts.AggAvg, consts.AggBitXor:
		return true
	default:
		return false
	}
}
