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

// Package consts names the fixed vocabulary shared across the validation
// engine: validation types, filter kinds, and the report column names the
// Combiner stamps onto every row.
package consts

// ValidationType identifies what shape of comparison a Run performs.
type ValidationType string

const (
	ColumnValidation ValidationType = "Column"
	RowValidation    ValidationType = "Row"
	SchemaValidation ValidationType = "Schema"
	CustomQuery      ValidationType = "Custom-query"
)

// CustomQueryType narrows a CustomQuery run to the row- or column-shaped
// combiner behavior.
type CustomQueryType string

const (
	CustomQueryTypeRow    CustomQueryType = "row"
	CustomQueryTypeColumn CustomQueryType = "column"
)

// FilterType identifies how a configured filter restricts rows on both sides.
type FilterType string

const (
	FilterTypeEquals FilterType = "equals"
	FilterTypeIsIn   FilterType = "is_in"
	FilterTypeCustom FilterType = "custom"
)

// Status is the per-row, per-metric validation verdict.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Report column / field names, matching the Metric struct's JSON tags.
const (
	ValidationName   = "validation_name"
	AggregationType  = "aggregation_type"
	SourceAggValue   = "source_agg_value"
	TargetAggValue   = "target_agg_value"
	GroupByColumns   = "group_by_columns"
	Difference       = "difference"
	PctDifference    = "pct_difference"
	ValidationStatus = "validation_status"
)

// AggregateKind enumerates the Metric Registry's supported aggregates.
type AggregateKind string

const (
	AggCount  AggregateKind = "count"
	AggSum    AggregateKind = "sum"
	AggMin    AggregateKind = "min"
	AggMax    AggregateKind = "max"
	AggAvg    AggregateKind = "avg"
	AggBitXor AggregateKind = "bit_xor"
)

// CalculatedFieldKind enumerates the Metric Registry's supported calculated
// fields.
type CalculatedFieldKind string

const (
	CalcLength CalculatedFieldKind = "length"
	CalcUpper  CalculatedFieldKind = "upper"
	CalcLower  CalculatedFieldKind = "lower"
	CalcConcat CalculatedFieldKind = "concat"
	CalcIfNull CalculatedFieldKind = "ifnull"
)

// InputSuffix / OutputSuffix disambiguate same-named aggregates after the
// Combiner's full outer join.
const (
	InputSuffix  = "_src"
	OutputSuffix = "_tgt"
)

// DefaultSourceAlias / DefaultTargetAlias name the two sides inside the
// in-memory join engine.
const (
	DefaultSourceAlias = "source_df"
	DefaultTargetAlias = "target_df"
)

const (
	// DefaultRandomRowBatchSize is used when a config omits random_row_batch_size.
	DefaultRandomRowBatchSize = 50
	// DefaultMaxRecursiveQuerySize is used when a config omits max_recursive_query_size.
	DefaultMaxRecursiveQuerySize = 10000
)
