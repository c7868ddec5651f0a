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

// Package metric defines the report row schema (§3 "Metric", §6 "Report row
// schema"): the stable output of one configured measurement for one
// observed key tuple.
package metric

import (
	"time"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
)

// Metric is one row of the validation report.
type Metric struct {
	RunID            string                `json:"run_id"`
	ValidationName   string                `json:"validation_name"`
	ValidationType   consts.ValidationType `json:"validation_type"`
	SourceTableName  string                `json:"source_table_name"`
	TargetTableName  string                `json:"target_table_name"`
	SourceColumnName string                `json:"source_column_name"`
	TargetColumnName string                `json:"target_column_name"`
	AggregationType  consts.AggregateKind  `json:"aggregation_type"`
	SourceAggValue   any                   `json:"source_agg_value"`
	TargetAggValue   any                   `json:"target_agg_value"`
	Difference       any                   `json:"difference"`
	PctDifference    any                   `json:"pct_difference"`
	PctThreshold     float64               `json:"pct_threshold"`
	ValidationStatus consts.Status         `json:"validation_status"`
	GroupByColumns   map[string]any        `json:"group_by_columns"`
	Labels           map[string]string     `json:"labels,omitempty"`
	StartTime        time.Time             `json:"start_time"`
	EndTime          time.Time             `json:"end_time"`
}
