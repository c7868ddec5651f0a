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

// Package config is the Configuration record §3 describes: everything
// needed for one Run, immutable once decoded. It carries yaml and validator
// struct tags in the teacher's style. The CLI's run-file parser decodes the
// validation block with a plain yaml.Unmarshal, so the validate tags are not
// enforced on that path.
package config

import (
	"github.com/google/uuid"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
)

// ColumnMatch names one column pairing between source and target, used for
// both primary keys and grouped columns — the two config shapes spec.md §3
// describes identically ("same shape").
type ColumnMatch struct {
	Alias        string `yaml:"alias" validate:"required"`
	SourceColumn string `yaml:"source_column" validate:"required"`
	TargetColumn string `yaml:"target_column" validate:"required"`
	Cast         string `yaml:"cast,omitempty"`
}

// AggregateConfig configures one aggregate metric. Threshold overrides the
// Configuration's global threshold for this metric alone, per §3 "per-metric
// or global threshold"; nil means "use the global threshold".
type AggregateConfig struct {
	Alias        string               `yaml:"alias" validate:"required"`
	SourceColumn string               `yaml:"source_column"`
	TargetColumn string               `yaml:"target_column"`
	Kind         consts.AggregateKind `yaml:"kind" validate:"required"`
	Cast         string               `yaml:"cast,omitempty"`
	Threshold    *float64             `yaml:"threshold,omitempty"`
}

// CalculatedFieldConfig configures one node of the calculated-field DAG.
type CalculatedFieldConfig struct {
	Alias  string                     `yaml:"alias" validate:"required"`
	Inputs []string                   `yaml:"inputs" validate:"required"`
	Kind   consts.CalculatedFieldKind `yaml:"kind" validate:"required"`
	Depth  int                        `yaml:"depth"`
}

// FilterConfig configures one WHERE-style predicate applied to both sides.
type FilterConfig struct {
	Kind         consts.FilterType `yaml:"kind" validate:"required"`
	SourceColumn string            `yaml:"source_column"`
	SourceValue  any               `yaml:"source_value"`
	TargetColumn string            `yaml:"target_column"`
	TargetValue  any               `yaml:"target_value"`
}

// ResultHandlerConfig configures the result handler §6 names: stdout-table,
// text, json, csv, or sink-db.
type ResultHandlerConfig struct {
	Kind       string `yaml:"type" validate:"required"`
	Path       string `yaml:"path,omitempty"`
	SinkConn   string `yaml:"sink_conn,omitempty"`
	SinkSchema string `yaml:"sink_schema,omitempty"`
	SinkTable  string `yaml:"sink_table,omitempty"`
}

// Configuration is the full validation configuration, immutable for a run.
type Configuration struct {
	RunID  string            `yaml:"run_id,omitempty"`
	Labels map[string]string `yaml:"labels,omitempty"`

	Type            consts.ValidationType   `yaml:"type" validate:"required"`
	CustomQueryType consts.CustomQueryType  `yaml:"custom_query_type,omitempty"`

	SourceConn string `yaml:"source_conn" validate:"required"`
	TargetConn string `yaml:"target_conn" validate:"required"`

	SchemaName       string `yaml:"schema_name"`
	TableName        string `yaml:"table_name"`
	TargetSchemaName string `yaml:"target_schema_name,omitempty"`
	TargetTableName  string `yaml:"target_table_name,omitempty"`

	CustomQuery       string `yaml:"custom_query,omitempty"`
	TargetCustomQuery string `yaml:"target_custom_query,omitempty"`

	PrimaryKeys      []ColumnMatch           `yaml:"primary_keys,omitempty"`
	GroupedColumns   []ColumnMatch           `yaml:"grouped_columns,omitempty"`
	Aggregates       []AggregateConfig       `yaml:"aggregates,omitempty"`
	CalculatedFields []CalculatedFieldConfig `yaml:"calculated_fields,omitempty"`
	Filters          []FilterConfig          `yaml:"filters,omitempty"`

	Threshold    float64         `yaml:"threshold"`
	FilterStatus []consts.Status `yaml:"filter_status,omitempty"`

	ResultHandler ResultHandlerConfig `yaml:"result_handler" validate:"required"`
	Format        string              `yaml:"format,omitempty"`

	MaxRecursiveQuerySize int  `yaml:"max_recursive_query_size,omitempty"`
	RandomRowBatchSize    int  `yaml:"random_row_batch_size,omitempty"`
	UseRandomRows         bool `yaml:"use_random_rows,omitempty"`
	TrimStringPks         bool `yaml:"trim_string_pks,omitempty"`
}

// Manager wraps a decoded Configuration with the derived accessors the rest
// of the engine consults, so defaulting logic lives in one place rather than
// scattered across every reader.
type Manager struct {
	cfg Configuration
}

// NewManager normalizes cfg (applying defaults for run_id and the
// recursion/sampling tunables) and returns a Manager over it.
func NewManager(cfg Configuration) *Manager {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.MaxRecursiveQuerySize <= 0 {
		cfg.MaxRecursiveQuerySize = consts.DefaultMaxRecursiveQuerySize
	}
	if cfg.RandomRowBatchSize <= 0 {
		cfg.RandomRowBatchSize = consts.DefaultRandomRowBatchSize
	}
	return &Manager{cfg: cfg}
}

func (m *Manager) Config() Configuration { return m.cfg }

func (m *Manager) RunID() string              { return m.cfg.RunID }
func (m *Manager) Labels() map[string]string  { return m.cfg.Labels }
func (m *Manager) Type() consts.ValidationType { return m.cfg.Type }

// SourceTableName and TargetTableName resolve the physical table names,
// falling back to the shared TableName when the target-specific one is
// unset (the common case: same table name on both sides).
func (m *Manager) SourceTableName() string { return m.cfg.TableName }
func (m *Manager) TargetTableName() string {
	if m.cfg.TargetTableName != "" {
		return m.cfg.TargetTableName
	}
	return m.cfg.TableName
}

func (m *Manager) SourceSchemaName() string { return m.cfg.SchemaName }
func (m *Manager) TargetSchemaName() string {
	if m.cfg.TargetSchemaName != "" {
		return m.cfg.TargetSchemaName
	}
	return m.cfg.SchemaName
}

func (m *Manager) UseRandomRows() bool          { return m.cfg.UseRandomRows }
func (m *Manager) RandomRowBatchSize() int      { return m.cfg.RandomRowBatchSize }
func (m *Manager) MaxRecursiveQuerySize() int   { return m.cfg.MaxRecursiveQuerySize }
func (m *Manager) TrimStringPks() bool          { return m.cfg.TrimStringPks }
func (m *Manager) Threshold() float64           { return m.cfg.Threshold }
func (m *Manager) FilterStatus() []consts.Status { return m.cfg.FilterStatus }
