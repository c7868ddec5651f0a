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

// Package orchestrator is the Orchestrator (§4.G): owns one Run's
// Configuration, fixes its run metadata, and dispatches to the Sampler,
// Recursive Row Validator, a registered schema-validator, or a single
// Executor+Combiner pass depending on validation_type.
package orchestrator

import (
	"context"
	"time"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/combiner"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/errs"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/executor"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/recursive"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/sampler"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/log"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
)

// SchemaValidator is the external schema-validator seam (spec's explicit
// Non-goal: "schema-only validation mode — a sibling module, treated as a
// black box"). An Orchestrator asked for validation_type=schema without one
// registered fails with a ConfigError rather than guessing at semantics that
// belong to that sibling module.
type SchemaValidator interface {
	Validate(ctx context.Context, cfg config.Configuration, sourceEngine, targetEngine sources.Engine) ([]metric.Metric, error)
}

// Orchestrator owns one Run: its Configuration (via a Manager for defaults)
// and its fixed run metadata.
type Orchestrator struct {
	mgr             *config.Manager
	schemaValidator SchemaValidator
	logger          log.Logger
}

// New builds an Orchestrator over cfg. schemaValidator may be nil; it is
// only consulted for validation_type=schema.
func New(cfg config.Configuration, schemaValidator SchemaValidator, logger log.Logger) *Orchestrator {
	return &Orchestrator{mgr: config.NewManager(cfg), schemaValidator: schemaValidator, logger: logger}
}

// RunID returns this Orchestrator's fixed run_id (externally provided or
// freshly generated at construction via the Manager).
func (o *Orchestrator) RunID() string { return o.mgr.RunID() }

// Execute runs this Orchestrator's configured validation against an already
// connected source and target engine and returns the final report.
//
// Source and target engine handles are borrowed from the caller — per §5
// "Shared resources", this function never closes either; a caller that
// opened them fresh is responsible for releasing them on any exit path.
func (o *Orchestrator) Execute(ctx context.Context, sourceEngine, targetEngine sources.Engine) ([]metric.Metric, error) {
	cfg := o.mgr.Config()
	start := time.Now()

	b, err := builder.New(cfg, sourceEngine.Dialect(), targetEngine.Dialect())
	if err != nil {
		return nil, err
	}

	// process_in_memory is derived, not user-facing (§9): it is this
	// identity check, re-made by the Executor itself against the same two
	// handles wherever it runs (including once per level of the Recursive
	// Row Validator's descent) so the strategy choice never drifts out of
	// sync with what was logged here.
	if o.logger != nil && sourceEngine == targetEngine {
		o.logger.Debug("process_in_memory: source and target are the same engine instance, pushdown strategy will be used")
	}

	if o.mgr.UseRandomRows() {
		if err := sampler.Run(ctx, b, sourceEngine, cfg); err != nil {
			return nil, err
		}
	}

	run := combiner.RunInfo{
		RunID:           o.mgr.RunID(),
		Labels:          o.mgr.Labels(),
		ValidationType:  cfg.Type,
		SourceTableName: o.mgr.SourceTableName(),
		TargetTableName: o.mgr.TargetTableName(),
		StartTime:       start,
	}

	var report []metric.Metric
	switch cfg.Type {
	case consts.RowValidation:
		report, err = recursive.Run(ctx, b, sourceEngine, targetEngine, o.mgr.MaxRecursiveQuerySize(), run, o.logger)
		if err == nil {
			report = combiner.FilterStatus(report, o.mgr.FilterStatus())
		}
	case consts.SchemaValidation:
		if o.schemaValidator == nil {
			return nil, errs.NewConfigError("validation_type=Schema requires a registered schema-validator")
		}
		report, err = o.schemaValidator.Validate(ctx, cfg, sourceEngine, targetEngine)
	default:
		keys := joinKeys(cfg, b)
		isValueComparison := cfg.Type == consts.CustomQuery && cfg.CustomQueryType == consts.CustomQueryTypeRow
		report, err = executor.Execute(ctx, sourceEngine, targetEngine, b, keys, run, o.mgr.FilterStatus(), isValueComparison, o.logger)
	}
	if err != nil {
		return nil, err
	}

	end := time.Now()
	for i := range report {
		report[i].EndTime = end
	}
	return report, nil
}

// joinKeys implements §3's "Join keys" rule for every dispatch path that
// isn't the Recursive Row Validator (which resolves its own leaf-level keys
// as it descends): primary keys for custom-query-row, else the configured
// group-by aliases, else no keys at all (pure column validation).
func joinKeys(cfg config.Configuration, b *builder.Builder) []string {
	if cfg.Type == consts.CustomQuery && cfg.CustomQueryType == consts.CustomQueryTypeRow {
		pks := b.GetPrimaryKeys()
		keys := make([]string, len(pks))
		for i, pk := range pks {
			keys[i] = pk.Alias
		}
		return keys
	}
	if aliases := b.GetGroupAliases(); len(aliases) > 0 {
		return aliases
	}
	return nil
}
