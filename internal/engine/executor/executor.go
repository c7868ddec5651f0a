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

// Package executor is the Executor (§4.D): runs the source and target
// queries and hands the results to the Combiner, choosing between its two
// execution strategies. In-memory fans the two queries out to two
// goroutines (§5, §9 "keep it a pure fan-out helper, not a general
// scheduler") — plain goroutines and channels, no errgroup or worker-pool
// library, matching the teacher's own net/http-based concurrency surfaces —
// and joins the two materialized tables in Go. Pushdown issues a single SQL
// statement, joining the compiled source and target expressions directly on
// the shared engine, whenever sourceEngine and targetEngine are the same
// instance (§9: process_in_memory is derived from that identity check, not
// user-facing).
package executor

import (
	"context"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/combiner"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/errs"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/log"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/table"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/telemetry"
)

type sideResult struct {
	side   string
	result *table.Table
	err    error
}

// fanout runs fn twice, once per side, concurrently, and waits for both.
// This is the module's only concurrency primitive (§5).
func fanout(ctx context.Context, fn func(ctx context.Context, side string) (*table.Table, error)) (*table.Table, *table.Table, error) {
	ch := make(chan sideResult, 2)
	for _, side := range []string{"source", "target"} {
		go func(side string) {
			ctx, span := telemetry.ExecuteSpan(ctx, side)
			defer span.End()
			result, err := fn(ctx, side)
			if err != nil {
				err = errs.NewEngineError(side, err)
			}
			ch <- sideResult{side: side, result: result, err: err}
		}(side)
	}

	var sourceResult, targetResult *table.Table
	var firstErr error
	for i := 0; i < 2; i++ {
		r := <-ch
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		if r.side == "source" {
			sourceResult = r.result
		} else {
			targetResult = r.result
		}
	}
	return sourceResult, targetResult, firstErr
}

// Execute compiles b's source and target expressions and combines the
// results on keys into a report, choosing the pushdown strategy when
// sourceEngine and targetEngine are the same instance and the in-memory
// fan-out strategy otherwise (§4.D, §9).
func Execute(
	ctx context.Context,
	sourceEngine, targetEngine sources.Engine,
	b *builder.Builder,
	keys []string,
	run combiner.RunInfo,
	filterStatus []consts.Status,
	isValueComparison bool,
	logger log.Logger,
) ([]metric.Metric, error) {
	sourceSQL, sourceArgs, err := b.GetSourceQuery().Compile()
	if err != nil {
		return nil, errs.NewConfigError("compiling source query: %v", err)
	}
	targetSQL, targetArgs, err := b.GetTargetQuery().Compile()
	if err != nil {
		return nil, errs.NewConfigError("compiling target query: %v", err)
	}

	if sourceEngine == targetEngine {
		return executePushdown(ctx, sourceEngine, sourceSQL, targetSQL, b.GetMetadata(), keys, run, filterStatus, isValueComparison, logger)
	}

	sourceResult, targetResult, err := fanout(ctx, func(ctx context.Context, side string) (*table.Table, error) {
		if side == "source" {
			return sourceEngine.Execute(ctx, sourceSQL, sourceArgs)
		}
		return targetEngine.Execute(ctx, targetSQL, targetArgs)
	})
	if err != nil {
		if logger != nil {
			logger.Debug("executor: engine call failed",
				"source_columns", columnsOf(sourceResult), "target_columns", columnsOf(targetResult), "error", err)
		}
		return nil, err
	}

	return combiner.Combine(sourceResult, targetResult, keys, b.GetMetadata(), run, filterStatus, isValueComparison), nil
}

// executePushdown issues a single joined SQL statement on engine (the
// shared source/target instance) and hands the already-joined result
// straight to combiner.FromJoined, skipping the in-memory join entirely.
// sourceSQL and targetSQL carry no bind args (Expression.Compile always
// inlines literals today, see relalg/expression.go), so they can be spliced
// as subqueries without renumbering placeholders across two dialect-specific
// schemes.
func executePushdown(
	ctx context.Context,
	engine sources.Engine,
	sourceSQL, targetSQL string,
	metrics []builder.MetricPlan,
	keys []string,
	run combiner.RunInfo,
	filterStatus []consts.Status,
	isValueComparison bool,
	logger log.Logger,
) ([]metric.Metric, error) {
	ctx, span := telemetry.ExecuteSpan(ctx, "pushdown")
	defer span.End()

	query := pushdownQuery(engine.Dialect(), sourceSQL, targetSQL, keys, metrics)
	joined, err := engine.Execute(ctx, query, nil)
	if err != nil {
		if logger != nil {
			logger.Debug("executor: pushdown query failed", "query", query, "error", err)
		}
		return nil, errs.NewEngineError("pushdown", err)
	}

	return combiner.FromJoined(joined, keys, metrics, run, filterStatus, isValueComparison), nil
}

func columnsOf(t *table.Table) []string {
	if t == nil {
		return nil
	}
	return t.Columns
}
