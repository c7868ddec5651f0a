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

// Package combiner is the Combiner (§4.E): joins source/target result
// tables on the agreed key set and produces one report row per metric per
// observed key tuple, with difference, percent-difference, and status.
package combiner

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/metric"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/table"
)

// SourceSuffix and TargetSuffix name the columns FromJoined reads a metric's
// source/target value from (<alias>+suffix). Exported so the Executor's
// pushdown strategy (§4.D) can alias a single joined SQL statement's
// columns to the same shape table.FullOuterJoin produces in-memory.
const (
	SourceSuffix = "_src"
	TargetSuffix = "_tgt"
)

// RunInfo is the run-scoped metadata stamped onto every produced row
// (§4.E "Metadata injection").
type RunInfo struct {
	RunID           string
	Labels          map[string]string
	ValidationType  consts.ValidationType
	SourceTableName string
	TargetTableName string
	StartTime       time.Time
	EndTime         time.Time
}

// Combine joins source and target on keys (empty keys means the
// pure-column-validation single-row case), computes one metric.Metric per
// configured metric per key tuple, and applies filterStatus. This is the
// in-memory execution strategy (§4.D): the join itself happens here, in Go,
// after both sides have already been materialized into table.Table.
//
// isValueComparison selects the custom-query-row direct-equality status
// rule (§4.E step 4) instead of the percent-threshold rule.
func Combine(
	source, target *table.Table,
	keys []string,
	metrics []builder.MetricPlan,
	run RunInfo,
	filterStatus []consts.Status,
	isValueComparison bool,
) []metric.Metric {
	joined := table.FullOuterJoin(source, target, keys, SourceSuffix, TargetSuffix)
	return FromJoined(joined, keys, metrics, run, filterStatus, isValueComparison)
}

// FromJoined computes the report from a table that has already been joined
// on keys, with each metric's source/target values living in columns named
// <alias>_src and <alias>_tgt. Combine builds that table itself via
// table.FullOuterJoin (the in-memory strategy); the pushdown strategy
// (§4.D) builds the same shape via a single joined SQL statement issued by
// the Executor when source and target are the same engine instance, and
// calls this directly to skip the redundant in-memory join.
func FromJoined(
	joined *table.Table,
	keys []string,
	metrics []builder.MetricPlan,
	run RunInfo,
	filterStatus []consts.Status,
	isValueComparison bool,
) []metric.Metric {
	var report []metric.Metric
	for _, row := range joined.Rows {
		groupBy := map[string]any{}
		for _, k := range keys {
			groupBy[k] = row[k]
		}

		for _, m := range metrics {
			sourceVal := row[m.Alias+SourceSuffix]
			targetVal := row[m.Alias+TargetSuffix]

			diff, pct, status := evaluate(sourceVal, targetVal, m.Threshold, isValueComparison)

			report = append(report, metric.Metric{
				RunID:            run.RunID,
				ValidationName:   m.Alias,
				ValidationType:   run.ValidationType,
				SourceTableName:  run.SourceTableName,
				TargetTableName:  run.TargetTableName,
				SourceColumnName: m.SourceColumn,
				TargetColumnName: m.TargetColumn,
				AggregationType:  m.Kind,
				SourceAggValue:   sourceVal,
				TargetAggValue:   targetVal,
				Difference:       diff,
				PctDifference:    pct,
				PctThreshold:     m.Threshold,
				ValidationStatus: status,
				GroupByColumns:   groupBy,
				Labels:           run.Labels,
				StartTime:        run.StartTime,
				EndTime:          run.EndTime,
			})
		}
	}

	return FilterStatus(report, filterStatus)
}

// FilterStatus restricts report to rows whose validation_status is in
// filterStatus, or returns report unchanged when filterStatus is empty.
// Exported so the Orchestrator can apply the same rule to the Recursive Row
// Validator's report, which is assembled across many Combine calls and can
// only be filtered once the full recursion has finished (§4.E / §8
// "filter-status idempotence").
func FilterStatus(report []metric.Metric, filterStatus []consts.Status) []metric.Metric {
	if len(filterStatus) == 0 {
		return report
	}
	allowed := map[consts.Status]bool{}
	for _, s := range filterStatus {
		allowed[s] = true
	}
	filtered := report[:0:0]
	for _, row := range report {
		if allowed[row.ValidationStatus] {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// evaluate implements §4.E steps 1-4: difference, pct_difference, and
// status for one source/target value pair.
func evaluate(sourceVal, targetVal any, threshold float64, isValueComparison bool) (diff, pct any, status consts.Status) {
	sf, sNil, sNum := numeric(sourceVal)
	tf, tNil, tNum := numeric(targetVal)

	if sNil || tNil || !sNum || !tNum {
		diff = nil
	} else {
		diff = tf - sf
	}

	equal := valuesEqual(sourceVal, targetVal, sf, tf, sNum, tNum, sNil, tNil)

	var pctVal float64
	pctIsNull := false
	switch {
	case equal:
		pctVal = 0
	case sNum && sf == 0 && tNum && tf > 0:
		pctVal = 100
	case sNum && sf == 0 && tNum && tf < 0:
		pctVal = -100
	case sNil && !tNil:
		pctVal = 100
	case tNil && !sNil:
		pctVal = -100
	case sNum && tNum:
		pctVal = 100 * (tf - sf) / math.Abs(sf)
	default:
		pctIsNull = true
	}

	if pctIsNull {
		pct = nil
	} else {
		pct = pctVal
	}

	if isValueComparison {
		if equal {
			status = consts.StatusSuccess
		} else {
			status = consts.StatusFail
		}
		return diff, pct, status
	}

	if pctIsNull {
		status = consts.StatusFail
		return diff, pct, status
	}
	if math.Abs(pctVal) <= threshold {
		status = consts.StatusSuccess
	} else {
		status = consts.StatusFail
	}
	return diff, pct, status
}

// numeric attempts to interpret v as a float64, reporting whether it was
// nil and whether it parsed as numeric at all. Database drivers hand back
// a mix of int64, float64, []byte, and string depending on engine and
// column type; all are normalized here so the diff rules compare
// consistently regardless of source.
func numeric(v any) (f float64, isNil, isNumeric bool) {
	if v == nil {
		return 0, true, false
	}
	switch n := v.(type) {
	case float64:
		return n, false, true
	case float32:
		return float64(n), false, true
	case int:
		return float64(n), false, true
	case int32:
		return float64(n), false, true
	case int64:
		return float64(n), false, true
	case uint64:
		return float64(n), false, true
	case bool:
		if n {
			return 1, false, true
		}
		return 0, false, true
	case []byte:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false, false
		}
		return parsed, false, true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false, false
		}
		return parsed, false, true
	default:
		return 0, false, false
	}
}

// valuesEqual compares source and target for the "source == target" rule,
// numerically when both are numeric, else by string representation
// (covering string-valued min/max aggregates and value-comparison columns).
func valuesEqual(source, target any, sf, tf float64, sNum, tNum, sNil, tNil bool) bool {
	if sNil && tNil {
		return true
	}
	if sNil != tNil {
		return false
	}
	if sNum && tNum {
		return sf == tf
	}
	return fmt.Sprintf("%v", source) == fmt.Sprintf("%v", target)
}
