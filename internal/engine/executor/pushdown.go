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

package executor

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/combiner"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
)

// pushdownQuery builds the single SQL statement the pushdown strategy
// issues when source and target are the same engine instance (§4.D).
// sourceSQL and targetSQL are spliced in as subqueries aliased src/tgt;
// every metric's two sides are aliased to <alias>_src/<alias>_tgt so the
// result lands in exactly the shape combiner.FromJoined expects.
//
// With no keys (pure column validation: one aggregate row per side), this
// is a plain two-subquery cross join. With keys, a FULL OUTER JOIN is
// emulated as a UNION ALL of two LEFT JOINs — sqlite and MySQL, two of the
// six wired engines, have no native FULL OUTER JOIN — rather than branching
// the SQL shape per dialect.
func pushdownQuery(d relalg.Dialect, sourceSQL, targetSQL string, keys []string, metrics []builder.MetricPlan) string {
	if len(keys) == 0 {
		return fmt.Sprintf(
			"SELECT %s FROM (%s) AS src, (%s) AS tgt",
			strings.Join(metricColumns(d, metrics, "src", "tgt"), ", "),
			sourceSQL, targetSQL,
		)
	}

	joinPred := joinPredicate(d, keys)

	matchedAndSourceOnly := fmt.Sprintf(
		"SELECT %s, %s FROM (%s) AS src LEFT JOIN (%s) AS tgt ON %s",
		strings.Join(keyColumns(d, keys, "src"), ", "),
		strings.Join(metricColumns(d, metrics, "src", "tgt"), ", "),
		sourceSQL, targetSQL, joinPred,
	)

	targetOnly := fmt.Sprintf(
		"SELECT %s, %s FROM (%s) AS tgt LEFT JOIN (%s) AS src ON %s WHERE src.%s IS NULL",
		strings.Join(keyColumns(d, keys, "tgt"), ", "),
		strings.Join(nullSourceMetricColumns(d, metrics, "tgt"), ", "),
		targetSQL, sourceSQL, joinPred, d.QuoteIdentifier(keys[0]),
	)

	return matchedAndSourceOnly + " UNION ALL " + targetOnly
}

func keyColumns(d relalg.Dialect, keys []string, table string) []string {
	cols := make([]string, len(keys))
	for i, k := range keys {
		q := d.QuoteIdentifier(k)
		cols[i] = fmt.Sprintf("%s.%s AS %s", table, q, q)
	}
	return cols
}

func joinPredicate(d relalg.Dialect, keys []string) string {
	preds := make([]string, len(keys))
	for i, k := range keys {
		q := d.QuoteIdentifier(k)
		preds[i] = fmt.Sprintf("src.%s = tgt.%s", q, q)
	}
	return strings.Join(preds, " AND ")
}

func metricColumns(d relalg.Dialect, metrics []builder.MetricPlan, srcTable, tgtTable string) []string {
	cols := make([]string, 0, len(metrics)*2)
	for _, m := range metrics {
		q := d.QuoteIdentifier(m.Alias)
		cols = append(cols,
			fmt.Sprintf("%s.%s AS %s", srcTable, q, d.QuoteIdentifier(m.Alias+combiner.SourceSuffix)),
			fmt.Sprintf("%s.%s AS %s", tgtTable, q, d.QuoteIdentifier(m.Alias+combiner.TargetSuffix)),
		)
	}
	return cols
}

// nullSourceMetricColumns is metricColumns for the target-only branch: the
// source side never matched, so its metric columns are NULL rather than
// read off a src alias that isn't in scope in that branch's FROM clause.
func nullSourceMetricColumns(d relalg.Dialect, metrics []builder.MetricPlan, tgtTable string) []string {
	cols := make([]string, 0, len(metrics)*2)
	for _, m := range metrics {
		q := d.QuoteIdentifier(m.Alias)
		cols = append(cols,
			fmt.Sprintf("NULL AS %s", d.QuoteIdentifier(m.Alias+combiner.SourceSuffix)),
			fmt.Sprintf("%s.%s AS %s", tgtTable, q, d.QuoteIdentifier(m.Alias+combiner.TargetSuffix)),
		)
	}
	return cols
}
