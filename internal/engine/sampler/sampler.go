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

// Package sampler is the Random-Row Sampler (§4.C): an optional preamble
// that picks a bounded random set of primary-key values from the source
// engine and installs an IN-filter mirroring them onto both sides of a
// Builder.
package sampler

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/builder"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/errs"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/sources"
)

const sampleAlias = "sample_pk"

// Run samples up to batchSize primary-key values from sourceEngine and
// installs a mirrored IN-filter on b's source and target expressions. A
// no-op when cfg.UseRandomRows is false. Only the first configured primary
// key is used — multi-key random sampling is explicitly unsupported (§4.C).
func Run(ctx context.Context, b *builder.Builder, sourceEngine sources.Engine, cfg config.Configuration) error {
	if !cfg.UseRandomRows {
		return nil
	}

	pks := b.GetPrimaryKeys()
	if len(pks) == 0 {
		return errs.NewConfigError("use_random_rows requires at least one primary key")
	}
	pk := pks[0]

	// A table source looks the key's kind up in the table's schema; a
	// custom-query source has no table to look up and asks ColumnType.
	base := b.GetSourceQuery()
	kind := relalg.KindUnknown
	var err error
	if base.RawQuery() != "" {
		kind, err = sourceEngine.ColumnType(ctx, pk.SourceColumn)
	} else {
		var cols []sources.ColumnInfo
		cols, err = sourceEngine.Schema(ctx, base.Schema(), base.Table())
		for _, c := range cols {
			if c.Name == pk.SourceColumn {
				kind = c.Kind
			}
		}
	}
	if err != nil {
		return errs.NewEngineError("source", fmt.Errorf("sampler: resolving column type for %q: %w", pk.SourceColumn, err))
	}
	binary := kind.IsBinary()

	sampleExpr := standaloneSampleExpr(b.GetSourceQuery())
	col := sampleExpr.Dialect().QuoteIdentifier(pk.SourceColumn)
	if binary {
		sampleExpr.Project(sampleAlias, sampleExpr.Dialect().HexEncodeExpr(col))
	} else {
		sampleExpr.Project(sampleAlias, col)
	}
	sampleExpr.OrderByRandom()
	sampleExpr.Limit(cfg.RandomRowBatchSize)

	sql, args, err := sampleExpr.Compile()
	if err != nil {
		return err
	}
	result, err := sourceEngine.Execute(ctx, sql, args)
	if err != nil {
		return errs.NewEngineError("source", err)
	}
	if len(result.Rows) == 0 {
		// Empty sample: leave the builders unfiltered, and the subsequent
		// comparison will see empty result sets on its own (§4.C step 4).
		return nil
	}

	samples := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		v, ok := row[sampleAlias]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if cfg.TrimStringPks && !binary {
			s = strings.TrimRight(s, " ")
		}
		samples = append(samples, s)
	}

	sourceExpr, targetExpr := b.GetSourceQuery(), b.GetTargetQuery()
	sourceFilter := relalg.Filter{Kind: consts.FilterTypeIsIn, Column: pk.SourceColumn}
	targetFilter := relalg.Filter{Kind: consts.FilterTypeIsIn, Column: pk.TargetColumn}

	if binary {
		sourceFilter.RawValues = hexDecodeLiterals(sourceExpr.Dialect(), samples)
		targetFilter.RawValues = hexDecodeLiterals(targetExpr.Dialect(), samples)
	} else {
		values := make([]any, len(samples))
		for i, s := range samples {
			values[i] = s
		}
		sourceFilter.Values = values
		targetFilter.Values = values
	}

	sourceExpr.AddFilter(sourceFilter)
	targetExpr.AddFilter(targetFilter)
	return nil
}

// standaloneSampleExpr builds a bare expression over the same base
// table/custom-query and filters as base, without base's projections,
// aggregates, or group-bys — the sampling query is a plain row projection,
// never an aggregate.
func standaloneSampleExpr(base *relalg.Expression) *relalg.Expression {
	var fresh *relalg.Expression
	if base.RawQuery() != "" {
		fresh = relalg.Raw(base.Dialect(), base.RawQuery())
	} else {
		fresh = relalg.Table(base.Dialect(), base.Schema(), base.Table())
	}
	for _, f := range base.Filters() {
		fresh.AddFilter(f)
	}
	return fresh
}

func hexDecodeLiterals(d relalg.Dialect, hexValues []string) []string {
	out := make([]string, 0, len(hexValues))
	for _, h := range hexValues {
		lit, err := d.QuoteLiteral(h)
		if err != nil {
			continue
		}
		out = append(out, d.HexDecodeExpr(lit))
	}
	return out
}
