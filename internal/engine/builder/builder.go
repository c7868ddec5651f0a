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

// Package builder is the Validation Builder (§4.B): from a Configuration it
// produces the paired source/target relational-algebra expressions and the
// metric plan the Combiner stamps onto every report row.
package builder

import (
	"fmt"
	"sort"

	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/config"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/consts"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/errs"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/engine/registry"
	"github.com/GoogleCloudPlatform/data-validation-engine/internal/relalg"
)

// MetricPlan names one configured aggregate: its alias, kind, and the
// physical columns it was computed from on each side.
type MetricPlan struct {
	Alias        string
	Kind         consts.AggregateKind
	SourceColumn string
	TargetColumn string
	// Threshold is this metric's resolved pct-difference threshold: the
	// aggregate's own Threshold override if set, else the Configuration's
	// global Threshold.
	Threshold float64
}

// GroupedField names one alignment column (a primary key or a grouped
// column — §3 gives both the same shape) and the physical column it
// resolves to on each side.
type GroupedField struct {
	Alias        string
	SourceColumn string
	TargetColumn string
}

// Builder wraps one paired source/target relalg.Expression, the alias
// bookkeeping needed to resolve calculated-field inputs and aggregate
// columns, and the metric plan accumulated so far.
type Builder struct {
	cfg config.Configuration

	sourceExpr *relalg.Expression
	targetExpr *relalg.Expression

	primaryKeys []GroupedField

	// activeGroups are the currently registered group-by dimensions,
	// mirrored on both expressions. pop_grouped_fields moves these out to
	// the caller and clears this list.
	activeGroups []GroupedField

	// sourceProjected / targetProjected track which aliases have already
	// been projected on the inner query for each side, so ensureProjected
	// is idempotent the way relalg.Expression.Project already is by alias,
	// but also tells us whether a name is a known alias vs. a raw column.
	sourceProjected map[string]bool
	targetProjected map[string]bool

	metrics []MetricPlan
}

// New builds a Builder from cfg, applying filters, resolving calculated
// fields in ascending depth order, and projecting primary keys, grouped
// columns, and aggregates, per §4.B's five-step algorithm.
func New(cfg config.Configuration, sourceDialect, targetDialect relalg.Dialect) (*Builder, error) {
	b := &Builder{
		cfg:             cfg,
		sourceProjected: map[string]bool{},
		targetProjected: map[string]bool{},
	}

	if cfg.CustomQuery != "" {
		b.sourceExpr = relalg.Raw(sourceDialect, cfg.CustomQuery)
		targetQuery := cfg.TargetCustomQuery
		if targetQuery == "" {
			targetQuery = cfg.CustomQuery
		}
		b.targetExpr = relalg.Raw(targetDialect, targetQuery)
	} else {
		b.sourceExpr = relalg.Table(sourceDialect, cfg.SchemaName, cfg.TableName)
		targetSchema, targetTable := cfg.TargetSchemaName, cfg.TargetTableName
		if targetSchema == "" {
			targetSchema = cfg.SchemaName
		}
		if targetTable == "" {
			targetTable = cfg.TableName
		}
		b.targetExpr = relalg.Table(targetDialect, targetSchema, targetTable)
	}

	// Step 1: filters.
	for _, f := range cfg.Filters {
		if err := b.AddFilter(f); err != nil {
			return nil, err
		}
	}

	for _, pk := range cfg.PrimaryKeys {
		gf, err := b.projectColumnMatch(pk)
		if err != nil {
			return nil, err
		}
		b.primaryKeys = append(b.primaryKeys, gf)
	}
	for _, gc := range cfg.GroupedColumns {
		gf, err := b.projectColumnMatch(gc)
		if err != nil {
			return nil, err
		}
		if err := b.AddQueryGroup(gf); err != nil {
			return nil, err
		}
	}

	// Step 2: calculated fields, ascending depth.
	fields := append([]config.CalculatedFieldConfig(nil), cfg.CalculatedFields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Depth < fields[j].Depth })
	for _, cf := range fields {
		if err := b.projectCalculatedField(cf); err != nil {
			return nil, err
		}
	}

	// Step 3: aggregates.
	for _, agg := range cfg.Aggregates {
		if err := b.projectAggregate(agg); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Builder) projectColumnMatch(m config.ColumnMatch) (GroupedField, error) {
	var castKind relalg.ColumnKind
	var err error
	if m.Cast != "" {
		castKind, err = parseCastKind(m.Cast)
		if err != nil {
			return GroupedField{}, errs.NewConfigError("%v", err)
		}
	}
	b.project(b.sourceExpr, b.sourceProjected, m.Alias, m.SourceColumn, m.Cast != "", castKind)
	b.project(b.targetExpr, b.targetProjected, m.Alias, m.TargetColumn, m.Cast != "", castKind)
	return GroupedField{Alias: m.Alias, SourceColumn: m.SourceColumn, TargetColumn: m.TargetColumn}, nil
}

// project registers alias on expr as a pass-through (or cast) projection of
// rawColumn, unless alias is already projected.
func (b *Builder) project(expr *relalg.Expression, projected map[string]bool, alias, rawColumn string, cast bool, kind relalg.ColumnKind) {
	if projected[alias] {
		return
	}
	col := expr.Dialect().QuoteIdentifier(rawColumn)
	exprText := col
	if cast {
		exprText = relalg.CastExpr(expr.Dialect(), col, kind)
	}
	expr.Project(alias, exprText)
	projected[alias] = true
}

// ensureProjected resolves name to an inner-query column reference: if name
// is already a known alias (a primary key, grouped column, or calculated
// field), it's referenced directly; otherwise it's projected pass-through
// under its own name as a raw base column.
func (b *Builder) ensureProjected(expr *relalg.Expression, projected map[string]bool, name string, cast bool, kind relalg.ColumnKind) string {
	if !projected[name] {
		b.project(expr, projected, name, name, cast, kind)
	} else if cast {
		// Already projected (e.g. a calculated field); re-project under a
		// distinct alias carrying the cast, so the original is untouched
		// for any other consumer.
		castAlias := name + "__cast"
		if !projected[castAlias] {
			expr.Project(castAlias, relalg.CastExpr(expr.Dialect(), expr.Dialect().QuoteIdentifier(name), kind))
			projected[castAlias] = true
		}
		return expr.Dialect().QuoteIdentifier(castAlias)
	}
	return expr.Dialect().QuoteIdentifier(name)
}

func (b *Builder) projectCalculatedField(cf config.CalculatedFieldConfig) error {
	tmpl, err := registry.CalculatedField(cf.Kind)
	if err != nil {
		return errs.NewConfigError("%v", err)
	}

	sourceInputs := make([]string, 0, len(cf.Inputs))
	targetInputs := make([]string, 0, len(cf.Inputs))
	for _, in := range cf.Inputs {
		if !b.sourceProjected[in] && !b.targetProjected[in] {
			return errs.NewConfigError("calculated field %q: unresolved input %q at depth %d", cf.Alias, in, cf.Depth)
		}
		sourceInputs = append(sourceInputs, b.ensureProjected(b.sourceExpr, b.sourceProjected, in, false, relalg.KindUnknown))
		targetInputs = append(targetInputs, b.ensureProjected(b.targetExpr, b.targetProjected, in, false, relalg.KindUnknown))
	}

	sourceExprText, err := tmpl.Expr(sourceInputs)
	if err != nil {
		return errs.NewConfigError("calculated field %q: %v", cf.Alias, err)
	}
	targetExprText, err := tmpl.Expr(targetInputs)
	if err != nil {
		return errs.NewConfigError("calculated field %q: %v", cf.Alias, err)
	}

	b.sourceExpr.Project(cf.Alias, sourceExprText)
	b.sourceProjected[cf.Alias] = true
	b.targetExpr.Project(cf.Alias, targetExprText)
	b.targetProjected[cf.Alias] = true
	return nil
}

func (b *Builder) projectAggregate(agg config.AggregateConfig) error {
	tmpl, err := registry.Aggregate(agg.Kind)
	if err != nil {
		return errs.NewConfigError("%v", err)
	}

	sourceCol, targetCol := agg.SourceColumn, agg.TargetColumn
	if sourceCol == "" {
		sourceCol = agg.Alias
	}
	if targetCol == "" {
		targetCol = agg.Alias
	}

	var castKind relalg.ColumnKind
	hasCast := agg.Cast != ""
	if hasCast {
		castKind, err = parseCastKind(agg.Cast)
		if err != nil {
			return errs.NewConfigError("%v", err)
		}
	}

	sourceRef := b.ensureProjected(b.sourceExpr, b.sourceProjected, sourceCol, hasCast, castKind)
	targetRef := b.ensureProjected(b.targetExpr, b.targetProjected, targetCol, hasCast, castKind)

	b.sourceExpr.Aggregate(agg.Alias, agg.Kind, tmpl.Expr(sourceRef))
	b.targetExpr.Aggregate(agg.Alias, agg.Kind, tmpl.Expr(targetRef))

	threshold := b.cfg.Threshold
	if agg.Threshold != nil {
		threshold = *agg.Threshold
	}
	b.metrics = append(b.metrics, MetricPlan{
		Alias:        agg.Alias,
		Kind:         agg.Kind,
		SourceColumn: sourceCol,
		TargetColumn: targetCol,
		Threshold:    threshold,
	})
	return nil
}

func parseCastKind(cast string) (relalg.ColumnKind, error) {
	switch cast {
	case "string":
		return relalg.KindString, nil
	case "int64":
		return relalg.KindInt64, nil
	case "float64":
		return relalg.KindFloat64, nil
	case "bool":
		return relalg.KindBool, nil
	case "binary":
		return relalg.KindBinary, nil
	case "date":
		return relalg.KindDate, nil
	case "timestamp":
		return relalg.KindTimestamp, nil
	default:
		return relalg.KindUnknown, fmt.Errorf("builder: unknown cast type %q", cast)
	}
}

// GetSourceQuery returns the source-side expression.
func (b *Builder) GetSourceQuery() *relalg.Expression { return b.sourceExpr }

// GetTargetQuery returns the target-side expression.
func (b *Builder) GetTargetQuery() *relalg.Expression { return b.targetExpr }

// GetMetadata returns the accumulated metric plan.
func (b *Builder) GetMetadata() []MetricPlan {
	return append([]MetricPlan(nil), b.metrics...)
}

// GetPrimaryKeys returns the configured primary-key alignment columns.
func (b *Builder) GetPrimaryKeys() []GroupedField {
	return append([]GroupedField(nil), b.primaryKeys...)
}

// GetGroupAliases returns the currently active group-by aliases, mirrored
// on both expressions.
func (b *Builder) GetGroupAliases() []string {
	aliases := make([]string, 0, len(b.activeGroups))
	for _, g := range b.activeGroups {
		aliases = append(aliases, g.Alias)
	}
	return aliases
}

// AddFilter mirrors one configured filter onto both expressions, resolving
// is_in values (decoded from YAML as []any) into relalg.Filter.Values.
func (b *Builder) AddFilter(f config.FilterConfig) error {
	sourceFilter := relalg.Filter{Kind: f.Kind, Column: f.SourceColumn, Value: f.SourceValue, Raw: f.SourceColumn}
	targetFilter := relalg.Filter{Kind: f.Kind, Column: f.TargetColumn, Value: f.TargetValue, Raw: f.TargetColumn}
	if f.Kind == consts.FilterTypeIsIn {
		sourceVals, err := toValueSlice(f.SourceValue)
		if err != nil {
			return errs.NewConfigError("filter on %q: %v", f.SourceColumn, err)
		}
		targetVals, err := toValueSlice(f.TargetValue)
		if err != nil {
			return errs.NewConfigError("filter on %q: %v", f.TargetColumn, err)
		}
		sourceFilter.Values, targetFilter.Values = sourceVals, targetVals
	}
	b.sourceExpr.AddFilter(sourceFilter)
	b.targetExpr.AddFilter(targetFilter)
	return nil
}

func toValueSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	vals, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("is_in filter value must be a list, got %T", v)
	}
	return vals, nil
}

// AddQueryGroup adds one group-by dimension, projecting it on both sides
// if not already present, and re-syncs the active group-by list on both
// expressions.
func (b *Builder) AddQueryGroup(g GroupedField) error {
	b.project(b.sourceExpr, b.sourceProjected, g.Alias, g.SourceColumn, false, relalg.KindUnknown)
	b.project(b.targetExpr, b.targetProjected, g.Alias, g.TargetColumn, false, relalg.KindUnknown)
	b.activeGroups = append(b.activeGroups, g)
	b.syncGroupBy()
	return nil
}

func (b *Builder) syncGroupBy() {
	aliases := b.GetGroupAliases()
	b.sourceExpr.GroupBy(aliases)
	b.targetExpr.GroupBy(aliases)
}

// PopGroupedFields removes and returns the currently registered group-bys,
// clearing them from both expressions. The Recursive Row Validator re-adds
// them one at a time (§4.F).
func (b *Builder) PopGroupedFields() []GroupedField {
	popped := b.activeGroups
	b.activeGroups = nil
	b.syncGroupBy()
	return popped
}

// GroupedAliasSourceColumn / GroupedAliasTargetColumn resolve a primary-key
// alias or a currently active grouped alias back to its physical column, for
// filter binding when the Recursive Row Validator descends (§4.F). Aliases
// removed by PopGroupedFields and not re-added are not found.
func (b *Builder) GroupedAliasSourceColumn(alias string) (string, bool) {
	for _, g := range b.primaryKeys {
		if g.Alias == alias {
			return g.SourceColumn, true
		}
	}
	for _, g := range b.activeGroups {
		if g.Alias == alias {
			return g.SourceColumn, true
		}
	}
	return "", false
}

func (b *Builder) GroupedAliasTargetColumn(alias string) (string, bool) {
	for _, g := range b.primaryKeys {
		if g.Alias == alias {
			return g.TargetColumn, true
		}
	}
	for _, g := range b.activeGroups {
		if g.Alias == alias {
			return g.TargetColumn, true
		}
	}
	return "", false
}

// Clone returns a deep copy whose expressions, filters, and group-by state
// can diverge independently from the parent — recursion's branch isolation
// (§4.B "clone()", §8 "clone isolation").
func (b *Builder) Clone() *Builder {
	c := &Builder{
		cfg:             b.cfg,
		sourceExpr:      b.sourceExpr.Clone(),
		targetExpr:      b.targetExpr.Clone(),
		primaryKeys:     append([]GroupedField(nil), b.primaryKeys...),
		activeGroups:    append([]GroupedField(nil), b.activeGroups...),
		metrics:         append([]MetricPlan(nil), b.metrics...),
		sourceProjected: make(map[string]bool, len(b.sourceProjected)),
		targetProjected: make(map[string]bool, len(b.targetProjected)),
	}
	for k, v := range b.sourceProjected {
		c.sourceProjected[k] = v
	}
	for k, v := range b.targetProjected {
		c.targetProjected[k] = v
	}
	return c
}
