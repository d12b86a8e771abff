// Package compiler turns validated query descriptions into single
// parameterized PostgreSQL statements.
//
// Compilation is deterministic: identical inputs produce byte-identical
// SQL and identical argument order. Identifier text comes only from the
// catalog; every caller-supplied literal is bound. Arguments are bound in
// emitted-text order, so placeholder numbers always read left to right.
package compiler

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/planner"
	"github.com/satishbabariya/quarry/query/qerr"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

// Series identifiers. Catalog column expressions must not be named
// "bucket", or references inside the join condition would turn ambiguous.
const (
	seriesName   = "series"
	seriesColumn = "bucket"
)

// selectTerm is a catalog-resolved select entry.
type selectTerm struct {
	col catalog.Column
	agg ast.Aggregation
}

// predicate is one resolved comparison. Tenant predicates and user filters
// share this shape and the same emission path.
type predicate struct {
	expr   sqlgen.Fragment
	op     ast.Operator
	value  any
	values []any
}

// groupTerm is a catalog-resolved group-by entry.
type groupTerm struct {
	dim ast.GroupBy
	col catalog.Column
}

// orderTerm is a catalog-resolved order-by entry.
type orderTerm struct {
	col catalog.Column
	agg ast.Aggregation
	dir ast.SortDirection
}

// Compile compiles a validated query for one workspace into a statement.
// Every referenced column is resolved against the catalog before any SQL
// text is assembled; the table's tenant predicates are appended after the
// user filters, one per underlying entity.
func Compile(reg *catalog.Registry, workspaceID string, q *ast.Query) (*sqlgen.Statement, error) {
	t, ok := reg.Table(q.Table)
	if !ok {
		return nil, qerr.NewUnknownTableError(q.Table)
	}

	sel, err := resolveSelect(t, q.Select)
	if err != nil {
		return nil, err
	}
	preds, err := resolveFilters(t, q.Filters)
	if err != nil {
		return nil, err
	}
	groups, err := resolveGroupBy(t, q.GroupBy)
	if err != nil {
		return nil, err
	}
	orders, err := resolveOrderBy(t, q.OrderBy)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(t, q.Filters, q.GroupBy)
	if err != nil {
		return nil, err
	}

	// Range bounds consumed by the series are dropped here so they are
	// applied exactly once. Tenant scoping goes last.
	kept := make([]predicate, 0, len(preds)+len(t.TenantKeys))
	for i, p := range preds {
		if plan.Consumed(i) {
			continue
		}
		kept = append(kept, p)
	}
	for _, key := range t.TenantKeys {
		kept = append(kept, predicate{expr: key, op: ast.Equals, value: workspaceID})
	}

	var b sqlgen.Builder
	if plan != nil {
		emitSeries(&b, plan)
	}
	emitSelect(&b, sel, plan != nil)
	emitFrom(&b, t, plan)
	emitPredicates(&b, kept, plan != nil)
	emitGroupBy(&b, groups, plan != nil)
	emitOrderBy(&b, orders, plan != nil)
	emitLimit(&b, q.Limit)

	return b.Statement(), nil
}

func resolveSelect(t *catalog.Table, fields []ast.SelectField) ([]selectTerm, error) {
	out := make([]selectTerm, 0, len(fields))
	for _, f := range fields {
		col, ok := t.Column(f.Column)
		if !ok {
			return nil, qerr.NewUnknownColumnError(t.Name, f.Column)
		}
		if f.Aggregation.RequiresNumber() && col.Kind != ast.KindNumber {
			return nil, qerr.NewKindMismatchError(t.Name, f.Column, fmt.Sprintf("%s requires a number column", f.Aggregation))
		}
		out = append(out, selectTerm{col: col, agg: f.Aggregation})
	}
	return out, nil
}

func resolveFilters(t *catalog.Table, filters []ast.Filter) ([]predicate, error) {
	out := make([]predicate, 0, len(filters))
	for _, f := range filters {
		col, ok := t.Column(f.Column)
		if !ok {
			return nil, qerr.NewUnknownColumnError(t.Name, f.Column)
		}
		if col.Kind != f.Kind {
			return nil, qerr.NewKindMismatchError(t.Name, f.Column, fmt.Sprintf("filter kind %s does not match column kind %s", f.Kind, col.Kind))
		}
		out = append(out, predicate{expr: comparisonExpr(col), op: f.Operator, value: f.Value, values: f.Values})
	}
	return out, nil
}

func resolveGroupBy(t *catalog.Table, groupBy []ast.GroupBy) ([]groupTerm, error) {
	out := make([]groupTerm, 0, len(groupBy))
	for _, g := range groupBy {
		col, ok := t.Column(g.Column)
		if !ok {
			return nil, qerr.NewUnknownColumnError(t.Name, g.Column)
		}
		if g.Kind == ast.GroupDatetime && col.Kind != ast.KindDatetime {
			return nil, qerr.NewKindMismatchError(t.Name, g.Column, "datetime group-by requires a datetime column")
		}
		out = append(out, groupTerm{dim: g, col: col})
	}
	return out, nil
}

func resolveOrderBy(t *catalog.Table, orderBy []ast.OrderBy) ([]orderTerm, error) {
	out := make([]orderTerm, 0, len(orderBy))
	for _, o := range orderBy {
		col, ok := t.Column(o.Column)
		if !ok {
			return nil, qerr.NewUnknownColumnError(t.Name, o.Column)
		}
		if o.Aggregation.RequiresNumber() && col.Kind != ast.KindNumber {
			return nil, qerr.NewKindMismatchError(t.Name, o.Column, fmt.Sprintf("%s requires a number column", o.Aggregation))
		}
		out = append(out, orderTerm{col: col, agg: o.Aggregation, dir: o.Direction})
	}
	return out, nil
}

// comparisonExpr returns the column expression as used in comparisons,
// with the registry-declared cast applied.
func comparisonExpr(col catalog.Column) sqlgen.Fragment {
	if col.Cast != "" {
		return col.Expr + sqlgen.Fragment("::"+col.Cast)
	}
	return col.Expr
}

// emitSeries writes the generated-series CTE. Bounds are truncated to the
// unit so buckets align to unit boundaries; the step advances one unit at
// a time.
func emitSeries(b *sqlgen.Builder, plan *planner.BucketPlan) {
	trunc := sqlgen.TruncSQL(plan.Unit)
	b.WriteString("WITH " + seriesName + " AS (SELECT generate_series(DATE_TRUNC('" + trunc + "', ")
	b.WriteString(b.Bind(plan.Lower.Value) + "::timestamptz), DATE_TRUNC('" + trunc + "', ")
	b.WriteString(b.Bind(plan.Upper.Value) + "::timestamptz), " + sqlgen.StepSQL(plan.Unit) + ") AS " + seriesColumn + ") ")
}

func emitSelect(b *sqlgen.Builder, sel []selectTerm, bucketed bool) {
	b.WriteString("SELECT ")
	if bucketed {
		b.WriteString(seriesName + "." + seriesColumn)
		if len(sel) > 0 {
			b.WriteString(", ")
		}
	}
	for i, s := range sel {
		if i > 0 {
			b.WriteString(", ")
		}
		if s.agg != "" {
			b.WriteString(sqlgen.AggregateSQL(s.agg) + "(")
			b.WriteFragment(s.col.Expr)
			b.WriteString(") AS " + sqlgen.QuoteAlias(sqlgen.Alias(s.agg, s.col.Name)))
			continue
		}
		b.WriteFragment(s.col.Expr)
		if string(s.col.Expr) != s.col.Name {
			b.WriteString(" AS " + sqlgen.QuoteAlias(s.col.Name))
		}
	}
}

func emitFrom(b *sqlgen.Builder, t *catalog.Table, plan *planner.BucketPlan) {
	if plan == nil {
		b.WriteString(" FROM ")
		b.WriteFragment(t.Source)
		return
	}
	b.WriteString(" FROM " + seriesName + " LEFT JOIN ")
	if t.Joined() {
		b.WriteString("(")
		b.WriteFragment(t.Source)
		b.WriteString(")")
	} else {
		b.WriteFragment(t.Source)
	}
	trunc := sqlgen.TruncSQL(plan.Unit)
	b.WriteString(" ON DATE_TRUNC('" + trunc + "', " + seriesName + "." + seriesColumn + ") = DATE_TRUNC('" + trunc + "', ")
	b.WriteFragment(plan.Column.Expr)
	b.WriteString(")")
}

// emitPredicates writes the kept comparisons. Without a series they open a
// WHERE clause; with one they extend the join condition, because a WHERE
// predicate on the joined table would drop the empty buckets the series
// exists to produce.
func emitPredicates(b *sqlgen.Builder, preds []predicate, bucketed bool) {
	for i, p := range preds {
		if i == 0 && !bucketed {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		emitComparison(b, p)
	}
}

func emitComparison(b *sqlgen.Builder, p predicate) {
	b.WriteFragment(p.expr)
	if p.op == ast.In {
		placeholders := make([]string, len(p.values))
		for i, v := range p.values {
			placeholders[i] = b.Bind(v)
		}
		b.WriteString(" IN (" + strings.Join(placeholders, ", ") + ")")
		return
	}
	b.WriteString(" " + sqlgen.OperatorSQL(p.op) + " " + b.Bind(p.value))
}

func emitGroupBy(b *sqlgen.Builder, groups []groupTerm, bucketed bool) {
	var terms []string
	if bucketed {
		terms = append(terms, seriesName+"."+seriesColumn)
	}
	for _, g := range groups {
		if g.dim.Kind == ast.GroupDatetime {
			if bucketed {
				// The series column stands in for the datetime dimension.
				continue
			}
			terms = append(terms, "DATE_TRUNC('"+sqlgen.TruncSQL(g.dim.TemporalUnit)+"', "+string(g.col.Expr)+")")
			continue
		}
		terms = append(terms, string(g.col.Expr))
	}
	if len(terms) == 0 {
		return
	}
	b.WriteString(" GROUP BY " + strings.Join(terms, ", "))
}

func emitOrderBy(b *sqlgen.Builder, orders []orderTerm, bucketed bool) {
	var terms []string
	if bucketed {
		terms = append(terms, seriesName+"."+seriesColumn+" ASC")
	}
	for _, o := range orders {
		expr := string(o.col.Expr)
		if o.agg != "" {
			expr = sqlgen.AggregateSQL(o.agg) + "(" + expr + ")"
		}
		terms = append(terms, expr+" "+sqlgen.DirectionSQL(o.dir))
	}
	if len(terms) == 0 {
		return
	}
	b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
}

func emitLimit(b *sqlgen.Builder, limit *int64) {
	if limit == nil {
		return
	}
	b.WriteString(" LIMIT " + b.Bind(*limit))
}
