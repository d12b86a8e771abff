package compiler_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/compiler"
	"github.com/satishbabariya/quarry/query/qerr"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

const workspace = "ws_42"

var (
	rangeStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()

	reg, err := catalog.NewRegistry(
		catalog.Table{
			Name:       "payments",
			Source:     "payments",
			TenantKeys: []sqlgen.Fragment{"workspace_id"},
			Columns: []catalog.Column{
				{Name: "id", Kind: ast.KindString, Expr: "id"},
				{Name: "amount", Kind: ast.KindNumber, Expr: "amount"},
				{Name: "fee", Kind: ast.KindNumber, Expr: "fee"},
				{Name: "net", Kind: ast.KindNumber, Expr: "amount - fee"},
				{Name: "status", Kind: ast.KindString, Expr: "status", Cast: "text"},
				{Name: "country", Kind: ast.KindString, Expr: "billing_country"},
				{Name: "created_at", Kind: ast.KindDatetime, Expr: "created_at"},
				{Name: "settled_at", Kind: ast.KindDatetime, Expr: "settled_at"},
			},
		},
		catalog.Table{
			Name:       "customer_payments",
			Source:     "payments p JOIN customers c ON c.id = p.customer_id",
			TenantKeys: []sqlgen.Fragment{"p.workspace_id", "c.workspace_id"},
			Columns: []catalog.Column{
				{Name: "payment_id", Kind: ast.KindString, Expr: "p.id"},
				{Name: "plan", Kind: ast.KindString, Expr: "c.plan", Cast: "text"},
				{Name: "amount", Kind: ast.KindNumber, Expr: "p.amount"},
				{Name: "created_at", Kind: ast.KindDatetime, Expr: "p.created_at"},
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func i64(n int64) *int64 { return &n }

func TestCompile_Minimal(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{Table: "payments", Select: []ast.SelectField{{Column: "amount"}}}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.Equal(t, "SELECT amount FROM payments WHERE workspace_id = $1", stmt.SQL)
	assert.Equal(t, []any{workspace}, stmt.Args, "the tenant id should be the only argument")
}

func TestCompile_Statements(t *testing.T) {
	tests := []struct {
		name     string
		query    *ast.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "expression column gets an alias",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "net"}},
			},
			wantSQL:  `SELECT amount - fee AS "net" FROM payments WHERE workspace_id = $1`,
			wantArgs: []any{workspace},
		},
		{
			name: "renamed column gets an alias",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "country"}},
			},
			wantSQL:  `SELECT billing_country AS "country" FROM payments WHERE workspace_id = $1`,
			wantArgs: []any{workspace},
		},
		{
			name: "aggregated select",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}, {Column: "id", Aggregation: ast.Count}},
			},
			wantSQL:  `SELECT SUM(amount) AS "sumAmount", COUNT(id) AS "countId" FROM payments WHERE workspace_id = $1`,
			wantArgs: []any{workspace},
		},
		{
			name: "cast applies to comparisons only",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "status"}},
				Filters: []ast.Filter{
					{Column: "status", Operator: ast.Equals, Kind: ast.KindString, Value: "succeeded"},
				},
			},
			wantSQL:  `SELECT status FROM payments WHERE status::text = $1 AND workspace_id = $2`,
			wantArgs: []any{"succeeded", workspace},
		},
		{
			name: "in expands to a placeholder list",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{
					{Column: "country", Operator: ast.In, Kind: ast.KindString, Values: []any{"US", "DE"}},
				},
			},
			wantSQL:  `SELECT amount FROM payments WHERE billing_country IN ($1, $2) AND workspace_id = $3`,
			wantArgs: []any{"US", "DE", workspace},
		},
		{
			name: "number comparison",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{
					{Column: "amount", Operator: ast.Gt, Kind: ast.KindNumber, Value: float64(100)},
				},
			},
			wantSQL:  `SELECT amount FROM payments WHERE amount > $1 AND workspace_id = $2`,
			wantArgs: []any{float64(100), workspace},
		},
		{
			name: "categorical grouping",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
				GroupBy: []ast.GroupBy{{Column: "country", Kind: ast.GroupCategorical}},
			},
			wantSQL:  `SELECT SUM(amount) AS "sumAmount" FROM payments WHERE workspace_id = $1 GROUP BY billing_country`,
			wantArgs: []any{workspace},
		},
		{
			name: "order by aggregate with limit",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
				GroupBy: []ast.GroupBy{{Column: "country", Kind: ast.GroupCategorical}},
				OrderBy: []ast.OrderBy{{Column: "amount", Aggregation: ast.Sum, Direction: ast.Desc}},
				Limit:   i64(5),
			},
			wantSQL:  `SELECT SUM(amount) AS "sumAmount" FROM payments WHERE workspace_id = $1 GROUP BY billing_country ORDER BY SUM(amount) DESC LIMIT $2`,
			wantArgs: []any{workspace, int64(5)},
		},
		{
			name: "limit zero is a real limit",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				Limit:  i64(0),
			},
			wantSQL:  `SELECT amount FROM payments WHERE workspace_id = $1 LIMIT $2`,
			wantArgs: []any{workspace, int64(0)},
		},
		{
			name: "plain order by",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				OrderBy: []ast.OrderBy{{Column: "created_at", Direction: ast.Asc}},
			},
			wantSQL:  `SELECT amount FROM payments WHERE workspace_id = $1 ORDER BY created_at ASC`,
			wantArgs: []any{workspace},
		},
		{
			name: "datetime grouping without a bounded range",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
				Filters: []ast.Filter{
					{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
				},
				GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
			},
			wantSQL:  `SELECT SUM(amount) AS "sumAmount" FROM payments WHERE created_at >= $1 AND workspace_id = $2 GROUP BY DATE_TRUNC('day', created_at)`,
			wantArgs: []any{rangeStart, workspace},
		},
		{
			name: "datetime equality filter",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{
					{Column: "settled_at", Operator: ast.Equals, Kind: ast.KindDatetime, Value: rangeStart},
				},
			},
			wantSQL:  `SELECT amount FROM payments WHERE settled_at = $1 AND workspace_id = $2`,
			wantArgs: []any{rangeStart, workspace},
		},
	}

	reg := testRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compiler.Compile(reg, workspace, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	query := func() *ast.Query {
		return &ast.Query{
			Table:  "payments",
			Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
			Filters: []ast.Filter{
				{Column: "status", Operator: ast.Equals, Kind: ast.KindString, Value: "succeeded"},
				{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
				{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
			},
			GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
			Limit:   i64(100),
		}
	}

	first, err := compiler.Compile(reg, workspace, query())
	require.NoError(t, err)
	second, err := compiler.Compile(reg, workspace, query())
	require.NoError(t, err)

	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, first.Args, second.Args)
}

func TestCompile_JoinedViewTenants(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{Table: "customer_payments", Select: []ast.SelectField{{Column: "amount"}}}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT p.amount AS "amount" FROM payments p JOIN customers c ON c.id = p.customer_id WHERE p.workspace_id = $1 AND c.workspace_id = $2`,
		stmt.SQL)
	assert.Equal(t, []any{workspace, workspace}, stmt.Args, "each entity gets the same workspace id")
	assert.Equal(t, 2, strings.Count(stmt.SQL, "workspace_id = $"), "exactly one tenant predicate per entity")
}

func TestCompile_TenantAppearsExactlyOnce(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "payments",
		Select: []ast.SelectField{{Column: "amount"}},
		Filters: []ast.Filter{
			{Column: "status", Operator: ast.Equals, Kind: ast.KindString, Value: "succeeded"},
		},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stmt.SQL, "workspace_id = $"))
}

func TestCompile_BucketedSeries(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "payments",
		Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
		Filters: []ast.Filter{
			{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
			{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
		},
		GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.Equal(t,
		`WITH series AS (SELECT generate_series(DATE_TRUNC('day', $1::timestamptz), DATE_TRUNC('day', $2::timestamptz), interval '1 day') AS bucket) `+
			`SELECT series.bucket, SUM(amount) AS "sumAmount" `+
			`FROM series LEFT JOIN payments ON DATE_TRUNC('day', series.bucket) = DATE_TRUNC('day', created_at) `+
			`AND workspace_id = $3 GROUP BY series.bucket ORDER BY series.bucket ASC`,
		stmt.SQL)
	assert.Equal(t, []any{rangeStart, rangeEnd, workspace}, stmt.Args, "series bounds bind before the tenant id")
}

func TestCompile_BucketedKeepsOtherFilters(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "payments",
		Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
		Filters: []ast.Filter{
			{Column: "status", Operator: ast.Equals, Kind: ast.KindString, Value: "succeeded"},
			{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
			{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
		},
		GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.NotContains(t, stmt.SQL, "WHERE", "predicates must extend the join or empty buckets disappear")
	assert.Contains(t, stmt.SQL, "AND status::text = $3 AND workspace_id = $4")
	assert.Equal(t, []any{rangeStart, rangeEnd, "succeeded", workspace}, stmt.Args)
	assert.Equal(t, 0, strings.Count(stmt.SQL, "created_at >= ")+strings.Count(stmt.SQL, "created_at < "),
		"consumed bounds must not also appear as predicates")
}

func TestCompile_BucketedRangeAppliedOnce(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "payments",
		Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
		Filters: []ast.Filter{
			{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
			{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
		},
		GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.NotContains(t, stmt.SQL, ">=")
	assert.NotContains(t, stmt.SQL, "< $")
	assert.Len(t, stmt.Args, 3)
}

func TestCompile_BucketedJoinedView(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "customer_payments",
		Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
		Filters: []ast.Filter{
			{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
			{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
		},
		GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitMonth}},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.Equal(t,
		`WITH series AS (SELECT generate_series(DATE_TRUNC('month', $1::timestamptz), DATE_TRUNC('month', $2::timestamptz), interval '1 month') AS bucket) `+
			`SELECT series.bucket, SUM(p.amount) AS "sumAmount" `+
			`FROM series LEFT JOIN (payments p JOIN customers c ON c.id = p.customer_id) ON DATE_TRUNC('month', series.bucket) = DATE_TRUNC('month', p.created_at) `+
			`AND p.workspace_id = $3 AND c.workspace_id = $4 GROUP BY series.bucket ORDER BY series.bucket ASC`,
		stmt.SQL)
	assert.Equal(t, []any{rangeStart, rangeEnd, workspace, workspace}, stmt.Args)
}

func TestCompile_BucketThenCategoricalGrouping(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{
		Table:  "payments",
		Select: []ast.SelectField{{Column: "amount", Aggregation: ast.Sum}},
		Filters: []ast.Filter{
			{Column: "created_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
			{Column: "created_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
		},
		GroupBy: []ast.GroupBy{
			{Column: "country", Kind: ast.GroupCategorical},
			{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay},
		},
	}

	stmt, err := compiler.Compile(reg, workspace, q)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "GROUP BY series.bucket, billing_country",
		"the bucket leads the grouping regardless of request order")
	assert.Contains(t, stmt.SQL, "ORDER BY series.bucket ASC")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    *ast.Query
		sentinel error
	}{
		{
			name:     "unknown table",
			query:    &ast.Query{Table: "invoices", Select: []ast.SelectField{{Column: "amount"}}},
			sentinel: qerr.ErrUnknownTable,
		},
		{
			name:     "unknown select column",
			query:    &ast.Query{Table: "payments", Select: []ast.SelectField{{Column: "amoutn"}}},
			sentinel: qerr.ErrUnknownColumn,
		},
		{
			name: "unknown filter column",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{{Column: "nope", Operator: ast.Equals, Kind: ast.KindString, Value: "x"}},
			},
			sentinel: qerr.ErrUnknownColumn,
		},
		{
			name: "unknown group by column",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				GroupBy: []ast.GroupBy{{Column: "nope", Kind: ast.GroupCategorical}},
			},
			sentinel: qerr.ErrUnknownColumn,
		},
		{
			name: "unknown order by column",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				OrderBy: []ast.OrderBy{{Column: "nope"}},
			},
			sentinel: qerr.ErrUnknownColumn,
		},
		{
			name:     "sum over a string column",
			query:    &ast.Query{Table: "payments", Select: []ast.SelectField{{Column: "status", Aggregation: ast.Sum}}},
			sentinel: qerr.ErrKindMismatch,
		},
		{
			name: "order by avg over a string column",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				OrderBy: []ast.OrderBy{{Column: "status", Aggregation: ast.Avg}},
			},
			sentinel: qerr.ErrKindMismatch,
		},
		{
			name: "filter kind does not match column kind",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{{Column: "status", Operator: ast.Equals, Kind: ast.KindNumber, Value: float64(1)}},
			},
			sentinel: qerr.ErrKindMismatch,
		},
		{
			name: "datetime group by over a string column",
			query: &ast.Query{
				Table:   "payments",
				Select:  []ast.SelectField{{Column: "amount"}},
				GroupBy: []ast.GroupBy{{Column: "status", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
			},
			sentinel: qerr.ErrKindMismatch,
		},
		{
			name: "multiple datetime group bys",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				GroupBy: []ast.GroupBy{
					{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay},
					{Column: "settled_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay},
				},
			},
			sentinel: qerr.ErrMultipleDatetimeGroupBy,
		},
		{
			name: "range bounds on a different column",
			query: &ast.Query{
				Table:  "payments",
				Select: []ast.SelectField{{Column: "amount"}},
				Filters: []ast.Filter{
					{Column: "settled_at", Operator: ast.Gte, Kind: ast.KindDatetime, Value: rangeStart},
					{Column: "settled_at", Operator: ast.Lt, Kind: ast.KindDatetime, Value: rangeEnd},
				},
				GroupBy: []ast.GroupBy{{Column: "created_at", Kind: ast.GroupDatetime, TemporalUnit: ast.UnitDay}},
			},
			sentinel: qerr.ErrMismatchedRangeColumn,
		},
	}

	reg := testRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compiler.Compile(reg, workspace, tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Nil(t, stmt, "no statement may exist when resolution fails")
			assert.True(t, qerr.IsClientError(err))
		})
	}
}

func TestCompile_UnknownColumnCarriesContext(t *testing.T) {
	reg := testRegistry(t)
	q := &ast.Query{Table: "payments", Select: []ast.SelectField{{Column: "amoutn"}}}

	_, err := compiler.Compile(reg, workspace, q)
	require.Error(t, err)

	var qe *qerr.Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "payments", qe.Table)
	assert.Equal(t, "amoutn", qe.Column)
}
