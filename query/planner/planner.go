// Package planner decides whether a query gets a gap-filling time series.
package planner

import (
	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/qerr"
)

// BucketPlan describes the synthetic series joined in front of a query's
// physical source so that buckets without rows still appear in results.
type BucketPlan struct {
	// Unit is the bucket width.
	Unit ast.TemporalUnit

	// Column is the resolved datetime dimension the series stands in for.
	Column catalog.Column

	// Lower and Upper are the consumed range filters; their values become
	// the series bounds.
	Lower ast.Filter
	Upper ast.Filter

	// ConsumedIdx are the positions of Lower and Upper in the query's
	// filter list. The compiler skips them when emitting predicates so
	// the range is applied once, by the series.
	ConsumedIdx [2]int
}

// Consumed reports whether the filter at index i was folded into the
// series bounds.
func (p *BucketPlan) Consumed(i int) bool {
	return p != nil && (i == p.ConsumedIdx[0] || i == p.ConsumedIdx[1])
}

// Plan derives the bucket plan for a query, or nil when the query does not
// bucket. Exactly one datetime group-by, bounded on both sides by datetime
// range filters on the same column, produces a plan. Zero datetime
// group-bys produce none. A half-bounded range also produces none: the
// query then compiles as a plain DATE_TRUNC grouping with no synthetic
// series.
func Plan(t *catalog.Table, filters []ast.Filter, groupBy []ast.GroupBy) (*BucketPlan, error) {
	var dim *ast.GroupBy
	for i := range groupBy {
		if groupBy[i].Kind != ast.GroupDatetime {
			continue
		}
		if dim != nil {
			return nil, qerr.NewMultipleDatetimeGroupByError(t.Name)
		}
		dim = &groupBy[i]
	}
	if dim == nil {
		return nil, nil
	}

	col, ok := t.Column(dim.Column)
	if !ok {
		return nil, qerr.NewUnknownColumnError(t.Name, dim.Column)
	}
	if col.Kind != ast.KindDatetime {
		return nil, qerr.NewKindMismatchError(t.Name, dim.Column, "datetime group-by requires a datetime column")
	}

	// First lower and first upper bound in filter order win; any further
	// range filters stay ordinary predicates.
	lower, upper := -1, -1
	for i, f := range filters {
		if f.Kind != ast.KindDatetime {
			continue
		}
		if lower < 0 && f.Operator.LowerBound() {
			lower = i
		}
		if upper < 0 && f.Operator.UpperBound() {
			upper = i
		}
	}
	if lower < 0 || upper < 0 {
		return nil, nil
	}
	if filters[lower].Column != dim.Column {
		return nil, qerr.NewMismatchedRangeColumnError(dim.Column, filters[lower].Column)
	}
	if filters[upper].Column != dim.Column {
		return nil, qerr.NewMismatchedRangeColumnError(dim.Column, filters[upper].Column)
	}

	return &BucketPlan{
		Unit:        dim.TemporalUnit,
		Column:      col,
		Lower:       filters[lower],
		Upper:       filters[upper],
		ConsumedIdx: [2]int{lower, upper},
	}, nil
}
