// Package ast defines the query description model accepted by the compiler.
package ast

// Query is a validated query description. Build one with Parse or
// Request.Validate; construct literals only in tests.
type Query struct {
	Table   string
	Select  []SelectField
	Filters []Filter
	GroupBy []GroupBy
	OrderBy []OrderBy
	Limit   *int64
}

// SelectField selects a column, optionally aggregated.
type SelectField struct {
	Column      string
	Aggregation Aggregation // empty for a plain column
}

// Filter constrains rows with a single comparison. After validation Value
// holds a string, float64 or time.Time according to Kind; the in operator
// uses Values instead.
type Filter struct {
	Column   string
	Operator Operator
	Kind     ValueKind
	Value    any
	Values   []any
}

// GroupBy adds a grouping dimension. TemporalUnit is set only for
// datetime dimensions.
type GroupBy struct {
	Column       string
	Kind         GroupKind
	TemporalUnit TemporalUnit
}

// OrderBy defines sorting. An aggregated term sorts by the aggregate of
// the column, mirroring how the same pair would be selected.
type OrderBy struct {
	Column      string
	Aggregation Aggregation
	Direction   SortDirection
}

// Aggregation represents aggregation functions.
type Aggregation string

const (
	// Count counts rows with a non-null column value.
	Count Aggregation = "count"
	// Sum sums column values.
	Sum Aggregation = "sum"
	// Avg calculates average.
	Avg Aggregation = "avg"
	// Min finds minimum value.
	Min Aggregation = "min"
	// Max finds maximum value.
	Max Aggregation = "max"
)

// Valid reports whether the aggregation is in the allow-list.
func (a Aggregation) Valid() bool {
	switch a {
	case Count, Sum, Avg, Min, Max:
		return true
	}
	return false
}

// RequiresNumber reports whether the aggregation is defined only over
// number columns.
func (a Aggregation) RequiresNumber() bool {
	return a == Sum || a == Avg
}

// Operator represents comparison operators.
type Operator string

const (
	// Equals checks equality.
	Equals Operator = "equals"
	// Not checks inequality.
	Not Operator = "not"
	// Gt checks if value is greater than.
	Gt Operator = "gt"
	// Gte checks if value is greater than or equal.
	Gte Operator = "gte"
	// Lt checks if value is less than.
	Lt Operator = "lt"
	// Lte checks if value is less than or equal.
	Lte Operator = "lte"
	// In checks if value is in list.
	In Operator = "in"
)

// Valid reports whether the operator is in the allow-list.
func (o Operator) Valid() bool {
	switch o {
	case Equals, Not, Gt, Gte, Lt, Lte, In:
		return true
	}
	return false
}

// AllowedFor reports whether the operator applies to values of kind k.
func (o Operator) AllowedFor(k ValueKind) bool {
	switch k {
	case KindString:
		return o == Equals || o == Not || o == In
	case KindNumber:
		return o != In
	case KindDatetime:
		return o == Equals || o == Gt || o == Gte || o == Lt || o == Lte
	}
	return false
}

// LowerBound reports whether the operator opens a range from below.
func (o Operator) LowerBound() bool {
	return o == Gt || o == Gte
}

// UpperBound reports whether the operator closes a range from above.
func (o Operator) UpperBound() bool {
	return o == Lt || o == Lte
}

// ValueKind classifies column and literal values. Catalog columns and
// filter literals share the same kinds.
type ValueKind string

const (
	// KindString is a text value.
	KindString ValueKind = "string"
	// KindNumber is a numeric value.
	KindNumber ValueKind = "number"
	// KindDatetime is a point-in-time value.
	KindDatetime ValueKind = "datetime"
)

// Valid reports whether the kind is known.
func (k ValueKind) Valid() bool {
	switch k {
	case KindString, KindNumber, KindDatetime:
		return true
	}
	return false
}

// GroupKind classifies grouping dimensions.
type GroupKind string

const (
	// GroupCategorical groups by distinct column values.
	GroupCategorical GroupKind = "categorical"
	// GroupDatetime groups by time bucket.
	GroupDatetime GroupKind = "datetime"
)

// Valid reports whether the group kind is known.
func (k GroupKind) Valid() bool {
	return k == GroupCategorical || k == GroupDatetime
}

// TemporalUnit is the bucket width of a datetime dimension.
type TemporalUnit string

const (
	// UnitHour buckets by hour.
	UnitHour TemporalUnit = "hour"
	// UnitDay buckets by day.
	UnitDay TemporalUnit = "day"
	// UnitWeek buckets by week.
	UnitWeek TemporalUnit = "week"
	// UnitMonth buckets by month.
	UnitMonth TemporalUnit = "month"
	// UnitYear buckets by year.
	UnitYear TemporalUnit = "year"
)

// Valid reports whether the unit is in the allow-list.
func (u TemporalUnit) Valid() bool {
	switch u {
	case UnitHour, UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// SortDirection represents sort direction.
type SortDirection string

const (
	// Asc sorts ascending.
	Asc SortDirection = "asc"
	// Desc sorts descending.
	Desc SortDirection = "desc"
)
