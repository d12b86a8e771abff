package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satishbabariya/quarry/query/qerr"
)

// Request is the wire shape of a query description. Decode a payload into
// it (or use Parse) and call Validate to obtain a typed Query.
type Request struct {
	Table   string           `json:"table"`
	Select  []SelectRequest  `json:"select"`
	Filters []FilterRequest  `json:"filters,omitempty"`
	GroupBy []GroupByRequest `json:"groupBy,omitempty"`
	OrderBy []OrderByRequest `json:"orderBy,omitempty"`
	Limit   *json.Number     `json:"limit,omitempty"`
}

// SelectRequest is one select entry on the wire.
type SelectRequest struct {
	Column      string `json:"column"`
	Aggregation string `json:"aggregation,omitempty"`
}

// FilterRequest is one filter entry on the wire. Value carries a scalar
// for single-value operators and a list for in.
type FilterRequest struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Kind     string `json:"kind"`
	Value    any    `json:"value"`
}

// GroupByRequest is one group-by entry on the wire.
type GroupByRequest struct {
	Column       string `json:"column"`
	Kind         string `json:"kind"`
	TemporalUnit string `json:"temporalUnit,omitempty"`
}

// OrderByRequest is one order-by entry on the wire.
type OrderByRequest struct {
	Column      string `json:"column"`
	Aggregation string `json:"aggregation,omitempty"`
	Direction   string `json:"direction,omitempty"`
}

// Parse decodes and validates a JSON query description. Unknown keys are
// rejected so that typos fail loudly instead of being ignored.
func Parse(data []byte) (*Query, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, qerr.NewValidationError("", fmt.Sprintf("malformed query JSON: %v", err))
	}
	return req.Validate()
}

// Validate checks the request shape against the fixed allow-lists and
// returns the typed query. The first violation wins and names the field.
// Column existence is not checked here; that happens against the catalog
// at compile time.
func (r *Request) Validate() (*Query, error) {
	if r.Table == "" {
		return nil, qerr.NewValidationError("table", "table name is required")
	}
	if len(r.Select) == 0 {
		return nil, qerr.NewValidationError("select", "at least one column is required")
	}

	q := &Query{Table: r.Table}

	for i, s := range r.Select {
		field := fmt.Sprintf("select[%d]", i)
		if s.Column == "" {
			return nil, qerr.NewValidationError(field+".column", "column name is required")
		}
		agg := Aggregation(s.Aggregation)
		if s.Aggregation != "" && !agg.Valid() {
			return nil, qerr.NewValidationError(field+".aggregation", fmt.Sprintf("unknown aggregation %q", s.Aggregation))
		}
		q.Select = append(q.Select, SelectField{Column: s.Column, Aggregation: agg})
	}

	for i, f := range r.Filters {
		field := fmt.Sprintf("filters[%d]", i)
		filter, err := f.validate(field)
		if err != nil {
			return nil, err
		}
		q.Filters = append(q.Filters, filter)
	}

	for i, g := range r.GroupBy {
		field := fmt.Sprintf("groupBy[%d]", i)
		if g.Column == "" {
			return nil, qerr.NewValidationError(field+".column", "column name is required")
		}
		kind := GroupKind(g.Kind)
		if !kind.Valid() {
			return nil, qerr.NewValidationError(field+".kind", fmt.Sprintf("unknown group kind %q", g.Kind))
		}
		unit := TemporalUnit(g.TemporalUnit)
		if kind == GroupDatetime {
			if g.TemporalUnit == "" {
				return nil, qerr.NewValidationError(field+".temporalUnit", "temporalUnit is required for datetime group-bys")
			}
			if !unit.Valid() {
				return nil, qerr.NewValidationError(field+".temporalUnit", fmt.Sprintf("unknown temporal unit %q", g.TemporalUnit))
			}
		} else if g.TemporalUnit != "" {
			return nil, qerr.NewValidationError(field+".temporalUnit", "temporalUnit applies only to datetime group-bys")
		}
		q.GroupBy = append(q.GroupBy, GroupBy{Column: g.Column, Kind: kind, TemporalUnit: unit})
	}

	for i, o := range r.OrderBy {
		field := fmt.Sprintf("orderBy[%d]", i)
		if o.Column == "" {
			return nil, qerr.NewValidationError(field+".column", "column name is required")
		}
		agg := Aggregation(o.Aggregation)
		if o.Aggregation != "" && !agg.Valid() {
			return nil, qerr.NewValidationError(field+".aggregation", fmt.Sprintf("unknown aggregation %q", o.Aggregation))
		}
		dir := Asc
		if o.Direction != "" {
			dir = SortDirection(strings.ToLower(o.Direction))
			if dir != Asc && dir != Desc {
				return nil, qerr.NewValidationError(field+".direction", fmt.Sprintf("unknown sort direction %q", o.Direction))
			}
		}
		q.OrderBy = append(q.OrderBy, OrderBy{Column: o.Column, Aggregation: agg, Direction: dir})
	}

	if r.Limit != nil {
		n, err := r.Limit.Int64()
		if err != nil {
			return nil, qerr.NewValidationError("limit", "limit must be an integer")
		}
		if n < 0 {
			return nil, qerr.NewValidationError("limit", "limit must not be negative")
		}
		q.Limit = &n
	}

	return q, nil
}

func (f FilterRequest) validate(field string) (Filter, error) {
	if f.Column == "" {
		return Filter{}, qerr.NewValidationError(field+".column", "column name is required")
	}
	kind := ValueKind(f.Kind)
	if !kind.Valid() {
		return Filter{}, qerr.NewValidationError(field+".kind", fmt.Sprintf("unknown value kind %q", f.Kind))
	}
	op := Operator(f.Operator)
	if !op.Valid() {
		return Filter{}, qerr.NewValidationError(field+".operator", fmt.Sprintf("unknown operator %q", f.Operator))
	}
	if !op.AllowedFor(kind) {
		return Filter{}, qerr.NewValidationError(field+".operator", fmt.Sprintf("operator %q does not apply to %s values", f.Operator, kind))
	}

	filter := Filter{Column: f.Column, Operator: op, Kind: kind}
	if op == In {
		list, ok := f.Value.([]any)
		if !ok || len(list) == 0 {
			return Filter{}, qerr.NewValidationError(field+".value", "in requires a non-empty list of values")
		}
		for j, v := range list {
			typed, err := typedValue(fmt.Sprintf("%s.value[%d]", field, j), kind, v)
			if err != nil {
				return Filter{}, err
			}
			filter.Values = append(filter.Values, typed)
		}
		return filter, nil
	}

	typed, err := typedValue(field+".value", kind, f.Value)
	if err != nil {
		return Filter{}, err
	}
	filter.Value = typed
	return filter, nil
}

// datetimeLayouts are the accepted wire formats for datetime literals.
var datetimeLayouts = []string{time.RFC3339, "2006-01-02"}

func typedValue(field string, kind ValueKind, v any) (any, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, qerr.NewValidationError(field, fmt.Sprintf("expected a string, got %T", v))
		}
		return s, nil
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return nil, qerr.NewValidationError(field, fmt.Sprintf("expected a number, got %T", v))
		}
		return n, nil
	case KindDatetime:
		s, ok := v.(string)
		if !ok {
			return nil, qerr.NewValidationError(field, fmt.Sprintf("expected a datetime string, got %T", v))
		}
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, qerr.NewValidationError(field, fmt.Sprintf("cannot parse %q as RFC 3339 or YYYY-MM-DD", s))
	}
	return nil, qerr.NewValidationError(field, fmt.Sprintf("unknown value kind %q", kind))
}
