// Package sqlgen holds the SQL assembly primitives for the PostgreSQL
// dialect: the trusted Fragment type, the Statement value, the placeholder
// Builder, and the fixed keyword tables.
package sqlgen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/satishbabariya/quarry/query/ast"
)

// Fragment is trusted SQL text. Fragments originate in the catalog or in
// this package's keyword tables; caller-supplied values never become
// Fragments, they travel as bound parameters.
type Fragment string

// Statement is a compiled SQL statement with its ordered arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Builder accumulates SQL text and bound arguments. Placeholders number
// from $1 in bind order, which matches their order in the emitted text
// because clauses are written front to back.
type Builder struct {
	sb   strings.Builder
	args []any
}

// WriteString appends trusted SQL text.
func (b *Builder) WriteString(s string) {
	b.sb.WriteString(s)
}

// WriteFragment appends catalog-origin SQL text.
func (b *Builder) WriteFragment(f Fragment) {
	b.sb.WriteString(string(f))
}

// Bind appends an argument and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Statement returns the built statement.
func (b *Builder) Statement() *Statement {
	return &Statement{SQL: b.sb.String(), Args: b.args}
}

// OperatorSQL returns the SQL comparison for an operator. The in operator
// expands to a placeholder list and is handled by the compiler directly.
func OperatorSQL(op ast.Operator) string {
	switch op {
	case ast.Equals:
		return "="
	case ast.Not:
		return "!="
	case ast.Gt:
		return ">"
	case ast.Gte:
		return ">="
	case ast.Lt:
		return "<"
	case ast.Lte:
		return "<="
	}
	return ""
}

// AggregateSQL returns the SQL function name for an aggregation.
func AggregateSQL(a ast.Aggregation) string {
	switch a {
	case ast.Count:
		return "COUNT"
	case ast.Sum:
		return "SUM"
	case ast.Avg:
		return "AVG"
	case ast.Min:
		return "MIN"
	case ast.Max:
		return "MAX"
	}
	return ""
}

// TruncSQL returns the DATE_TRUNC granularity keyword for a unit.
func TruncSQL(u ast.TemporalUnit) string {
	switch u {
	case ast.UnitHour:
		return "hour"
	case ast.UnitDay:
		return "day"
	case ast.UnitWeek:
		return "week"
	case ast.UnitMonth:
		return "month"
	case ast.UnitYear:
		return "year"
	}
	return ""
}

// StepSQL returns the interval literal that advances a series by one unit.
func StepSQL(u ast.TemporalUnit) string {
	switch u {
	case ast.UnitHour:
		return "interval '1 hour'"
	case ast.UnitDay:
		return "interval '1 day'"
	case ast.UnitWeek:
		return "interval '1 week'"
	case ast.UnitMonth:
		return "interval '1 month'"
	case ast.UnitYear:
		return "interval '1 year'"
	}
	return ""
}

// DirectionSQL returns the SQL sort keyword for a direction.
func DirectionSQL(d ast.SortDirection) string {
	if d == ast.Desc {
		return "DESC"
	}
	return "ASC"
}

// Alias derives the output name for an aggregated column: the lower-cased
// aggregation followed by the column name with its first letter upper-cased,
// so sum over amount yields sumAmount. Consumers key result cells on these
// names; the derivation must stay stable.
func Alias(a ast.Aggregation, column string) string {
	return strings.ToLower(string(a)) + capitalize(column)
}

// QuoteAlias double-quotes an alias so mixed case survives the server's
// identifier folding.
func QuoteAlias(name string) string {
	return `"` + name + `"`
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
