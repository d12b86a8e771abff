// Package catalog defines the logical tables a query may reference and maps
// them onto physical SQL. The catalog is the single origin of identifier
// text in compiled statements: anything not declared here is either a fixed
// keyword or a bound parameter.
package catalog

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

// Column is one queryable column of a logical table.
type Column struct {
	// Name is the logical, caller-facing name.
	Name string

	// Kind classifies the column's values.
	Kind ast.ValueKind

	// Expr is the exact SQL emitted for the column.
	Expr sqlgen.Fragment

	// Cast, when set, is the SQL type that filter comparisons cast the
	// column to, e.g. "text" for enum-backed columns that cannot be
	// compared to a bound text parameter directly.
	Cast string

	// Doc is the column's doc comment, if any.
	Doc string
}

// Table maps a logical table onto its physical source.
type Table struct {
	// Name is the logical table name.
	Name string

	// Source is the physical FROM text: a table name, or a join
	// expression for views over more than one entity.
	Source sqlgen.Fragment

	// TenantKeys holds one tenant-column expression per underlying
	// entity. Every compiled statement carries an equality predicate
	// for each of them.
	TenantKeys []sqlgen.Fragment

	// Columns are the queryable columns, in declaration order.
	Columns []Column

	// Doc is the table's doc comment, if any.
	Doc string

	index map[string]int
}

// Column looks up a column by logical name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// Joined reports whether the source is a join expression rather than a
// bare table name. The compiler parenthesizes joined sources when wrapping
// them in the series LEFT JOIN.
func (t *Table) Joined() bool {
	return strings.Contains(string(t.Source), " ")
}

// Registry is an immutable, ordered collection of tables. It is always
// passed explicitly into compilation; tests use small fixture registries.
type Registry struct {
	tables []*Table
	index  map[string]int
}

// NewRegistry builds a registry from table definitions. Table names,
// per-table column names, sources, tenant keys and column kinds are
// validated; definitions are copied so later mutation of the inputs
// cannot leak in.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(tables))}
	for _, t := range tables {
		if err := normalizeTable(&t); err != nil {
			return nil, err
		}
		if _, dup := r.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		r.index[t.Name] = len(r.tables)
		r.tables = append(r.tables, &t)
	}
	return r, nil
}

// Table looks up a table by logical name.
func (r *Registry) Table(name string) (*Table, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.tables[i], nil
}

// Tables returns all tables in declaration order.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, len(r.tables))
	copy(out, r.tables)
	return out
}

func normalizeTable(t *Table) error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if t.Source == "" {
		return fmt.Errorf("table %q: source is required", t.Name)
	}
	if len(t.TenantKeys) == 0 {
		return fmt.Errorf("table %q: at least one tenant key is required", t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q: at least one column is required", t.Name)
	}
	t.TenantKeys = append([]sqlgen.Fragment(nil), t.TenantKeys...)
	t.Columns = append([]Column(nil), t.Columns...)
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %q: column name is required", t.Name)
		}
		if !c.Kind.Valid() {
			return fmt.Errorf("table %q: column %q: unknown kind %q", t.Name, c.Name, c.Kind)
		}
		if c.Expr == "" {
			return fmt.Errorf("table %q: column %q: expression is required", t.Name, c.Name)
		}
		if _, dup := t.index[c.Name]; dup {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		t.index[c.Name] = i
	}
	return nil
}
