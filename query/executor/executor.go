// Package executor runs compiled statements and normalizes driver cells
// into portable values.
package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/quarry/query/sqlgen"
)

// DBTX is the subset of database/sql used for execution. *sql.DB, *sql.Tx
// and *sql.Conn all satisfy it.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is one result row keyed by the statement's output column names.
type Row map[string]any

// Executor executes statements and normalizes results.
type Executor struct {
	db DBTX
}

// New creates an executor over a database handle.
func New(db DBTX) *Executor {
	return &Executor{db: db}
}

// Execute runs a compiled statement and returns its rows in result order.
// Driver errors pass through wrapped; nothing is retried here.
func (e *Executor) Execute(ctx context.Context, stmt *sqlgen.Statement) ([]Row, error) {
	rows, err := e.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read result column types: %w", err)
	}
	dbTypes := make([]string, len(types))
	for i, t := range types {
		dbTypes[i] = t.DatabaseTypeName()
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row, err := NormalizeRow(columns, dbTypes, values)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}
