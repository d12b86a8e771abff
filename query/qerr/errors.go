// Package qerr defines the error taxonomy shared by the query pipeline.
package qerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline's failure classes.
var (
	// ErrInvalidQuery indicates a query description that failed shape validation.
	ErrInvalidQuery = errors.New("quarry: invalid query")

	// ErrUnknownTable indicates a logical table missing from the catalog.
	ErrUnknownTable = errors.New("quarry: unknown table")

	// ErrUnknownColumn indicates a column missing from the resolved table.
	ErrUnknownColumn = errors.New("quarry: unknown column")

	// ErrMultipleDatetimeGroupBy indicates more than one datetime group-by.
	ErrMultipleDatetimeGroupBy = errors.New("quarry: multiple datetime group-bys")

	// ErrMismatchedRangeColumn indicates range bounds on a column other than
	// the bucketed one.
	ErrMismatchedRangeColumn = errors.New("quarry: mismatched range column")

	// ErrKindMismatch indicates a column used with an incompatible kind.
	ErrKindMismatch = errors.New("quarry: column kind mismatch")

	// ErrUnrecognizedCell indicates a driver value the normalizer cannot map.
	ErrUnrecognizedCell = errors.New("quarry: unrecognized cell type")
)

// Error codes. Q1xxx are validation failures, Q2xxx schema resolution
// failures, Q3xxx query semantics failures, Q9xxx internal failures.
const (
	CodeInvalidQuery            = "Q1000"
	CodeUnknownTable            = "Q2001"
	CodeUnknownColumn           = "Q2002"
	CodeMultipleDatetimeGroupBy = "Q3001"
	CodeMismatchedRangeColumn   = "Q3002"
	CodeKindMismatch            = "Q3003"
	CodeUnrecognizedCell        = "Q9001"
)

// Error is a rich error type with additional context.
type Error struct {
	// Code is the error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// Table is the affected logical table (if applicable).
	Table string

	// Column is the affected column (if applicable).
	Column string

	// Field is the offending request field path (if applicable).
	Field string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("quarry [%s] %s.%s: %s", e.Code, e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("quarry [%s] %s: %s", e.Code, e.Table, e.Message)
	case e.Field != "":
		return fmt.Sprintf("quarry [%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("quarry [%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewValidationError creates an error for a request field that failed
// shape validation.
func NewValidationError(field, reason string) *Error {
	return &Error{
		Code:    CodeInvalidQuery,
		Message: reason,
		Field:   field,
		Cause:   ErrInvalidQuery,
	}
}

// NewUnknownTableError creates an error for a table missing from the catalog.
func NewUnknownTableError(table string) *Error {
	return &Error{
		Code:    CodeUnknownTable,
		Message: "table is not in the catalog",
		Table:   table,
		Cause:   ErrUnknownTable,
	}
}

// NewUnknownColumnError creates an error for a column missing from a table.
func NewUnknownColumnError(table, column string) *Error {
	return &Error{
		Code:    CodeUnknownColumn,
		Message: "column is not in the catalog",
		Table:   table,
		Column:  column,
		Cause:   ErrUnknownColumn,
	}
}

// NewMultipleDatetimeGroupByError creates an error for a query grouping by
// more than one datetime dimension.
func NewMultipleDatetimeGroupByError(table string) *Error {
	return &Error{
		Code:    CodeMultipleDatetimeGroupBy,
		Message: "at most one datetime group-by is supported",
		Table:   table,
		Cause:   ErrMultipleDatetimeGroupBy,
	}
}

// NewMismatchedRangeColumnError creates an error for range bounds that do
// not reference the bucketed column.
func NewMismatchedRangeColumnError(want, got string) *Error {
	return &Error{
		Code:    CodeMismatchedRangeColumn,
		Message: fmt.Sprintf("range bounds must reference %q, got %q", want, got),
		Column:  got,
		Cause:   ErrMismatchedRangeColumn,
	}
}

// NewKindMismatchError creates an error for a column used with an
// incompatible kind, for example a number filter on a string column.
func NewKindMismatchError(table, column, reason string) *Error {
	return &Error{
		Code:    CodeKindMismatch,
		Message: reason,
		Table:   table,
		Column:  column,
		Cause:   ErrKindMismatch,
	}
}

// NewUnrecognizedCellError creates an error for a driver value outside the
// normalizer's cell policy. This is bug-class: the catalog exposed a column
// whose driver representation the normalizer does not understand.
func NewUnrecognizedCellError(column string, value any) *Error {
	return &Error{
		Code:    CodeUnrecognizedCell,
		Message: fmt.Sprintf("no mapping for driver value of type %T", value),
		Column:  column,
		Cause:   ErrUnrecognizedCell,
	}
}

// IsValidation checks if an error is a shape validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsSchemaResolution checks if an error is an unknown table or column error.
func IsSchemaResolution(err error) bool {
	return errors.Is(err, ErrUnknownTable) || errors.Is(err, ErrUnknownColumn)
}

// IsSemantics checks if an error is a query semantics error.
func IsSemantics(err error) bool {
	return errors.Is(err, ErrMultipleDatetimeGroupBy) ||
		errors.Is(err, ErrMismatchedRangeColumn) ||
		errors.Is(err, ErrKindMismatch)
}

// IsClientError checks if an error is attributable to the caller's query
// description. Transports map these to 4xx responses.
func IsClientError(err error) bool {
	return IsValidation(err) || IsSchemaResolution(err) || IsSemantics(err)
}

// IsInternal checks if an error is bug-class rather than caller-attributable.
func IsInternal(err error) bool {
	return errors.Is(err, ErrUnrecognizedCell)
}
