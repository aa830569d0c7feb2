// Package datasource provides Queryable implementations for resources:
// an in-memory Slice and a SQL table source backed by SQLite.
//
// Both sources read the request filters from the context:
//
//	ctx = panel.WithQueryParams(ctx, url.Values{"filters[status]": {"active"}, "sort": {"name"}})
//	cur, err := src.Cursor(ctx)
package datasource

import "fmt"

// QueryError represents a failure of a data source.
type QueryError struct {
	Source    string // Table or backend name
	Operation string // Operation that failed (query, scan, iterate, ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("datasource error [source=%s, operation=%s]: %v", e.Source, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(source, operation string, cause error) *QueryError {
	return &QueryError{
		Source:    source,
		Operation: operation,
		Cause:     cause,
	}
}
