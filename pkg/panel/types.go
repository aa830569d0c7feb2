package panel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// PageType identifies the context a field set is resolved for.
type PageType string

const (
	// PageIndex is the list page.
	PageIndex PageType = "index"
	// PageDetail is the single-record page.
	PageDetail PageType = "detail"
	// PageForm is the create/edit page.
	PageForm PageType = "form"
	// PageExport is the export file.
	PageExport PageType = "export"
	// PageImport is the import file.
	PageImport PageType = "import"
	// PageFilters is the filter sidebar of the index page.
	PageFilters PageType = "filters"
)

// ParsePageType parses a page type name.
func ParsePageType(s string) (PageType, error) {
	switch PageType(strings.ToLower(s)) {
	case PageIndex:
		return PageIndex, nil
	case PageDetail:
		return PageDetail, nil
	case PageForm:
		return PageForm, nil
	case PageExport:
		return PageExport, nil
	case PageImport:
		return PageImport, nil
	case PageFilters:
		return PageFilters, nil
	default:
		return "", fmt.Errorf("unknown page type: %q", s)
	}
}

// Record is a single data row keyed by column name.
type Record map[string]any

// Get returns the value stored under path. An exact key match wins;
// otherwise path is treated as a dotted path into nested records or maps
// ("category.name").
func (r Record) Get(path string) (any, bool) {
	if v, ok := r[path]; ok {
		return v, true
	}

	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}

	v, ok := r[head]
	if !ok {
		return nil, false
	}

	switch nested := v.(type) {
	case Record:
		return nested.Get(rest)
	case map[string]any:
		return Record(nested).Get(rest)
	default:
		return nil, false
	}
}

// Key returns the record identity (the "id" column).
func (r Record) Key() any {
	return r["id"]
}

// Cursor streams records one at a time. It is forward-only and is not
// safe for concurrent use.
type Cursor interface {
	// Next advances to the next record. It returns false when the cursor
	// is exhausted or failed; check Err afterwards.
	Next() bool

	// Record returns the current record.
	Record() Record

	// Err returns the first error encountered while iterating.
	Err() error

	// Close releases the resources held by the cursor.
	Close() error
}

// Queryable is the resolved query of a resource.
// Every call to Cursor starts a fresh iteration from the first record.
type Queryable interface {
	Cursor(ctx context.Context) (Cursor, error)
}

type queryParamsKey struct{}

// WithQueryParams attaches request query parameters to the context.
func WithQueryParams(ctx context.Context, params url.Values) context.Context {
	return context.WithValue(ctx, queryParamsKey{}, params)
}

// QueryParams returns the query parameters attached to the context.
// It never returns nil.
func QueryParams(ctx context.Context) url.Values {
	if params, ok := ctx.Value(queryParamsKey{}).(url.Values); ok && params != nil {
		return params
	}
	return url.Values{}
}
