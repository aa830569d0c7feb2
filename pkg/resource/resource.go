// Package resource defines admin resources and resolves their declared
// fields into per-page field sets.
//
// A resource implements Resource and may implement any of the optional
// declarer interfaces to give a page its own field list. Resolution for a
// page tries, in order:
//
//  1. the custom page field list (PageProvider), when non-empty
//  2. the page-specific declaration (IndexDeclarer, FormDeclarer, ...)
//  3. the generic Fields declaration
//
// Resolvers are pure functions of the resource; nothing is cached, so a
// resource may return different lists per call.
package resource

import (
	"context"

	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
)

// Resource describes the admin surface of one data entity.
type Resource interface {
	// URIKey is the stable identifier used in URLs, job descriptors and
	// export filenames.
	URIKey() string

	// Title is the display name.
	Title() string

	// Fields is the generic field declaration used when a page declares
	// nothing of its own.
	Fields() []fields.Element

	// Query resolves the data query. Filters are read from the query
	// parameters attached to ctx (see panel.QueryParams).
	Query(ctx context.Context) (panel.Queryable, error)
}

// IndexDeclarer declares the index page fields.
type IndexDeclarer interface {
	IndexFields() []fields.Element
}

// DetailDeclarer declares the detail page fields.
type DetailDeclarer interface {
	DetailFields() []fields.Element
}

// FormDeclarer declares the form page fields.
type FormDeclarer interface {
	FormFields() []fields.Element
}

// ExportDeclarer declares the export file columns.
type ExportDeclarer interface {
	ExportFields() []fields.Element
}

// ImportDeclarer declares the import file columns.
type ImportDeclarer interface {
	ImportFields() []fields.Element
}

// FilterDeclarer declares the index page filters.
type FilterDeclarer interface {
	Filters() []fields.Element
}

// PageProvider exposes custom pages. PageFields returns the field list
// declared by the custom page of the given type; an empty list means the
// resource has no such page or the page declares no fields. Errors are
// returned to the caller unchanged.
type PageProvider interface {
	PageFields(page panel.PageType) ([]fields.Element, error)
}
