// Package fixtures provides resources and records shared by package
// tests.
package fixtures

import (
	"context"
	"fmt"

	"mercator-hq/atrium/pkg/datasource"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
)

// Resource is a configurable in-memory resource. Nil declarations are
// treated as not declared.
type Resource struct {
	Key     string
	Name    string
	Generic []fields.Element
	Index   []fields.Element
	Export  []fields.Element
	Source  *datasource.Slice

	// QueryErr, when set, is returned by Query.
	QueryErr error
}

// NewResource creates a resource exporting the given fields over records.
func NewResource(key string, decl []fields.Element, records ...panel.Record) *Resource {
	return &Resource{
		Key:     key,
		Name:    key,
		Generic: decl,
		Source:  datasource.NewSlice(records...),
	}
}

func (r *Resource) URIKey() string { return r.Key }
func (r *Resource) Title() string { return r.Name }
func (r *Resource) Fields() []fields.Element { return r.Generic }
func (r *Resource) IndexFields() []fields.Element { return r.Index }
func (r *Resource) ExportFields() []fields.Element { return r.Export }

func (r *Resource) Query(ctx context.Context) (panel.Queryable, error) {
	if r.QueryErr != nil {
		return nil, r.QueryErr
	}
	return r.Source, nil
}

// Items mirrors a catalogue resource with boxed form fields, relations,
// an explicit export declaration and filters.
type Items struct {
	Source *datasource.Slice
}

// NewItems creates the items resource over records.
func NewItems(records ...panel.Record) *Items {
	return &Items{Source: datasource.NewSlice(records...)}
}

func (*Items) URIKey() string { return "items" }
func (*Items) Title() string { return "Items" }
func (*Items) Fields() []fields.Element { return nil }

func (i *Items) Query(ctx context.Context) (panel.Queryable, error) { return i.Source, nil }

func (*Items) IndexFields() []fields.Element {
	return []fields.Element{
		fields.ID(fields.Sortable()),
		fields.Text("Name title", "name", fields.Sortable()),
		fields.BelongsTo("Category title", "category", "name", "categories"),
		comments(),
		images(),
	}
}

func (i *Items) DetailFields() []fields.Element { return i.IndexFields() }

func (*Items) FormFields() []fields.Element {
	return []fields.Element{
		fields.NewBox("Main",
			fields.ID(),
			fields.Text("Name title", "name", fields.Sortable()),
			fields.BelongsTo("Category title", "category", "name", "categories"),
			fields.Text("Content title", "content"),
			fields.Date("Public at title", "public_at"),
			fields.Switcher("Active title", "active", fields.Outside()),
			comments(),
			images(),
		),
	}
}

func (*Items) ExportFields() []fields.Element {
	return []fields.Element{fields.ID()}
}

func (i *Items) ImportFields() []fields.Element { return i.ExportFields() }

func (*Items) Filters() []fields.Element {
	return []fields.Element{
		fields.Text("Name", ""),
		fields.BelongsTo("Category", "category", "name", "categories"),
	}
}

func comments() *fields.Field {
	return fields.HasMany("Comments title", "comments", "comments", []fields.Element{
		fields.ID(fields.Sortable()),
		fields.Text("Comment title", "content", fields.Sortable()),
		fields.Switcher("Active title", "active"),
	})
}

func images() *fields.Field {
	return fields.HasMany("Images title", "images", "images", []fields.Element{
		fields.ID(fields.Sortable()),
		fields.Image("Image title", "name"),
	})
}

// Covers declares the same list for index, detail and form pages.
type Covers struct{}

func (Covers) URIKey() string { return "covers" }
func (Covers) Title() string { return "Covers" }
func (Covers) Fields() []fields.Element { return nil }

func (Covers) Query(ctx context.Context) (panel.Queryable, error) {
	return datasource.NewSlice(), nil
}

func (Covers) IndexFields() []fields.Element {
	return []fields.Element{
		fields.ID(),
		fields.Image("Image title", "image"),
		fields.BelongsTo("Category title", "category", "name", "categories"),
	}
}

func (c Covers) DetailFields() []fields.Element { return c.IndexFields() }
func (c Covers) FormFields() []fields.Element { return c.IndexFields() }

// CoverPages is Covers with custom pages. Pages without an entry fall
// back to the page declarations.
type CoverPages struct {
	Covers
	Pages   map[panel.PageType][]fields.Element
	PageErr error
}

// NewCoverPages creates a cover resource whose custom index page declares
// its own field list.
func NewCoverPages() *CoverPages {
	return &CoverPages{
		Pages: map[panel.PageType][]fields.Element{
			panel.PageIndex: {
				fields.ID(),
				fields.Text("Custom title", "title"),
			},
		},
	}
}

func (*CoverPages) URIKey() string { return "cover-pages" }

func (c *CoverPages) PageFields(page panel.PageType) ([]fields.Element, error) {
	if c.PageErr != nil {
		return nil, c.PageErr
	}
	return c.Pages[page], nil
}

// ItemRecords returns n item records with nested category data.
func ItemRecords(n int) []panel.Record {
	out := make([]panel.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, panel.Record{
			"id":        i,
			"name":      fmt.Sprintf("Item %d", i),
			"content":   fmt.Sprintf("Content of item %d", i),
			"public_at": "2024-01-02",
			"active":    i%2 == 0,
			"category": panel.Record{
				"id":   i%3 + 1,
				"name": fmt.Sprintf("Category %d", i%3+1),
			},
		})
	}
	return out
}
