package definition

import (
	"context"

	"mercator-hq/atrium/pkg/datasource"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
)

// Resource is a resource loaded from a definition file. Every declaration
// method builds new fields.
type Resource struct {
	spec   ResourceSpec
	pages  map[panel.PageType][]FieldSpec
	source *datasource.SQL
}

// URIKey implements resource.Resource.
func (r *Resource) URIKey() string { return r.spec.Key }

// Title implements resource.Resource.
func (r *Resource) Title() string { return r.spec.Title }

// Spec returns the declaration the resource was loaded from.
func (r *Resource) Spec() ResourceSpec { return r.spec }

// Fields implements resource.Resource.
func (r *Resource) Fields() []fields.Element { return r.build(r.spec.Fields) }

// Query implements resource.Resource.
func (r *Resource) Query(ctx context.Context) (panel.Queryable, error) {
	return r.source, nil
}

func (r *Resource) IndexFields() []fields.Element  { return r.page(panel.PageIndex) }
func (r *Resource) DetailFields() []fields.Element { return r.page(panel.PageDetail) }
func (r *Resource) FormFields() []fields.Element   { return r.page(panel.PageForm) }
func (r *Resource) ExportFields() []fields.Element { return r.page(panel.PageExport) }
func (r *Resource) ImportFields() []fields.Element { return r.page(panel.PageImport) }
func (r *Resource) Filters() []fields.Element      { return r.build(r.spec.Filters) }

func (r *Resource) page(page panel.PageType) []fields.Element {
	return r.build(r.pages[page])
}

// build cannot fail for a loaded resource: Load validated every list.
func (r *Resource) build(specs []FieldSpec) []fields.Element {
	if len(specs) == 0 {
		return nil
	}
	out, err := buildElements(specs)
	if err != nil {
		return nil
	}
	return out
}
