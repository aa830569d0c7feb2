package resource

import (
	"fmt"

	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
)

var errNoResource = panel.NewConfigurationError("resource", "no resource to resolve fields for")

// ResolveIndexFields returns the flattened index page fields. Fields keep
// the label of the box they were declared in.
func ResolveIndexFields(r Resource) (*fields.Set, error) {
	s, err := declared(r, panel.PageIndex, func() []fields.Element {
		if d, ok := r.(IndexDeclarer); ok {
			return d.IndexFields()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.OnlyFields(true).IndexFields(), nil
}

// ResolveFormFields returns the form page fields with the box tree
// preserved. Outside fields are included only when withOutside is set.
func ResolveFormFields(r Resource, withOutside bool) (*fields.Set, error) {
	s, err := declaredForm(r)
	if err != nil {
		return nil, err
	}
	return s.FormFields(withOutside), nil
}

// ResolveDetailFields returns the flattened detail page fields.
func ResolveDetailFields(r Resource, withOutside, onlyOutside bool) (*fields.Set, error) {
	s, err := declared(r, panel.PageDetail, func() []fields.Element {
		if d, ok := r.(DetailDeclarer); ok {
			return d.DetailFields()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.OnlyFields(true).DetailFields(withOutside, onlyOutside), nil
}

// ResolveOutsideFields returns the outside fields of the form declaration.
func ResolveOutsideFields(r Resource) (*fields.Set, error) {
	s, err := declaredForm(r)
	if err != nil {
		return nil, err
	}
	return s.OnlyFields(false).OnlyOutside(), nil
}

// ResolveExportFields returns the export columns. A resource without an
// export declaration exports its index declaration, then its generic one.
func ResolveExportFields(r Resource) (*fields.Set, error) {
	if r == nil {
		return nil, errNoResource
	}
	s, err := makeSet(firstNonEmpty(exportDeclaration(r), indexDeclaration(r), r.Fields()))
	if err != nil {
		return nil, err
	}
	return s.OnlyFields(false).ExportFields(), nil
}

// ResolveImportFields returns the import columns. It falls back to the
// export declaration, then to the generic one.
func ResolveImportFields(r Resource) (*fields.Set, error) {
	if r == nil {
		return nil, errNoResource
	}
	var imports []fields.Element
	if d, ok := r.(ImportDeclarer); ok {
		imports = d.ImportFields()
	}

	s, err := makeSet(firstNonEmpty(imports, exportDeclaration(r), r.Fields()))
	if err != nil {
		return nil, err
	}
	return s.OnlyFields(false).ImportFields(), nil
}

// ResolveFilters returns the index page filters. Outside fields are
// dropped and names are namespaced under "filters". Field types that
// cannot act as filters are rejected.
func ResolveFilters(r Resource) (*fields.Set, error) {
	if r == nil {
		return nil, errNoResource
	}
	var decl []fields.Element
	if d, ok := r.(FilterDeclarer); ok {
		decl = d.Filters()
	}

	s, err := makeSet(decl)
	if err != nil {
		return nil, err
	}

	filters := s.WithoutOutside().WrapNames("filters")
	for _, f := range filters.All() {
		if !f.IsFilterable() {
			return nil, panel.NewConfigurationError("filters",
				"you can't use %s inside filters (resource %q, field %q)", f.Kind(), r.URIKey(), f.Column())
		}
	}

	return filters, nil
}

// Resolve dispatches to the resolver of the given page with default
// options.
func Resolve(r Resource, page panel.PageType) (*fields.Set, error) {
	switch page {
	case panel.PageIndex:
		return ResolveIndexFields(r)
	case panel.PageDetail:
		return ResolveDetailFields(r, false, false)
	case panel.PageForm:
		return ResolveFormFields(r, false)
	case panel.PageExport:
		return ResolveExportFields(r)
	case panel.PageImport:
		return ResolveImportFields(r)
	case panel.PageFilters:
		return ResolveFilters(r)
	default:
		return nil, fmt.Errorf("unknown page type: %q", page)
	}
}

func declaredForm(r Resource) (*fields.Set, error) {
	return declared(r, panel.PageForm, func() []fields.Element {
		if d, ok := r.(FormDeclarer); ok {
			return d.FormFields()
		}
		return nil
	})
}

// declared applies the custom page -> page declaration -> generic
// fallback chain.
func declared(r Resource, page panel.PageType, pageDecl func() []fields.Element) (*fields.Set, error) {
	if r == nil {
		return nil, errNoResource
	}

	if p, ok := r.(PageProvider); ok {
		custom, err := p.PageFields(page)
		if err != nil {
			return nil, err
		}
		if len(custom) > 0 {
			return makeSet(custom)
		}
	}

	return makeSet(firstNonEmpty(pageDecl(), r.Fields()))
}

func exportDeclaration(r Resource) []fields.Element {
	if d, ok := r.(ExportDeclarer); ok {
		return d.ExportFields()
	}
	return nil
}

func indexDeclaration(r Resource) []fields.Element {
	if d, ok := r.(IndexDeclarer); ok {
		return d.IndexFields()
	}
	return nil
}

func makeSet(elements []fields.Element) (*fields.Set, error) {
	return fields.Make(elements...)
}

func firstNonEmpty(lists ...[]fields.Element) []fields.Element {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
