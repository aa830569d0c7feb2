package resource_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/atrium/internal/fixtures"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
)

// TestResolveIndexFields tests index resolution order and flattening.
func TestResolveIndexFields(t *testing.T) {
	tests := []struct {
		name string
		res  resource.Resource
		want []string
	}{
		{
			name: "page declaration",
			res:  fixtures.NewItems(),
			want: []string{"id", "name", "category", "comments", "images"},
		},
		{
			name: "custom page wins",
			res:  fixtures.NewCoverPages(),
			want: []string{"id", "title"},
		},
		{
			name: "generic fallback",
			res: fixtures.NewResource("plain", []fields.Element{
				fields.NewBox("Main", fields.ID(), fields.Text("Title", "title")),
			}),
			want: []string{"id", "title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := resource.ResolveIndexFields(tt.res)
			if err != nil {
				t.Fatalf("ResolveIndexFields() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, set.Names()); diff != "" {
				t.Errorf("Names() mismatch (-want +got):\n%s", diff)
			}
			for _, el := range set.Elements() {
				if _, ok := el.(*fields.Box); ok {
					t.Error("index fields must be flattened")
				}
			}
		})
	}
}

// TestResolveIndexFields_KeepsGroups tests that box labels survive
// flattening.
func TestResolveIndexFields_KeepsGroups(t *testing.T) {
	res := fixtures.NewResource("plain", []fields.Element{
		fields.NewBox("Main", fields.ID()),
		fields.Text("Title", "title"),
	})

	set, err := resource.ResolveIndexFields(res)
	if err != nil {
		t.Fatal(err)
	}

	id, _ := set.Find("id")
	title, _ := set.Find("title")
	if id.Group() != "Main" || title.Group() != "" {
		t.Errorf("groups = %q, %q; want Main, empty", id.Group(), title.Group())
	}
}

// TestResolveIndexFields_EmptyCustomPageFallsBack tests that a custom page
// without fields is skipped.
func TestResolveIndexFields_EmptyCustomPageFallsBack(t *testing.T) {
	res := fixtures.NewCoverPages()
	res.Pages = nil

	set, err := resource.ResolveIndexFields(res)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"id", "image", "category"}, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

// TestResolve_PageLookupErrorPropagates tests that custom page errors are
// returned unchanged.
func TestResolve_PageLookupErrorPropagates(t *testing.T) {
	lookupErr := errors.New("page not found: CoverPageIndex")
	res := fixtures.NewCoverPages()
	res.PageErr = lookupErr

	for _, page := range []panel.PageType{panel.PageIndex, panel.PageDetail, panel.PageForm} {
		_, err := resource.Resolve(res, page)
		if err != lookupErr {
			t.Errorf("Resolve(%s) error = %v, want the lookup error unchanged", page, err)
		}
	}
}

// TestResolveFormFields tests form resolution and outside separation.
func TestResolveFormFields(t *testing.T) {
	res := fixtures.NewItems()

	set, err := resource.ResolveFormFields(res, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"name", "category", "content", "public_at", "comments", "images"}
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := set.Elements()[0].(*fields.Box); !ok {
		t.Error("form fields must keep the box tree")
	}

	withOutside, err := resource.ResolveFormFields(res, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := withOutside.Find("active"); !ok {
		t.Error("outside field missing with withOutside")
	}

	outside, err := resource.ResolveOutsideFields(res)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"active"}, outside.Names()); diff != "" {
		t.Errorf("outside Names() mismatch (-want +got):\n%s", diff)
	}
}

// TestResolveDetailFields tests detail resolution.
func TestResolveDetailFields(t *testing.T) {
	set, err := resource.ResolveDetailFields(fixtures.Covers{}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"id", "image", "category"}, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	only, err := resource.ResolveDetailFields(fixtures.Covers{}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !only.IsEmpty() {
		t.Errorf("expected no outside fields, got %v", only.Names())
	}
}

// TestResolveExportAndImportFields tests export/import fallbacks.
func TestResolveExportAndImportFields(t *testing.T) {
	tests := []struct {
		name       string
		res        resource.Resource
		wantExport []string
		wantImport []string
	}{
		{
			name:       "explicit export declaration",
			res:        fixtures.NewItems(),
			wantExport: []string{"id"},
			wantImport: []string{"id"},
		},
		{
			name: "index fallback",
			res: &fixtures.Resource{
				Key:   "index-only",
				Index: []fields.Element{fields.ID(), fields.Text("Name", "name"), fields.Image("Cover", "cover", fields.HideOnExport())},
			},
			wantExport: []string{"id", "name"},
			wantImport: nil,
		},
		{
			name: "generic fallback",
			res: fixtures.NewResource("generic", []fields.Element{
				fields.NewBox("Main", fields.ID(), fields.Text("Name", "name")),
			}),
			wantExport: []string{"id", "name"},
			wantImport: []string{"id", "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := resource.ResolveExportFields(tt.res)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantExport, exp.Names()); diff != "" {
				t.Errorf("export Names() mismatch (-want +got):\n%s", diff)
			}

			imp, err := resource.ResolveImportFields(tt.res)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantImport, imp.Names()); diff != "" {
				t.Errorf("import Names() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestResolveFilters tests filter name wrapping.
func TestResolveFilters(t *testing.T) {
	set, err := resource.ResolveFilters(fixtures.NewItems())
	if err != nil {
		t.Fatalf("ResolveFilters() error = %v", err)
	}
	want := []string{"filters[name]", "filters[category]"}
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	empty, err := resource.ResolveFilters(fixtures.Covers{})
	if err != nil {
		t.Fatal(err)
	}
	if !empty.IsEmpty() {
		t.Errorf("expected no filters, got %v", empty.Names())
	}
}

type badFilters struct {
	*fixtures.Resource
	filters []fields.Element
}

func (b badFilters) Filters() []fields.Element { return b.filters }

// TestResolveFilters_RejectsIncompatibleTypes tests that structural field
// types cannot be used as filters.
func TestResolveFilters_RejectsIncompatibleTypes(t *testing.T) {
	tests := []struct {
		name  string
		field *fields.Field
	}{
		{"has many", fields.HasMany("Comments", "comments", "comments", nil)},
		{"image", fields.Image("Cover", "cover")},
		{"computed", fields.Computed("Position", "position", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := badFilters{
				Resource: fixtures.NewResource("bad", nil),
				filters:  []fields.Element{fields.Text("Name", "name"), tt.field},
			}

			_, err := resource.ResolveFilters(res)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cfgErr *panel.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %T", err)
			}
			if cfgErr.Component != "filters" {
				t.Errorf("Component = %q, want filters", cfgErr.Component)
			}
		})
	}
}

// TestResolve_OutsideFiltersDropped tests that outside fields never become
// filters.
func TestResolve_OutsideFiltersDropped(t *testing.T) {
	res := badFilters{
		Resource: fixtures.NewResource("outside", nil),
		filters: []fields.Element{
			fields.Text("Name", "name"),
			fields.Image("Cover", "cover", fields.Outside()),
		},
	}

	set, err := resource.ResolveFilters(res)
	if err != nil {
		t.Fatalf("ResolveFilters() error = %v", err)
	}
	if diff := cmp.Diff([]string{"filters[name]"}, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

// TestResolve_NilResource tests the missing resource error.
func TestResolve_NilResource(t *testing.T) {
	for _, page := range []panel.PageType{panel.PageIndex, panel.PageExport, panel.PageImport, panel.PageFilters} {
		if _, err := resource.Resolve(nil, page); !panel.IsConfigurationError(err) {
			t.Errorf("Resolve(nil, %s) error = %v, want ConfigurationError", page, err)
		}
	}
}
