package definition

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/atrium/pkg/datasource"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
)

// Load reads the definition file at path and builds its resources over
// db.
func Load(path string, db *sql.DB) ([]resource.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, panel.NewConfigurationError("definition", "failed to read %s: %v", path, err)
	}

	out, err := Parse(data, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Parse builds the resources declared in data. Unknown keys are
// rejected. Every page of every resource is resolved once so that
// declaration errors surface here rather than on first use.
func Parse(data []byte, db *sql.DB) ([]resource.Resource, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, panel.NewConfigurationError("definition", "invalid YAML: %v", err)
	}

	seen := make(map[string]bool, len(file.Resources))
	out := make([]resource.Resource, 0, len(file.Resources))
	for i, spec := range file.Resources {
		if spec.Key == "" {
			return nil, panel.NewConfigurationError("definition", "resource %d has no key", i)
		}
		if seen[spec.Key] {
			return nil, panel.NewConfigurationError("definition", "duplicate resource key %q", spec.Key)
		}
		seen[spec.Key] = true

		r, err := newResource(spec, db)
		if err != nil {
			return nil, panel.NewConfigurationError("definition", "resource %q: %v", spec.Key, err)
		}
		out = append(out, r)
	}

	return out, nil
}

func newResource(spec ResourceSpec, db *sql.DB) (*Resource, error) {
	if spec.Title == "" {
		spec.Title = spec.Key
	}
	if spec.Table == "" {
		return nil, errors.New("table is required")
	}
	if len(spec.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}
	if _, err := buildElements(spec.Fields); err != nil {
		return nil, err
	}
	if _, err := buildElements(spec.Filters); err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}

	r := &Resource{spec: spec, pages: make(map[panel.PageType][]FieldSpec)}
	for page, refs := range map[panel.PageType][]string{
		panel.PageIndex:  spec.Index,
		panel.PageDetail: spec.Detail,
		panel.PageForm:   spec.Form,
		panel.PageExport: spec.Export,
		panel.PageImport: spec.Import,
	} {
		picked, err := pick(spec.Fields, refs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", page, err)
		}
		r.pages[page] = picked
	}

	table := datasource.Table{
		Name:        spec.Table,
		Joins:       spec.Joins,
		DefaultSort: spec.DefaultSort,
	}
	if len(spec.Columns) > 0 {
		for _, c := range spec.Columns {
			table.Columns = append(table.Columns, datasource.Column{Name: c.Name, Expr: c.Expr})
		}
	} else {
		for _, c := range columns(append(append([]FieldSpec{}, spec.Fields...), spec.Filters...)) {
			table.Columns = append(table.Columns, datasource.Column{Name: c})
		}
	}

	source, err := datasource.NewSQL(db, table)
	if err != nil {
		return nil, err
	}
	r.source = source

	for _, page := range []panel.PageType{
		panel.PageIndex, panel.PageDetail, panel.PageForm,
		panel.PageExport, panel.PageImport, panel.PageFilters,
	} {
		if _, err := resource.Resolve(r, page); err != nil {
			return nil, fmt.Errorf("%s: %w", page, err)
		}
	}

	return r, nil
}
