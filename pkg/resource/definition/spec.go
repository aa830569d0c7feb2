package definition

import (
	"strings"

	"mercator-hq/atrium/pkg/fields"
)

// File is the root of a definition file.
type File struct {
	Resources []ResourceSpec `yaml:"resources"`
}

// ResourceSpec declares one table-backed resource.
type ResourceSpec struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`

	// Table is the source table name.
	Table string `yaml:"table"`

	// Columns are the selected columns. When empty they are derived from
	// the field columns.
	Columns []ColumnSpec `yaml:"columns"`

	Joins       []string `yaml:"joins"`
	DefaultSort string   `yaml:"default_sort"`

	// Fields is the generic declaration.
	Fields []FieldSpec `yaml:"fields"`

	Index  []string `yaml:"index"`
	Detail []string `yaml:"detail"`
	Form   []string `yaml:"form"`
	Export []string `yaml:"export"`
	Import []string `yaml:"import"`

	Filters []FieldSpec `yaml:"filters"`
}

// ColumnSpec is a selected column.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// FieldSpec declares a field or, with kind "box", a group of fields.
type FieldSpec struct {
	Kind   string `yaml:"kind"`
	Label  string `yaml:"label"`
	Column string `yaml:"column"`
	Name   string `yaml:"name"`

	Sortable     bool `yaml:"sortable"`
	Outside      bool `yaml:"outside"`
	ShowOnExport bool `yaml:"show_on_export"`
	OnlyExport   bool `yaml:"only_export"`

	// HideOn lists pages the field is hidden on: index, detail, form,
	// export or import.
	HideOn []string `yaml:"hide_on"`

	// ShowWhen is the visibility rule: the column followed by the
	// arguments accepted by fields.ShowWhen.
	ShowWhen []any `yaml:"show_when"`

	// Options are the choices of a select field.
	Options map[string]string `yaml:"options"`

	// Relation, Display and Resource describe a belongs_to field.
	Relation string `yaml:"relation"`
	Display  string `yaml:"display"`
	Resource string `yaml:"resource"`

	// Fields are the children of a box.
	Fields []FieldSpec `yaml:"fields"`
}

// Field kinds accepted in definition files.
const (
	KindID        = "id"
	KindText      = "text"
	KindNumber    = "number"
	KindDate      = "date"
	KindSwitcher  = "switcher"
	KindSelect    = "select"
	KindImage     = "image"
	KindBelongsTo = "belongs_to"
	KindBox       = "box"
)

// ref is the name a page list uses for the entry.
func (s FieldSpec) ref() string {
	kind := normalizeKind(s.Kind)
	switch {
	case kind == KindBox:
		return s.Label
	case s.Name != "":
		return s.Name
	case kind == KindID:
		return "id"
	case kind == KindBelongsTo:
		return s.Relation
	case s.Column != "":
		return s.Column
	default:
		return fields.ColumnFromLabel(s.Label)
	}
}

// column is the table column the field needs when columns are derived,
// or "" for a box.
func (s FieldSpec) column() string {
	switch normalizeKind(s.Kind) {
	case KindBox:
		return ""
	case KindID:
		return "id"
	case KindBelongsTo:
		return s.Relation + "_id"
	}
	if s.Column != "" {
		return s.Column
	}
	return fields.ColumnFromLabel(s.Label)
}

func normalizeKind(kind string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kind)), "-", "_")
}
