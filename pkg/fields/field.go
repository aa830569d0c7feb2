package fields

import (
	"fmt"
	"strings"
	"unicode"

	"mercator-hq/atrium/pkg/panel"
)

// Element is an item of a field declaration: a Field or a layout Box.
type Element interface {
	// Label returns the display label.
	Label() string

	element()
}

// visibility flags
const (
	showIndex = 1 << iota
	showDetail
	showForm
	showExport
	showImport

	showAll = showIndex | showDetail | showForm | showExport | showImport
)

// Field is a single column descriptor.
//
// A Field is configured once at construction and then bound to records
// with Fill. It is not safe for concurrent use; resolve a fresh set per
// request or per row instead of sharing one.
type Field struct {
	kind     string
	label    string
	name     string
	column   string
	group    string
	shownOn  int
	outside  bool
	sortable bool

	// filterable is false for types that cannot be used as filters.
	filterable bool

	condition *Condition

	// err holds a deferred construction error (see WhenShown).
	err error

	valueFrom func(rec panel.Record, index int) any
	rawFrom   func(f *Field) any
	format    func(v any) string

	// relation fields
	relation string
	display  string
	resource string
	children []Element

	// select fields
	options map[string]string

	// bound state
	record panel.Record
	index  int
	value  any
	filled bool
}

func (*Field) element() {}

// New creates a field of the given kind. Typed constructors (Text, ID,
// BelongsTo, ...) should be preferred; New is the extension point for
// custom kinds built from options.
func New(kind, label, column string, opts ...Option) *Field {
	if column == "" {
		column = ColumnFromLabel(label)
	}

	f := &Field{
		kind:       kind,
		label:      label,
		name:       column,
		column:     column,
		shownOn:    showAll,
		filterable: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Kind returns the field type name ("Text", "BelongsTo", ...).
func (f *Field) Kind() string { return f.kind }

// Label returns the display label.
func (f *Field) Label() string { return f.label }

// Name returns the parameter name. It starts as the column and may be
// namespaced by Set.WrapNames.
func (f *Field) Name() string { return f.name }

// Column returns the record column the field reads.
func (f *Field) Column() string { return f.column }

// Group returns the label of the layout box the field was declared in,
// when the set was flattened with wrappers preserved.
func (f *Field) Group() string { return f.group }

// IsOutside reports whether the field is rendered outside the main form
// (the detail page sidebar).
func (f *Field) IsOutside() bool { return f.outside }

// IsSortable reports whether the index page may sort by this field.
func (f *Field) IsSortable() bool { return f.sortable }

// IsFilterable reports whether the field type can be used as a filter.
func (f *Field) IsFilterable() bool { return f.filterable }

// Relation returns the relation name for relation fields.
func (f *Field) Relation() string { return f.relation }

// RelatedResource returns the URI key of the related resource, if any.
func (f *Field) RelatedResource() string { return f.resource }

// Children returns the nested declaration of a HasMany field.
func (f *Field) Children() []Element { return f.children }

// Options returns the choices of a Select field.
func (f *Field) Options() map[string]string { return f.options }

// Condition returns the conditional visibility rule, if one is set.
func (f *Field) Condition() (Condition, bool) {
	if f.condition == nil {
		return Condition{}, false
	}
	return *f.condition, true
}

// Err returns a deferred construction error.
func (f *Field) Err() error { return f.err }

// VisibleOn reports whether the field appears on the given page.
func (f *Field) VisibleOn(page panel.PageType) bool {
	switch page {
	case panel.PageIndex:
		return f.shownOn&showIndex != 0
	case panel.PageDetail:
		return f.shownOn&showDetail != 0
	case panel.PageForm:
		return f.shownOn&showForm != 0
	case panel.PageExport:
		return f.shownOn&showExport != 0
	case panel.PageImport:
		return f.shownOn&showImport != 0
	case panel.PageFilters:
		return f.filterable
	default:
		return false
	}
}

// Fill binds the field to a record and its position within the current
// page or cursor.
func (f *Field) Fill(rec panel.Record, index int) {
	f.record = rec
	f.index = index
	f.filled = true

	if f.valueFrom != nil {
		f.value = f.valueFrom(rec, index)
		return
	}

	f.value, _ = rec.Get(f.column)
}

// Record returns the bound record.
func (f *Field) Record() panel.Record { return f.record }

// Index returns the position of the bound record.
func (f *Field) Index() int { return f.index }

// Value returns the value read from the bound record.
func (f *Field) Value() any { return f.value }

// RawValue returns the closest-to-source representation of the bound
// value, bypassing display formatting. This is what exports write.
func (f *Field) RawValue() any {
	if !f.filled {
		return nil
	}
	if f.rawFrom != nil {
		return f.rawFrom(f)
	}
	return f.value
}

// Preview returns the display string of the bound value.
func (f *Field) Preview() string {
	v := f.RawValue()
	if f.format != nil {
		return f.format(v)
	}
	return formatValue(v)
}

// String implements fmt.Stringer.
func (f *Field) String() string {
	return fmt.Sprintf("%s(%s)", f.kind, f.name)
}

func (f *Field) clone() *Field {
	c := *f
	return &c
}

// ColumnFromLabel derives a snake_case column name from a label
// ("Public at" -> "public_at").
func ColumnFromLabel(label string) string {
	var b strings.Builder
	prevUnderscore, prevLower := true, false

	for _, r := range strings.TrimSpace(label) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLower = false
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// formatValue renders a value for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
