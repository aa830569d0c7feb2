package fields

import (
	"mercator-hq/atrium/pkg/panel"
)

// Option configures a Field at construction.
type Option func(*Field)

// Sortable marks the field as sortable on the index page.
func Sortable() Option {
	return func(f *Field) { f.sortable = true }
}

// HideOnIndex removes the field from the index page.
func HideOnIndex() Option {
	return func(f *Field) { f.shownOn &^= showIndex }
}

// HideOnDetail removes the field from the detail page.
func HideOnDetail() Option {
	return func(f *Field) { f.shownOn &^= showDetail }
}

// HideOnForm removes the field from the form page.
func HideOnForm() Option {
	return func(f *Field) { f.shownOn &^= showForm }
}

// HideOnExport removes the field from export files.
func HideOnExport() Option {
	return func(f *Field) { f.shownOn &^= showExport }
}

// HideOnImport removes the field from import files.
func HideOnImport() Option {
	return func(f *Field) { f.shownOn &^= showImport }
}

// ShowOnExport adds the field back to export files.
func ShowOnExport() Option {
	return func(f *Field) { f.shownOn |= showExport }
}

// OnlyExport shows the field in export and import files only.
func OnlyExport() Option {
	return func(f *Field) { f.shownOn = showExport | showImport }
}

// Outside renders the field outside the main form.
func Outside() Option {
	return func(f *Field) { f.outside = true }
}

// Name overrides the parameter name (defaults to the column).
func Name(name string) Option {
	return func(f *Field) { f.name = name }
}

// ValueFrom computes the field value from the record instead of reading
// the column.
func ValueFrom(fn func(rec panel.Record) any) Option {
	return func(f *Field) {
		f.valueFrom = func(rec panel.Record, _ int) any { return fn(rec) }
	}
}

// Format sets the display formatter used by Preview. RawValue is not
// affected.
func Format(fn func(v any) string) Option {
	return func(f *Field) { f.format = fn }
}

// WhenShown attaches a conditional visibility rule. It accepts the same
// arguments as ShowWhen; a malformed rule is reported by Make.
func WhenShown(column string, args ...any) Option {
	return func(f *Field) {
		if _, err := ShowWhen(f, column, args...); err != nil && f.err == nil {
			f.err = err
		}
	}
}
