package fields

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"mercator-hq/atrium/pkg/panel"
)

// Field kinds.
const (
	KindID        = "ID"
	KindText      = "Text"
	KindNumber    = "Number"
	KindDate      = "Date"
	KindSwitcher  = "Switcher"
	KindSelect    = "Select"
	KindImage     = "Image"
	KindBelongsTo = "BelongsTo"
	KindHasMany   = "HasMany"
	KindComputed  = "Computed"
)

// DateLayout is the default display layout of Date fields.
const DateLayout = "2006-01-02"

// ID creates the primary key field ("ID", column "id"). It is hidden on
// forms.
func ID(opts ...Option) *Field {
	return New(KindID, "ID", "id", append([]Option{HideOnForm()}, opts...)...)
}

// Text creates a plain text field. An empty column is derived from the
// label.
func Text(label, column string, opts ...Option) *Field {
	return New(KindText, label, column, opts...)
}

// Number creates a numeric field. String values read from the source are
// parsed in raw mode.
func Number(label, column string, opts ...Option) *Field {
	f := New(KindNumber, label, column, opts...)
	f.rawFrom = func(f *Field) any {
		if s, ok := f.value.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}
		return f.value
	}
	return f
}

// Date creates a date field. Raw mode yields a time.Time when the stored
// value can be parsed; Preview uses DateLayout.
func Date(label, column string, opts ...Option) *Field {
	f := New(KindDate, label, column, opts...)
	f.rawFrom = func(f *Field) any {
		if t, ok := parseTime(f.value); ok {
			return t
		}
		return f.value
	}
	if f.format == nil {
		f.format = func(v any) string {
			if t, ok := v.(time.Time); ok {
				return t.Format(DateLayout)
			}
			return formatValue(v)
		}
	}
	return f
}

// Switcher creates a boolean toggle. Raw mode yields a bool.
func Switcher(label, column string, opts ...Option) *Field {
	f := New(KindSwitcher, label, column, opts...)
	f.rawFrom = func(f *Field) any { return truthy(f.value) }
	return f
}

// Select creates a choice field. Raw mode yields the stored key; Preview
// yields the option label.
func Select(label, column string, options map[string]string, opts ...Option) *Field {
	f := New(KindSelect, label, column, opts...)
	f.options = options
	if f.format == nil {
		f.format = func(v any) string {
			key := formatValue(v)
			if l, ok := f.options[key]; ok {
				return l
			}
			return key
		}
	}
	return f
}

// Image creates an image path field. Images cannot be used as filters.
func Image(label, column string, opts ...Option) *Field {
	f := New(KindImage, label, column, opts...)
	f.filterable = false
	return f
}

// BelongsTo creates a to-one relation field. The field is named after the
// relation; raw mode yields the related record's display column
// (relation "category" with display "name" reads "category.name").
func BelongsTo(label, relation, display, resource string, opts ...Option) *Field {
	f := New(KindBelongsTo, label, relation, opts...)
	f.relation = relation
	f.display = display
	f.resource = resource
	f.rawFrom = func(f *Field) any {
		if f.valueFrom != nil {
			return f.value
		}
		if f.display != "" {
			if v, ok := f.record.Get(f.relation + "." + f.display); ok {
				return v
			}
		}
		if v, ok := f.record.Get(f.relation + "_id"); ok {
			return v
		}
		return f.value
	}
	return f
}

// HasMany creates a to-many relation field rendering the nested
// declaration for each related record. It is hidden on exports and cannot
// be used as a filter.
func HasMany(label, relation, resource string, children []Element, opts ...Option) *Field {
	f := New(KindHasMany, label, relation, append([]Option{HideOnExport(), HideOnImport()}, opts...)...)
	f.relation = relation
	f.resource = resource
	f.children = children
	f.filterable = false
	if f.format == nil {
		f.format = func(v any) string {
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
				return strconv.Itoa(rv.Len())
			}
			return formatValue(v)
		}
	}
	return f
}

// Computed creates a read-only field whose value is derived from the
// record and its position. It is hidden on forms and cannot be used as a
// filter.
func Computed(label, name string, fn func(rec panel.Record, index int) any, opts ...Option) *Field {
	f := New(KindComputed, label, name, append([]Option{HideOnForm(), HideOnImport()}, opts...)...)
	f.valueFrom = fn
	f.filterable = false
	return f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

func parseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	case []byte:
		return parseTime(string(val))
	}
	return time.Time{}, false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return val != "" && val != "0"
		}
		return b
	case []byte:
		return truthy(string(val))
	default:
		n, err := convertToFloat64(val)
		if err != nil {
			return fmt.Sprint(val) != ""
		}
		return n != 0
	}
}
