package fields

import (
	"errors"

	"mercator-hq/atrium/pkg/panel"
)

// Set is an ordered field declaration. Boxes are kept as a tree until the
// set is flattened with OnlyFields. Every method returns a new Set; the
// original is left untouched.
type Set struct {
	elements []Element
}

// Make validates a declaration and returns it as a Set. It reports
// deferred construction errors (see WhenShown) and duplicate field names.
func Make(elements ...Element) (*Set, error) {
	s := &Set{elements: elements}

	seen := make(map[string]struct{})
	var errs []error
	for _, f := range s.All() {
		if f == nil {
			return nil, panel.NewConfigurationError("fields", "nil field in declaration")
		}
		if f.err != nil {
			errs = append(errs, f.err)
		}
		if _, dup := seen[f.name]; dup {
			errs = append(errs, panel.NewConfigurationError("fields", "duplicate field name %q", f.name))
		}
		seen[f.name] = struct{}{}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return s, nil
}

// MustMake is like Make but panics on error. It is meant for static
// declarations.
func MustMake(elements ...Element) *Set {
	s, err := Make(elements...)
	if err != nil {
		panic(err)
	}
	return s
}

// Elements returns the top-level elements.
func (s *Set) Elements() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// Len returns the number of fields, boxes excluded.
func (s *Set) Len() int {
	return len(s.All())
}

// IsEmpty reports whether the set holds no fields.
func (s *Set) IsEmpty() bool {
	return s == nil || s.Len() == 0
}

// All returns every field in declaration order with boxes flattened.
// Fields nested in HasMany relations are not included.
func (s *Set) All() []*Field {
	if s == nil {
		return nil
	}
	var out []*Field
	walk(s.elements, "", func(f *Field, _ string) {
		out = append(out, f)
	})
	return out
}

// Names returns the field names in order.
func (s *Set) Names() []string {
	var out []string
	for _, f := range s.All() {
		out = append(out, f.name)
	}
	return out
}

// Labels returns the field labels in order.
func (s *Set) Labels() []string {
	var out []string
	for _, f := range s.All() {
		out = append(out, f.label)
	}
	return out
}

// Find returns the field with the given name.
func (s *Set) Find(name string) (*Field, bool) {
	for _, f := range s.All() {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// OnlyFields flattens layout boxes. With withWrappers, each field
// remembers the label of the innermost box it was declared in.
func (s *Set) OnlyFields(withWrappers bool) *Set {
	var out []Element
	walk(s.elements, "", func(f *Field, group string) {
		if withWrappers && group != "" {
			f = f.clone()
			f.group = group
		}
		out = append(out, f)
	})
	return &Set{elements: out}
}

// IndexFields keeps fields shown on the index page.
func (s *Set) IndexFields() *Set {
	return s.filter(func(f *Field) bool { return f.VisibleOn(panel.PageIndex) })
}

// DetailFields keeps fields shown on the detail page. Outside fields are
// dropped unless withOutside is set; onlyOutside keeps nothing else.
func (s *Set) DetailFields(withOutside, onlyOutside bool) *Set {
	return s.filter(func(f *Field) bool {
		if !f.VisibleOn(panel.PageDetail) {
			return false
		}
		if onlyOutside {
			return f.outside
		}
		return withOutside || !f.outside
	})
}

// FormFields keeps fields shown on the form page, preserving the box
// tree. Outside fields are dropped unless withOutside is set.
func (s *Set) FormFields(withOutside bool) *Set {
	return s.filter(func(f *Field) bool {
		return f.VisibleOn(panel.PageForm) && (withOutside || !f.outside)
	})
}

// ExportFields keeps fields shown in export files.
func (s *Set) ExportFields() *Set {
	return s.filter(func(f *Field) bool { return f.VisibleOn(panel.PageExport) })
}

// ImportFields keeps fields accepted from import files.
func (s *Set) ImportFields() *Set {
	return s.filter(func(f *Field) bool { return f.VisibleOn(panel.PageImport) })
}

// WithoutOutside drops outside fields.
func (s *Set) WithoutOutside() *Set {
	return s.filter(func(f *Field) bool { return !f.outside })
}

// OnlyOutside keeps outside fields only.
func (s *Set) OnlyOutside() *Set {
	return s.filter(func(f *Field) bool { return f.outside })
}

// WrapNames namespaces every field name under prefix: "name" becomes
// "prefix[name]".
func (s *Set) WrapNames(prefix string) *Set {
	return &Set{elements: mapTree(s.elements, func(f *Field) *Field {
		c := f.clone()
		c.name = prefix + "[" + f.name + "]"
		if c.condition != nil {
			cond := *c.condition
			cond.ShowField = c.name
			c.condition = &cond
		}
		return c
	})}
}

// Fill binds every field to the record.
func (s *Set) Fill(rec panel.Record, index int) {
	for _, f := range s.All() {
		f.Fill(rec, index)
	}
}

// Shown keeps fields whose visibility condition holds for the given form
// values. Fields without a condition are always kept.
func (s *Set) Shown(values map[string]any) (*Set, error) {
	var firstErr error
	out := s.filter(func(f *Field) bool {
		if f.condition == nil {
			return true
		}
		ok, err := f.condition.Matches(values)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return ok
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (s *Set) filter(keep func(*Field) bool) *Set {
	if s == nil {
		return &Set{}
	}
	return &Set{elements: filterTree(s.elements, keep)}
}

func filterTree(elements []Element, keep func(*Field) bool) []Element {
	var out []Element
	for _, el := range elements {
		switch e := el.(type) {
		case *Field:
			if keep(e) {
				out = append(out, e)
			}
		case *Box:
			if children := filterTree(e.elements, keep); len(children) > 0 {
				out = append(out, NewBox(e.label, children...))
			}
		}
	}
	return out
}

func mapTree(elements []Element, fn func(*Field) *Field) []Element {
	out := make([]Element, 0, len(elements))
	for _, el := range elements {
		switch e := el.(type) {
		case *Field:
			out = append(out, fn(e))
		case *Box:
			out = append(out, NewBox(e.label, mapTree(e.elements, fn)...))
		}
	}
	return out
}

func walk(elements []Element, group string, fn func(f *Field, group string)) {
	for _, el := range elements {
		switch e := el.(type) {
		case *Field:
			fn(e, group)
		case *Box:
			walk(e.elements, e.label, fn)
		}
	}
}
