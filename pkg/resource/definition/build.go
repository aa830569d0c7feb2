package definition

import (
	"fmt"
	"strings"

	"mercator-hq/atrium/pkg/fields"
)

// buildElements turns specs into a fresh declaration.
func buildElements(specs []FieldSpec) ([]fields.Element, error) {
	out := make([]fields.Element, 0, len(specs))
	for i, s := range specs {
		el, err := buildElement(s)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, s.ref(), err)
		}
		out = append(out, el)
	}
	return out, nil
}

func buildElement(s FieldSpec) (fields.Element, error) {
	kind := normalizeKind(s.Kind)
	if kind == KindBox {
		if s.Label == "" {
			return nil, fmt.Errorf("box requires a label")
		}
		children, err := buildElements(s.Fields)
		if err != nil {
			return nil, err
		}
		return fields.NewBox(s.Label, children...), nil
	}
	if len(s.Fields) > 0 {
		return nil, fmt.Errorf("only boxes may contain fields")
	}

	opts, err := options(s)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindID:
		return fields.ID(opts...), nil
	case KindText:
		return fields.Text(s.Label, s.Column, opts...), nil
	case KindNumber:
		return fields.Number(s.Label, s.Column, opts...), nil
	case KindDate:
		return fields.Date(s.Label, s.Column, opts...), nil
	case KindSwitcher:
		return fields.Switcher(s.Label, s.Column, opts...), nil
	case KindSelect:
		if len(s.Options) == 0 {
			return nil, fmt.Errorf("select requires options")
		}
		return fields.Select(s.Label, s.Column, s.Options, opts...), nil
	case KindImage:
		return fields.Image(s.Label, s.Column, opts...), nil
	case KindBelongsTo:
		if s.Relation == "" {
			return nil, fmt.Errorf("belongs_to requires a relation")
		}
		return fields.BelongsTo(s.Label, s.Relation, s.Display, s.Resource, opts...), nil
	case "":
		return nil, fmt.Errorf("missing kind")
	default:
		return nil, fmt.Errorf("unknown kind %q", s.Kind)
	}
}

func options(s FieldSpec) ([]fields.Option, error) {
	var opts []fields.Option

	if s.Name != "" {
		opts = append(opts, fields.Name(s.Name))
	}
	if s.Sortable {
		opts = append(opts, fields.Sortable())
	}
	if s.Outside {
		opts = append(opts, fields.Outside())
	}

	for _, page := range s.HideOn {
		switch strings.ToLower(page) {
		case "index":
			opts = append(opts, fields.HideOnIndex())
		case "detail":
			opts = append(opts, fields.HideOnDetail())
		case "form":
			opts = append(opts, fields.HideOnForm())
		case "export":
			opts = append(opts, fields.HideOnExport())
		case "import":
			opts = append(opts, fields.HideOnImport())
		default:
			return nil, fmt.Errorf("unknown page %q in hide_on", page)
		}
	}

	// Applied after hide_on so they win.
	if s.ShowOnExport {
		opts = append(opts, fields.ShowOnExport())
	}
	if s.OnlyExport {
		opts = append(opts, fields.OnlyExport())
	}

	if len(s.ShowWhen) > 0 {
		column, ok := s.ShowWhen[0].(string)
		if !ok || column == "" {
			return nil, fmt.Errorf("show_when must start with a column name")
		}
		opts = append(opts, fields.WhenShown(column, s.ShowWhen[1:]...))
	}

	return opts, nil
}

// pick returns the entries of specs named by refs, in refs order. A name
// may match a top-level entry or a field nested in a box.
func pick(specs []FieldSpec, refs []string) ([]FieldSpec, error) {
	out := make([]FieldSpec, 0, len(refs))
	for _, ref := range refs {
		s, ok := find(specs, ref)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", ref)
		}
		out = append(out, s)
	}
	return out, nil
}

func find(specs []FieldSpec, ref string) (FieldSpec, bool) {
	for _, s := range specs {
		if s.ref() == ref {
			return s, true
		}
	}
	for _, s := range specs {
		if normalizeKind(s.Kind) == KindBox {
			if child, ok := find(s.Fields, ref); ok {
				return child, true
			}
		}
	}
	return FieldSpec{}, false
}

// columns lists the table columns read by specs, in declaration order.
func columns(specs []FieldSpec) []string {
	var out []string
	seen := map[string]bool{}
	var walk func([]FieldSpec)
	walk = func(specs []FieldSpec) {
		for _, s := range specs {
			if normalizeKind(s.Kind) == KindBox {
				walk(s.Fields)
				continue
			}
			if c := s.column(); c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	walk(specs)
	return out
}
