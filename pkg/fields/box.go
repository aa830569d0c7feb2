package fields

// Box is a labeled layout wrapper grouping other elements. It has no value
// of its own.
type Box struct {
	label    string
	elements []Element
}

func (*Box) element() {}

// NewBox creates a layout box.
func NewBox(label string, elements ...Element) *Box {
	return &Box{label: label, elements: elements}
}

// Label returns the box title.
func (b *Box) Label() string { return b.label }

// Elements returns the wrapped elements in declaration order.
func (b *Box) Elements() []Element { return b.elements }
