// Package fields provides field descriptors, layout wrappers, conditional
// visibility rules and field sets for atrium resources.
//
// # Field Descriptors
//
// A Field describes one column: its label, the record column it reads,
// the pages it appears on and how its value is rendered. Fields are built
// with typed constructors and functional options:
//
//	fields.ID()
//	fields.Text("Name title", "name", fields.Sortable())
//	fields.BelongsTo("Category title", "category", "name", "categories")
//	fields.Switcher("Active", "active", fields.HideOnExport())
//
// Fields are cheap to construct. Resources build a fresh list on every
// resolution; a field is bound to one record at a time through Fill.
//
// # Raw Mode
//
// RawValue returns the value closest to the source data and is what the
// export pipeline writes. Preview returns the display string used by
// listing pages.
//
// # Conditional Visibility
//
// ShowWhen validates a visibility rule and attaches it to its owner field:
//
//	cond, err := fields.ShowWhen(ageField, "status", "active")     // operator "="
//	cond, err := fields.ShowWhen(ageField, "age", "in", []int{1, 2}) // array operator
//
// The rendering layer reads the resulting Condition to toggle the field
// on the client.
//
// # Field Sets
//
// Make validates a declaration and returns a Set. Set methods filter by
// page, flatten layout boxes and namespace names; every method returns a
// new Set and keeps declaration order.
package fields
