package export

import (
	"context"
	"iter"

	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
)

// Cell is one labeled value of a projected row.
type Cell struct {
	Label string
	Value any
}

// Row is an ordered label to raw value mapping.
type Row []Cell

// Labels returns the cell labels in order.
func (r Row) Labels() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Label
	}
	return out
}

// Values returns the cell values in order.
func (r Row) Values() []any {
	out := make([]any, len(r))
	for i, c := range r {
		out[i] = c.Value
	}
	return out
}

// Get returns the value of the first cell with the given label.
func (r Row) Get(label string) (any, bool) {
	for _, c := range r {
		if c.Label == label {
			return c.Value, true
		}
	}
	return nil, false
}

// Project binds rec to every field of set and reads each field in raw
// mode.
func Project(set *fields.Set, rec panel.Record, index int) Row {
	all := set.All()
	row := make(Row, 0, len(all))
	for _, f := range all {
		f.Fill(rec, index)
		row = append(row, Cell{Label: f.Label(), Value: f.RawValue()})
	}
	return row
}

// Rows returns the lazy sequence of export rows of r. Each range opens a
// fresh cursor, so the sequence can be iterated again from the start;
// stopping early closes the cursor. Export fields are resolved for every
// record. A query or cursor failure is yielded as the final error.
func Rows(ctx context.Context, r resource.Resource) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		q, err := r.Query(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		cur, err := q.Cursor(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cur.Close()

		index := 0
		for cur.Next() {
			set, err := resource.ResolveExportFields(r)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(Project(set, cur.Record(), index), nil) {
				return
			}
			index++
		}

		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}
