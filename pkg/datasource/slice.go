package datasource

import (
	"context"
	"fmt"
	"sync/atomic"

	"mercator-hq/atrium/pkg/panel"
)

// Slice is an in-memory Queryable. Equality filters from the context
// query parameters ("filters[column]=value") are applied while iterating.
type Slice struct {
	records []panel.Record
	opens   atomic.Int64
}

// NewSlice creates an in-memory source over records. The slice is not
// copied; callers must not mutate it while cursors are open.
func NewSlice(records ...panel.Record) *Slice {
	return &Slice{records: records}
}

// Cursor starts a new iteration from the first record.
func (s *Slice) Cursor(ctx context.Context) (panel.Cursor, error) {
	s.opens.Add(1)
	return &sliceCursor{
		ctx:     ctx,
		records: s.records,
		filters: Filters(panel.QueryParams(ctx)),
		pos:     -1,
	}, nil
}

// Opens returns how many cursors have been opened.
func (s *Slice) Opens() int {
	return int(s.opens.Load())
}

type sliceCursor struct {
	ctx     context.Context
	records []panel.Record
	filters map[string]string
	pos     int
	err     error
	closed  bool
}

func (c *sliceCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	for {
		if err := c.ctx.Err(); err != nil {
			c.err = err
			return false
		}
		c.pos++
		if c.pos >= len(c.records) {
			return false
		}
		if c.matches(c.records[c.pos]) {
			return true
		}
	}
}

func (c *sliceCursor) matches(rec panel.Record) bool {
	for col, want := range c.filters {
		v, ok := rec.Get(col)
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func (c *sliceCursor) Record() panel.Record {
	if c.pos < 0 || c.pos >= len(c.records) {
		return nil
	}
	return c.records[c.pos]
}

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}
