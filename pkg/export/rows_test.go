package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/atrium/internal/fixtures"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/queue"
	"mercator-hq/atrium/pkg/resource"
)

// TestRows_Restartable tests that every range opens a fresh cursor and
// that stopping early is allowed.
func TestRows_Restartable(t *testing.T) {
	r := itemsResource(4)
	rows := Rows(context.Background(), r)

	count := func() int {
		n := 0
		for _, err := range rows {
			if err != nil {
				t.Fatalf("Rows() yielded error: %v", err)
			}
			n++
		}
		return n
	}

	if got := count(); got != 4 {
		t.Errorf("first pass = %d rows, want 4", got)
	}
	if got := count(); got != 4 {
		t.Errorf("second pass = %d rows, want 4", got)
	}

	for range rows {
		break
	}
	if got := r.Source.Opens(); got != 3 {
		t.Errorf("Opens() = %d, want 3", got)
	}
}

// TestRows_IndexAndRawValues tests that fields see the record index and
// are read in raw mode.
func TestRows_IndexAndRawValues(t *testing.T) {
	r := fixtures.NewResource("items", []fields.Element{
		fields.ID(),
		fields.Computed("Position", "position", func(_ panel.Record, index int) any { return index }),
		fields.Select("Status", "status", map[string]string{"d": "Draft", "p": "Published"}),
		fields.BelongsTo("Category", "category", "name", "categories"),
	},
		panel.Record{"id": 7, "status": "d", "category": panel.Record{"name": "Books"}},
		panel.Record{"id": 9, "status": "p", "category": panel.Record{"name": "Games"}},
	)

	var got []Row
	for row, err := range Rows(context.Background(), r) {
		if err != nil {
			t.Fatalf("Rows() yielded error: %v", err)
		}
		got = append(got, row)
	}

	want := []Row{
		{{"ID", 7}, {"Position", 0}, {"Status", "d"}, {"Category", "Books"}},
		{{"ID", 9}, {"Position", 1}, {"Status", "p"}, {"Category", "Games"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if v, ok := got[1].Get("Category"); !ok || v != "Games" {
		t.Errorf("Get(Category) = %v, %v", v, ok)
	}
	if diff := cmp.Diff([]string{"ID", "Position", "Status", "Category"}, got[0].Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
}

// TestRows_QueryError tests that query failures end the sequence.
func TestRows_QueryError(t *testing.T) {
	r := itemsResource(2)
	r.QueryErr = errors.New("table missing")

	n := 0
	var last error
	for _, err := range Rows(context.Background(), r) {
		n++
		last = err
	}
	if n != 1 || last == nil {
		t.Errorf("Rows() yielded %d values, last error %v", n, last)
	}
}

// TestRows_Cancelled tests that a cancelled context stops iteration.
func TestRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var last error
	for _, err := range Rows(ctx, itemsResource(3)) {
		last = err
	}
	if !errors.Is(last, context.Canceled) {
		t.Errorf("last error = %v, want context.Canceled", last)
	}
}

// TestProcessor_HandleTask tests the queued path end to end: dispatch,
// worker, file and notification.
func TestProcessor_HandleTask(t *testing.T) {
	s := newTestStorage(t)
	reg, err := resource.NewRegistry(itemsResource(3))
	if err != nil {
		t.Fatal(err)
	}
	inbox := notify.NewInbox(0)
	p := NewProcessor(s, WithRegistry(reg), WithNotifier(inbox))

	backend := queue.NewMemoryBackend()
	h := NewHandler("", Resource(itemsResource(3)), CSV(), Dir("exports"), NotifyUsers("admin"),
		WithStorage(s), WithDispatcher(queue.NewDispatcher(backend)))

	res, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}

	w := queue.NewWorker(backend, nil)
	w.Handle(JobKind, p.HandleTask)
	if ok, err := w.ProcessOne(context.Background()); !ok || err != nil {
		t.Fatalf("ProcessOne() = %v, %v", ok, err)
	}

	if diff := cmp.Diff(expectedRows(3), readCSV(t, res.Path, ',')); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	list := inbox.List("admin")
	if len(list) != 1 || list[0].Message.Link != testURL+"/exports/"+filepath.Base(res.Path) {
		t.Errorf("notifications = %+v", list)
	}

	task, status, _ := backend.Task(res.TaskID)
	if status != queue.StatusDone {
		t.Errorf("task %s status = %s, want done", task.ID, status)
	}
}

// TestProcessor_HandleTask_Permanent tests that unknown resources are not
// retried.
func TestProcessor_HandleTask_Permanent(t *testing.T) {
	s := newTestStorage(t)
	reg, _ := resource.NewRegistry()
	p := NewProcessor(s, WithRegistry(reg))

	path := filepath.Join(t.TempDir(), "out.csv")
	err := p.HandleTask(context.Background(), queue.Task{Kind: JobKind, Payload: []byte(`{"resource":"items","path":"` + path + `"}`)})
	if !queue.IsPermanent(err) {
		t.Errorf("HandleTask() error = %v, want permanent", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file must be written for an unknown resource")
	}
}
