package export

import (
	"context"
	"encoding/csv"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"mercator-hq/atrium/internal/fixtures"
	"mercator-hq/atrium/pkg/fields"
	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/storage"
)

const testURL = "https://admin.test/storage"

func newTestStorage(t *testing.T) *storage.Local {
	t.Helper()
	s, err := storage.NewLocal(map[string]storage.Disk{
		"public": {Root: t.TempDir(), URL: testURL},
	})
	if err != nil {
		t.Fatalf("NewLocal() failed: %v", err)
	}
	return s
}

func itemsResource(n int) *fixtures.Resource {
	return fixtures.NewResource("items", []fields.Element{
		fields.ID(),
		fields.Text("Name", "name"),
	}, fixtures.ItemRecords(n)...)
}

func readCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	return rows
}

func readXLSX(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	return rows
}

func expectedRows(n int) [][]string {
	rows := [][]string{{"ID", "Name"}}
	for i := 1; i <= n; i++ {
		rows = append(rows, []string{strconv.Itoa(i), "Item " + strconv.Itoa(i)})
	}
	return rows
}

// TestProcess_CSVDelimiter tests a CSV export with a custom delimiter.
func TestProcess_CSVDelimiter(t *testing.T) {
	s := newTestStorage(t)
	h := NewHandler("", Resource(itemsResource(3)), CSV(), Delimiter(";"),
		WithStorage(s), WithProcessor(NewProcessor(s)))

	res, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if res.Queued {
		t.Fatal("expected synchronous export")
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"ID;Name", "1;Item 1", "2;Item 2", "3;Item 3"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("csv lines mismatch (-want +got):\n%s", diff)
	}
}

// TestProcess_RoundTrip tests that both formats preserve every row in
// order, across periodic flushes.
func TestProcess_RoundTrip(t *testing.T) {
	const n = 250

	tests := []struct {
		name string
		opts []Option
		read func(t *testing.T, path string) [][]string
	}{
		{
			name: "csv",
			opts: []Option{CSV()},
			read: func(t *testing.T, path string) [][]string { return readCSV(t, path, ',') },
		},
		{
			name: "xlsx",
			read: readXLSX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStorage(t)
			opts := append([]Option{Resource(itemsResource(n)), WithStorage(s), WithProcessor(NewProcessor(s))}, tt.opts...)

			res, err := NewHandler("", opts...).Handle(context.Background(), nil)
			if err != nil {
				t.Fatalf("Handle() failed: %v", err)
			}
			if got := FormatFor(res.Path); string(got) != tt.name {
				t.Errorf("FormatFor(%s) = %s", res.Path, got)
			}

			if diff := cmp.Diff(expectedRows(n), tt.read(t, res.Path)); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestProcess_EmptyExport tests that an empty query still writes the
// header row.
func TestProcess_EmptyExport(t *testing.T) {
	s := newTestStorage(t)
	h := NewHandler("", Resource(itemsResource(0)), CSV(), WithStorage(s), WithProcessor(NewProcessor(s)))

	res, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if diff := cmp.Diff([][]string{{"ID", "Name"}}, readCSV(t, res.Path, ',')); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestProcess_AppliesQueryFilters tests that the request filters reach
// the resource query.
func TestProcess_AppliesQueryFilters(t *testing.T) {
	s := newTestStorage(t)
	h := NewHandler("", Resource(itemsResource(5)), CSV(), WithStorage(s), WithProcessor(NewProcessor(s)))

	params := url.Values{"filters[name]": {"Item 4"}, "page": {"2"}}
	res, err := h.Handle(context.Background(), params)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}

	want := [][]string{{"ID", "Name"}, {"4", "Item 4"}}
	if diff := cmp.Diff(want, readCSV(t, res.Path, ',')); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestProcess_Notification tests the completion message and its link.
func TestProcess_Notification(t *testing.T) {
	s := newTestStorage(t)
	inbox := notify.NewInbox(0)
	p := NewProcessor(s, WithNotifier(inbox))

	h := NewHandler("", Resource(itemsResource(2)), CSV(), Dir("/exports/"), Filename("report"),
		NotifyUsers("admin", "auditor"), WithStorage(s), WithProcessor(p))

	res, err := h.Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if filepath.Base(res.Path) != "report.csv" {
		t.Errorf("path = %s, want report.csv", res.Path)
	}

	want := notify.Message{Text: CompletedText, Link: testURL + "/exports/report.csv", Label: DownloadLabel}
	for _, user := range []string{"admin", "auditor"} {
		list := inbox.List(user)
		if len(list) != 1 {
			t.Fatalf("%s has %d notifications, want 1", user, len(list))
		}
		if diff := cmp.Diff(want, list[0].Message); diff != "" {
			t.Errorf("message mismatch (-want +got):\n%s", diff)
		}
	}
}

// TestProcess_NotifyUsersFunc tests recipients computed from the handler.
func TestProcess_NotifyUsersFunc(t *testing.T) {
	s := newTestStorage(t)
	inbox := notify.NewInbox(0)

	h := NewHandler("Monthly", Resource(itemsResource(1)), CSV(), WithStorage(s),
		WithProcessor(NewProcessor(s, WithNotifier(inbox))),
		NotifyUsersFunc(func(h *Handler) []string { return []string{h.Label() + "-owner"} }),
	)
	if _, err := h.Handle(context.Background(), nil); err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if got := len(inbox.List("Monthly-owner")); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
}

// TestProcess_UnsupportedValue tests that values without a tabular form
// fail with a writer error.
func TestProcess_UnsupportedValue(t *testing.T) {
	s := newTestStorage(t)
	r := fixtures.NewResource("items", []fields.Element{
		fields.ID(),
		fields.Computed("Callback", "callback", func(panel.Record, int) any { return func() {} }),
	}, fixtures.ItemRecords(1)...)

	_, err := NewHandler("", Resource(r), CSV(), WithStorage(s), WithProcessor(NewProcessor(s))).
		Handle(context.Background(), nil)

	var we *panel.WriterError
	if !errors.As(err, &we) || we.Kind != panel.WriterUnsupported {
		t.Fatalf("Handle() error = %v, want unsupported writer error", err)
	}
}

// TestProcess_StructuredValues tests JSON encoding of nested values.
func TestProcess_StructuredValues(t *testing.T) {
	s := newTestStorage(t)
	r := fixtures.NewResource("items", []fields.Element{
		fields.Computed("Tags", "tags", func(panel.Record, int) any { return []string{"a", "b"} }),
		fields.Computed("Missing", "missing", func(panel.Record, int) any { return nil }),
	}, fixtures.ItemRecords(1)...)

	res, err := NewHandler("", Resource(r), CSV(), WithStorage(s), WithProcessor(NewProcessor(s))).
		Handle(context.Background(), nil)
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}

	want := [][]string{{"Tags", "Missing"}, {`["a","b"]`, ""}}
	if diff := cmp.Diff(want, readCSV(t, res.Path, ',')); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// TestProcess_QueryError tests that a failing resource query surfaces.
func TestProcess_QueryError(t *testing.T) {
	s := newTestStorage(t)
	r := itemsResource(1)
	r.QueryErr = errors.New("connection refused")

	_, err := NewHandler("", Resource(r), CSV(), WithStorage(s), WithProcessor(NewProcessor(s))).
		Handle(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Handle() error = %v, want query error", err)
	}
}

// TestHandler_Job tests job construction from a request.
func TestHandler_Job(t *testing.T) {
	s := newTestStorage(t)
	h := NewHandler("", Resource(itemsResource(1)), WithStorage(s), Disk("public"), Dir("exports"),
		Delimiter("|"), NotifyUsers("admin"))

	params := url.Values{
		"filters[name]":   {"Item 1"},
		"sort":            {"name"},
		"page":            {"3"},
		"_component_name": {"index-table"},
	}
	job, err := h.Job(params)
	if err != nil {
		t.Fatalf("Job() failed: %v", err)
	}

	wantQuery := url.Values{"filters[name]": {"Item 1"}, "sort": {"name"}}
	if diff := cmp.Diff(wantQuery, job.Query); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if _, ok := params["page"]; !ok {
		t.Error("Job() must not modify the request parameters")
	}

	base, _ := s.PathOf("public", "exports")
	if filepath.Dir(job.Path) != base || !strings.HasPrefix(filepath.Base(job.Path), "items-") || FormatFor(job.Path) != FormatXLSX {
		t.Errorf("path = %s, want %s/items-<uuid>.xlsx", job.Path, base)
	}
	if job.Resource != "items" || job.Disk != "public" || job.Dir != "exports" || job.Delimiter != "|" {
		t.Errorf("job = %+v", job)
	}
	if diff := cmp.Diff([]string{"admin"}, job.NotifyUsers); diff != "" {
		t.Errorf("notify users mismatch (-want +got):\n%s", diff)
	}

	again, err := h.Job(params)
	if err != nil {
		t.Fatal(err)
	}
	if again.Path == job.Path {
		t.Errorf("default file names must be unique, got %s twice", job.Path)
	}
}

// TestHandler_Configuration tests handler configuration errors.
func TestHandler_Configuration(t *testing.T) {
	s := newTestStorage(t)

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "no resource", opts: []Option{WithStorage(s), WithProcessor(NewProcessor(s))}},
		{name: "no storage", opts: []Option{Resource(itemsResource(1))}},
		{name: "unknown disk", opts: []Option{Resource(itemsResource(1)), WithStorage(s), Disk("s3")}},
		{name: "no processor", opts: []Option{Resource(itemsResource(1)), WithStorage(s)}},
		{name: "no dispatcher", opts: []Option{Resource(itemsResource(1)), WithStorage(s), Queue()}},
		{name: "bad delimiter", opts: []Option{Resource(itemsResource(1)), WithStorage(s), WithProcessor(NewProcessor(s)), CSV(), Delimiter(";;")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHandler("", tt.opts...).Handle(context.Background(), nil)
			if !panel.IsConfigurationError(err) {
				t.Errorf("Handle() error = %v, want configuration error", err)
			}
		})
	}
}

// TestHandler_Defaults tests handler accessors.
func TestHandler_Defaults(t *testing.T) {
	h := NewHandler("")
	if h.Label() != DefaultLabel || h.Delimiter() != "," || h.IsCSV() || h.IsQueued() || h.IsWithConfirm() {
		t.Errorf("unexpected defaults: %+v", h)
	}
	if h.Format() != FormatXLSX {
		t.Errorf("Format() = %s, want xlsx", h.Format())
	}

	h = NewHandler("Download", CSV(), Queue(), WithConfirm())
	if !h.IsCSV() || !h.IsQueued() || !h.IsWithConfirm() || h.Format() != FormatCSV {
		t.Errorf("options not applied: %+v", h)
	}
}

type recordingDispatcher struct {
	kind string
	jobs []Job
	err  error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, kind string, payload any) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.kind = kind
	d.jobs = append(d.jobs, payload.(Job))
	return "task-" + strconv.Itoa(len(d.jobs)), nil
}

// TestHandler_Queued tests that a queued export dispatches a job and
// writes nothing.
func TestHandler_Queued(t *testing.T) {
	s := newTestStorage(t)
	d := &recordingDispatcher{}
	h := NewHandler("", Resource(itemsResource(3)), CSV(), Queue(), NotifyUsers("admin"),
		WithStorage(s), WithDispatcher(d))

	res, err := h.Handle(context.Background(), url.Values{"filters[name]": {"Item 2"}})
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if !res.Queued || res.TaskID != "task-1" || res.Message != QueuedMessage {
		t.Errorf("result = %+v", res)
	}
	if d.kind != JobKind || len(d.jobs) != 1 {
		t.Fatalf("dispatched %d jobs of kind %q", len(d.jobs), d.kind)
	}
	if d.jobs[0].Path != res.Path || d.jobs[0].Query.Get("filters[name]") != "Item 2" {
		t.Errorf("job = %+v", d.jobs[0])
	}
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Errorf("queued export must not write %s yet", res.Path)
	}

	d.err = errors.New("queue closed")
	if _, err := h.Handle(context.Background(), nil); err == nil {
		t.Error("expected dispatch error")
	}
}

// TestProcessor_Run tests resolving queued jobs through the registry.
func TestProcessor_Run(t *testing.T) {
	s := newTestStorage(t)
	reg, err := resource.NewRegistry(itemsResource(2))
	if err != nil {
		t.Fatal(err)
	}
	p := NewProcessor(s, WithRegistry(reg))

	path, _ := s.PathOf("public", "exports/run.csv")
	job := Job{Resource: "items", Path: path, Disk: "public", Dir: "exports", Delimiter: ","}

	got, err := p.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if diff := cmp.Diff(expectedRows(2), readCSV(t, got, ',')); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	job.Resource = "itemz"
	if _, err := p.Run(context.Background(), job); !panel.IsConfigurationError(err) {
		t.Errorf("Run() error = %v, want configuration error", err)
	}

	if _, err := NewProcessor(s).Run(context.Background(), job); !panel.IsConfigurationError(err) {
		t.Errorf("Run() without registry error = %v, want configuration error", err)
	}
}

// TestParseDelimiter tests delimiter validation.
func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{in: "", want: ','},
		{in: ";", want: ';'},
		{in: "\t", want: '\t'},
		{in: "§", want: '§'},
		{in: ";;", wantErr: true},
		{in: "\"", wantErr: true},
		{in: "\n", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestFormatFor tests format selection from the destination path.
func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"/tmp/a.csv":      FormatCSV,
		"/tmp/A.CSV":      FormatCSV,
		"/tmp/a.xlsx":     FormatXLSX,
		"/tmp/a.csv.xlsx": FormatXLSX,
		"/tmp/a":          FormatXLSX,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %s, want %s", path, got, want)
		}
	}
}

// TestWriteFile_OpenError tests that an unwritable destination is an
// open error.
func TestWriteFile_OpenError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := WriteFile(filepath.Join(blocker, "out.csv"), ",", []string{"ID"}, Rows(context.Background(), itemsResource(1)))

	var we *panel.WriterError
	if !errors.As(err, &we) || we.Kind != panel.WriterOpen {
		t.Errorf("WriteFile() error = %v, want open error", err)
	}
}
