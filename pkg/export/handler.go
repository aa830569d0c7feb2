package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/storage"
	"mercator-hq/atrium/pkg/telemetry/tracing"
)

// Defaults of a new handler.
const (
	DefaultLabel = "Export"
	DefaultDisk  = "public"
	DefaultDir   = "/"
)

// QueuedMessage is the toast shown when an export is queued.
const QueuedMessage = "Export queued, you will be notified when it is ready"

// ToastHeader carries the toast message of a queued export redirect.
const ToastHeader = "X-Atrium-Toast"

// ignoredParams are request parameters that never reach the listing
// query.
var ignoredParams = []string{"_component_name", "page"}

// Dispatcher enqueues background jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind string, payload any) (string, error)
}

// Handler configures and runs exports of one resource.
type Handler struct {
	label           string
	resource        resource.Resource
	csv             bool
	delimiter       string
	filename        string
	disk            string
	dir             string
	queue           bool
	withConfirm     bool
	notifyUsers     []string
	notifyUsersFunc func(*Handler) []string

	storage    storage.Storage
	processor  *Processor
	dispatcher Dispatcher
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// Resource sets the exported resource.
func Resource(r resource.Resource) Option {
	return func(h *Handler) { h.resource = r }
}

// CSV selects the CSV format instead of XLSX.
func CSV() Option {
	return func(h *Handler) { h.csv = true }
}

// Delimiter sets the CSV delimiter.
func Delimiter(d string) Option {
	return func(h *Handler) { h.delimiter = d }
}

// Filename sets the file name without extension. By default every
// export gets a unique name.
func Filename(name string) Option {
	return func(h *Handler) { h.filename = name }
}

// Disk sets the storage disk.
func Disk(name string) Option {
	return func(h *Handler) { h.disk = name }
}

// Dir sets the disk-relative directory.
func Dir(dir string) Option {
	return func(h *Handler) { h.dir = dir }
}

// Queue runs exports in the background.
func Queue() Option {
	return func(h *Handler) { h.queue = true }
}

// WithConfirm asks for confirmation before the export starts.
func WithConfirm() Option {
	return func(h *Handler) { h.withConfirm = true }
}

// NotifyUsers sets the recipients of the completion notification.
func NotifyUsers(users ...string) Option {
	return func(h *Handler) { h.notifyUsers = users }
}

// NotifyUsersFunc computes the recipients from the handler at export
// time.
func NotifyUsersFunc(fn func(*Handler) []string) Option {
	return func(h *Handler) { h.notifyUsersFunc = fn }
}

// WithStorage sets the storage files are placed on.
func WithStorage(s storage.Storage) Option {
	return func(h *Handler) { h.storage = s }
}

// WithProcessor sets the processor of synchronous exports.
func WithProcessor(p *Processor) Option {
	return func(h *Handler) { h.processor = p }
}

// WithDispatcher sets the dispatcher of queued exports.
func WithDispatcher(d Dispatcher) Option {
	return func(h *Handler) { h.dispatcher = d }
}

// NewHandler creates an export handler.
func NewHandler(label string, opts ...Option) *Handler {
	if label == "" {
		label = DefaultLabel
	}
	h := &Handler{
		label:     label,
		delimiter: DefaultDelimiter,
		disk:      DefaultDisk,
		dir:       DefaultDir,
		logger:    slog.Default().With("component", "export.handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Label returns the button label.
func (h *Handler) Label() string { return h.label }

// Resource returns the exported resource, or nil.
func (h *Handler) Resource() resource.Resource { return h.resource }

// IsCSV reports whether the handler writes CSV.
func (h *Handler) IsCSV() bool { return h.csv }

// Delimiter returns the CSV delimiter.
func (h *Handler) Delimiter() string { return h.delimiter }

// IsQueued reports whether exports run in the background.
func (h *Handler) IsQueued() bool { return h.queue }

// IsWithConfirm reports whether a confirmation is required.
func (h *Handler) IsWithConfirm() bool { return h.withConfirm }

// Format returns the output format.
func (h *Handler) Format() Format {
	if h.csv {
		return FormatCSV
	}
	return FormatXLSX
}

// NotifyUsers returns the notification recipients.
func (h *Handler) NotifyUsers() []string {
	if h.notifyUsersFunc != nil {
		return h.notifyUsersFunc(h)
	}
	return h.notifyUsers
}

// Result is the outcome of a handled export request.
type Result struct {
	// Queued reports a background export; Path is then not written yet.
	Queued bool

	// TaskID is the queue task of a background export.
	TaskID string

	// Message is the user facing status message.
	Message string

	// Path is the destination file path.
	Path string

	// Format is the output format.
	Format Format
}

// Job builds the job descriptor for an export request with params.
// Pagination and component routing parameters are dropped.
func (h *Handler) Job(params url.Values) (Job, error) {
	if h.resource == nil {
		return Job{}, panel.NewConfigurationError("export", "resource is required for the %q handler", h.label)
	}
	if h.storage == nil {
		return Job{}, panel.NewConfigurationError("export", "no storage configured for the %q handler", h.label)
	}

	filename := h.filename
	if filename == "" {
		filename = h.resource.URIKey() + "-" + uuid.NewString()
	}

	rel := fmt.Sprintf("%s/%s.%s", strings.TrimRight(h.dir, "/"), filename, h.Format().Extension())
	path, err := h.storage.PathOf(h.disk, rel)
	if err != nil {
		return Job{}, err
	}

	return Job{
		Resource:    h.resource.URIKey(),
		Path:        path,
		Query:       stripParams(params),
		Disk:        h.disk,
		Dir:         h.dir,
		Delimiter:   h.delimiter,
		NotifyUsers: h.NotifyUsers(),
	}, nil
}

// Handle runs an export request. Queued handlers dispatch the job and
// return at once; otherwise the file is written before Handle returns.
func (h *Handler) Handle(ctx context.Context, params url.Values) (*Result, error) {
	job, err := h.Job(params)
	if err != nil {
		return nil, err
	}

	logger := h.logger.With("resource", job.Resource, "path", job.Path)

	if h.queue {
		if h.dispatcher == nil {
			return nil, panel.NewConfigurationError("export", "no queue configured for the %q handler", h.label)
		}

		h.observe(job.Resource, ModeQueued, StateRequested)
		job.TraceContext = map[string]string{}
		tracing.InjectToMap(ctx, job.TraceContext)
		id, err := h.dispatcher.Dispatch(ctx, JobKind, job)
		if err != nil {
			return nil, fmt.Errorf("failed to queue export of %q: %w", job.Resource, err)
		}
		h.observe(job.Resource, ModeQueued, StateQueued)
		logger.Info("export queued", "task_id", id)

		return &Result{Queued: true, TaskID: id, Message: QueuedMessage, Path: job.Path, Format: h.Format()}, nil
	}

	if h.processor == nil {
		return nil, panel.NewConfigurationError("export", "no processor configured for the %q handler", h.label)
	}

	h.observe(job.Resource, ModeSync, StateRequested)
	path, err := h.processor.Process(ctx, job, h.resource)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Format: h.Format()}, nil
}

func (h *Handler) observe(key string, mode Mode, state State) {
	if h.processor != nil {
		h.processor.observer.ExportState(key, mode, state)
	}
}

// ServeHTTP handles an export request. A queued export redirects back to
// the referring page with a toast header; otherwise the file is sent as
// an attachment.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.Handle(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if res.Queued {
		back := r.Referer()
		if back == "" {
			back = "/"
		}
		w.Header().Set(ToastHeader, res.Message)
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	file, err := os.Open(res.Path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.writeError(w, err)
		return
	}

	name := filepath.Base(res.Path)
	w.Header().Set("Content-Type", res.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var we *panel.WriterError
	switch {
	case panel.IsConfigurationError(err):
		status = http.StatusBadRequest
	case errors.As(err, &we) && we.Kind == panel.WriterUnsupported:
		status = http.StatusUnprocessableEntity
	}

	h.logger.Error("export request failed", "status", status, "error", err)
	http.Error(w, err.Error(), status)
}

func stripParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	for _, k := range ignoredParams {
		out.Del(k)
	}
	return out
}
