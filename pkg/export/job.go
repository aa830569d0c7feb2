package export

import (
	"net/url"
	"time"
)

// JobKind is the queue task kind of background exports.
const JobKind = "export"

// Job describes one export. It is the payload of queued exports and is
// complete on its own: a worker rebuilds the export from it without the
// originating request.
type Job struct {
	// Resource is the URI key of the exported resource.
	Resource string `json:"resource"`

	// Path is the absolute destination file path.
	Path string `json:"path"`

	// Query holds the request parameters the listing is filtered by.
	Query url.Values `json:"query"`

	// Disk is the storage disk the file is written to.
	Disk string `json:"disk"`

	// Dir is the disk-relative directory of the file.
	Dir string `json:"dir"`

	// Delimiter is the CSV delimiter.
	Delimiter string `json:"delimiter"`

	// NotifyUsers lists the recipients of the completion notification.
	NotifyUsers []string `json:"notify_users"`

	// TraceContext carries the trace of the originating request.
	TraceContext map[string]string `json:"trace_context,omitempty"`
}

// State is an export lifecycle state.
type State string

const (
	StateRequested  State = "requested"
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Mode tells how an export is delivered.
type Mode string

const (
	ModeSync   Mode = "sync"
	ModeQueued Mode = "queued"
)

// Observer receives export lifecycle events.
type Observer interface {
	ExportState(resource string, mode Mode, state State)
	ExportFinished(resource string, format Format, rows int, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ExportState(string, Mode, State) {}
func (noopObserver) ExportFinished(string, Format, int, time.Duration) {}
