package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/panel"
	"mercator-hq/atrium/pkg/queue"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/storage"
	"mercator-hq/atrium/pkg/telemetry/tracing"
)

// Notification texts.
const (
	CompletedText = "Export completed"
	DownloadLabel = "Download"
)

// Processor writes export files and announces them.
type Processor struct {
	storage  storage.Storage
	notifier notify.Notifier
	registry *resource.Registry
	observer Observer
	logger   *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithNotifier sets the notifier completion messages are sent through.
func WithNotifier(n notify.Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

// WithRegistry sets the registry queued jobs are resolved against.
func WithRegistry(r *resource.Registry) ProcessorOption {
	return func(p *Processor) { p.registry = r }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) ProcessorOption {
	return func(p *Processor) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewProcessor creates a processor writing through s.
func NewProcessor(s storage.Storage, opts ...ProcessorOption) *Processor {
	p := &Processor{
		storage:  s,
		observer: noopObserver{},
		logger:   slog.Default().With("component", "export.processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process writes the export described by job for r and returns the
// written path. The job query is attached to ctx before the resource is
// queried. On success the notify users receive a message linking to the
// file.
func (p *Processor) Process(ctx context.Context, job Job, r resource.Resource) (string, error) {
	return p.process(ctx, job, r, ModeSync)
}

// Run resolves the job resource through the registry and processes it.
// It is the entry point of queued exports.
func (p *Processor) Run(ctx context.Context, job Job) (string, error) {
	if p.registry == nil {
		return "", panel.NewConfigurationError("export", "no resource registry configured")
	}
	r, err := p.registry.Lookup(job.Resource)
	if err != nil {
		return "", err
	}
	return p.process(ctx, job, r, ModeQueued)
}

// HandleTask is a queue.Handler running export jobs. Configuration and
// unsupported value errors cannot succeed on retry and are reported as
// permanent.
func (p *Processor) HandleTask(ctx context.Context, task queue.Task) error {
	job, err := queue.Decode[Job](task)
	if err != nil {
		return err
	}

	ctx, span := tracing.Start(tracing.ExtractFromMap(ctx, job.TraceContext), "export.task")
	tracing.SetTaskAttributes(span, task.ID, task.Kind, task.Attempts)
	_, err = p.Run(ctx, job)
	tracing.End(span, err)

	if err != nil {
		var we *panel.WriterError
		if panel.IsConfigurationError(err) || (errors.As(err, &we) && we.Kind == panel.WriterUnsupported) {
			return queue.Permanent(err)
		}
		return err
	}
	return nil
}

func (p *Processor) process(ctx context.Context, job Job, r resource.Resource, mode Mode) (path string, err error) {
	if r == nil {
		return "", panel.NewConfigurationError("export", "no resource given")
	}

	key := r.URIKey()
	ctx, span := tracing.Start(ctx, "export.process")
	tracing.SetExportAttributes(span, key, string(FormatFor(job.Path)), string(mode))
	defer func() { tracing.End(span, err) }()

	logger := p.logger.With("resource", key, "mode", mode, "path", job.Path)
	ctx = panel.WithQueryParams(ctx, job.Query)

	p.observer.ExportState(key, mode, StateProcessing)
	logger.Info("export processing")
	start := time.Now()

	path, n, err := p.write(ctx, job, r)
	span.SetAttributes(attribute.Int(tracing.AttrExportRows, n))
	if err != nil {
		p.observer.ExportState(key, mode, StateFailed)
		logger.Error("export failed", "rows", n, "error", err)
		return "", err
	}

	if err := p.announce(ctx, job); err != nil {
		p.observer.ExportState(key, mode, StateFailed)
		logger.Error("export notification failed", "error", err)
		return "", err
	}

	duration := time.Since(start)
	p.observer.ExportState(key, mode, StateCompleted)
	p.observer.ExportFinished(key, FormatFor(path), n, duration)
	logger.Info("export completed", "rows", n, "duration", duration)

	return path, nil
}

func (p *Processor) write(ctx context.Context, job Job, r resource.Resource) (string, int, error) {
	if job.Path == "" {
		return "", 0, panel.NewConfigurationError("export", "job for %q has no destination path", job.Resource)
	}

	set, err := resource.ResolveExportFields(r)
	if err != nil {
		return "", 0, err
	}

	n, err := WriteFile(job.Path, job.Delimiter, set.Labels(), Rows(ctx, r))
	if err != nil {
		return "", n, err
	}
	return job.Path, n, nil
}

// announce notifies the job recipients with a link to the file: the
// path below the export directory is appended to the trimmed directory
// and resolved against the disk URL.
func (p *Processor) announce(ctx context.Context, job Job) error {
	if p.notifier == nil || len(job.NotifyUsers) == 0 {
		return nil
	}

	link, err := p.Link(job)
	if err != nil {
		return err
	}

	msg := notify.Message{Text: CompletedText, Link: link, Label: DownloadLabel}
	if err := p.notifier.Send(ctx, msg, job.NotifyUsers); err != nil {
		return fmt.Errorf("failed to notify %d users: %w", len(job.NotifyUsers), err)
	}
	return nil
}

// Link returns the public URL of the job file.
func (p *Processor) Link(job Job) (string, error) {
	base, err := p.storage.PathOf(job.Disk, job.Dir)
	if err != nil {
		return "", err
	}
	rel := strings.TrimPrefix(job.Path, base)
	return p.storage.URLOf(job.Disk, strings.Trim(job.Dir, "/")+rel)
}
