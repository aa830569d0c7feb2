package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Handler processes one task. Returning an error retries the task until
// MaxAttempts is reached; wrap it with Permanent to fail immediately.
type Handler func(ctx context.Context, task Task) error

// WorkerConfig contains configuration for the worker pool.
type WorkerConfig struct {
	// Concurrency is the number of tasks processed in parallel.
	// Default: 2
	Concurrency int

	// PollInterval is how long an idle worker waits before polling again.
	// Default: 500ms
	PollInterval time.Duration

	// MaxAttempts is the number of attempts before a task is failed.
	// Default: 3
	MaxAttempts int

	// RetryDelay is multiplied by the attempt number to delay retries.
	// Default: 1 second
	RetryDelay time.Duration

	// TaskTimeout bounds a single handler invocation.
	// Default: 10 minutes
	TaskTimeout time.Duration
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Concurrency:  2,
		PollInterval: 500 * time.Millisecond,
		MaxAttempts:  3,
		RetryDelay:   time.Second,
		TaskTimeout:  10 * time.Minute,
	}
}

// Worker consumes tasks from a backend and dispatches them to handlers by
// kind.
type Worker struct {
	backend  Backend
	config   *WorkerConfig
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewWorker creates a worker pool. Zero config values take defaults.
func NewWorker(backend Backend, config *WorkerConfig) *Worker {
	def := DefaultWorkerConfig()
	if config == nil {
		config = def
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = def.TaskTimeout
	}

	return &Worker{
		backend:  backend,
		config:   config,
		logger:   slog.Default().With("component", "queue.worker"),
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for a task kind.
func (w *Worker) Handle(kind string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Run processes tasks until ctx is cancelled. It returns nil on
// cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker pool started",
		"concurrency", w.config.Concurrency,
		"max_attempts", w.config.MaxAttempts,
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.Concurrency; i++ {
		g.Go(func() error {
			w.loop(gctx)
			return nil
		})
	}

	err := g.Wait()
	w.logger.Info("worker pool stopped")
	return err
}

func (w *Worker) loop(ctx context.Context) {
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to process task", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		if processed && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

// ProcessOne reserves and processes a single task. It reports whether a
// task was available. Handler failures are recorded on the task and are
// not returned; only backend errors are. A task interrupted by ctx
// cancellation is returned to pending with no retry delay.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, ok, err := w.backend.Reserve(ctx)
	if err != nil || !ok {
		return false, err
	}

	// Transitions must land even when ctx is cancelled mid-task.
	tctx := context.WithoutCancel(ctx)

	logger := w.logger.With("task_id", task.ID, "kind", task.Kind, "attempt", task.Attempts)

	w.mu.RLock()
	h, found := w.handlers[task.Kind]
	w.mu.RUnlock()

	if !found {
		cause := fmt.Errorf("no handler registered for kind %q", task.Kind)
		logger.Error("task failed", "error", cause)
		return true, w.backend.Bury(tctx, task.ID, cause)
	}

	start := time.Now()
	if herr := w.invoke(ctx, h, task); herr != nil {
		failure := &HandlerError{TaskID: task.ID, Kind: task.Kind, Attempts: task.Attempts, Cause: herr}

		if ctx.Err() != nil {
			logger.Warn("task interrupted, requeued", "error", herr)
			return true, w.backend.Retry(tctx, task.ID, herr, 0)
		}

		if IsPermanent(herr) || task.Attempts >= w.config.MaxAttempts {
			logger.Error("task failed", "error", failure)
			return true, w.backend.Bury(tctx, task.ID, herr)
		}

		delay := w.config.RetryDelay * time.Duration(task.Attempts)
		logger.Warn("task failed, retrying", "error", herr, "retry_in", delay)
		return true, w.backend.Retry(tctx, task.ID, herr, delay)
	}

	logger.Debug("task completed", "duration", time.Since(start))
	return true, w.backend.Ack(tctx, task.ID)
}

func (w *Worker) invoke(ctx context.Context, h Handler, task Task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h(ctx, task)
}

// Dispatcher enqueues tasks with JSON payloads.
type Dispatcher struct {
	backend Backend
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher for backend.
func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		logger:  slog.Default().With("component", "queue.dispatcher"),
	}
}

// Dispatch encodes payload as JSON and enqueues it. It returns the task
// id.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	task := Task{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: data,
	}
	if err := d.backend.Push(ctx, task); err != nil {
		return "", err
	}

	d.logger.Debug("task dispatched", "task_id", task.ID, "kind", kind)
	return task.ID, nil
}

// Decode unmarshals a task payload.
func Decode[T any](task Task) (T, error) {
	var v T
	if err := json.Unmarshal(task.Payload, &v); err != nil {
		return v, Permanent(fmt.Errorf("failed to decode %s payload: %w", task.Kind, err))
	}
	return v, nil
}
