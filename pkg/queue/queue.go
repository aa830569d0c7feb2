// Package queue provides a small background job queue: durable or
// in-memory backends, a worker pool with retry, and a dispatcher.
//
// # Lifecycle
//
//	pending -> reserved -> done
//	               |
//	               +-> pending (retry, attempts < MaxAttempts)
//	               +-> failed  (attempts exhausted or permanent error)
//
// Payloads are opaque bytes; the dispatcher encodes them as JSON so a task
// can cross a process boundary into a separate worker.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Task statuses.
const (
	StatusPending  = "pending"
	StatusReserved = "reserved"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// Task is a unit of background work.
type Task struct {
	ID        string
	Kind      string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Stats counts tasks per status.
type Stats struct {
	Pending  int
	Reserved int
	Done     int
	Failed   int
}

// Backend stores tasks.
type Backend interface {
	// Push enqueues a task.
	Push(ctx context.Context, task Task) error

	// Reserve claims the oldest available task and increments its
	// attempts. ok is false when nothing is available.
	Reserve(ctx context.Context) (task Task, ok bool, err error)

	// Ack marks a reserved task as done.
	Ack(ctx context.Context, id string) error

	// Retry puts a reserved task back, available again after delay.
	Retry(ctx context.Context, id string, cause error, delay time.Duration) error

	// Bury marks a reserved task as permanently failed.
	Bury(ctx context.Context, id string, cause error) error

	// Stats returns task counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// ErrTaskNotFound is returned when acknowledging an unknown task.
var ErrTaskNotFound = errors.New("task not found")

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the worker buries the task instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// HandlerError reports a task that failed in its handler.
type HandlerError struct {
	TaskID   string
	Kind     string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("task %s [kind=%s, attempts=%d] failed: %v", e.TaskID, e.Kind, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *HandlerError) Unwrap() error {
	return e.Cause
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
