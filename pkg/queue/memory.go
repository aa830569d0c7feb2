package queue

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	task        Task
	status      string
	availableAt time.Time
}

// MemoryBackend keeps tasks in process memory. Tasks are lost on restart.
type MemoryBackend struct {
	mu      sync.Mutex
	entries []*memoryEntry
	byID    map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		byID: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// Push implements Backend.
func (m *MemoryBackend) Push(ctx context.Context, task Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry{task: task, status: StatusPending, availableAt: task.CreatedAt}
	m.entries = append(m.entries, e)
	m.byID[task.ID] = e
	return nil
}

// Reserve implements Backend.
func (m *MemoryBackend) Reserve(ctx context.Context) (Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, e := range m.entries {
		if e.status != StatusPending || e.availableAt.After(now) {
			continue
		}
		e.status = StatusReserved
		e.task.Attempts++
		return e.task, true, nil
	}
	return Task{}, false, nil
}

// Ack implements Backend.
func (m *MemoryBackend) Ack(ctx context.Context, id string) error {
	return m.transition(id, func(e *memoryEntry) {
		e.status = StatusDone
	})
}

// Retry implements Backend.
func (m *MemoryBackend) Retry(ctx context.Context, id string, cause error, delay time.Duration) error {
	return m.transition(id, func(e *memoryEntry) {
		e.status = StatusPending
		e.task.LastError = errString(cause)
		e.availableAt = m.now().Add(delay)
	})
}

// Bury implements Backend.
func (m *MemoryBackend) Bury(ctx context.Context, id string, cause error) error {
	return m.transition(id, func(e *memoryEntry) {
		e.status = StatusFailed
		e.task.LastError = errString(cause)
	})
}

func (m *MemoryBackend) transition(id string, fn func(e *memoryEntry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok || e.status != StatusReserved {
		return ErrTaskNotFound
	}
	fn(e)
	return nil
}

// Stats implements Backend.
func (m *MemoryBackend) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	for _, e := range m.entries {
		switch e.status {
		case StatusPending:
			s.Pending++
		case StatusReserved:
			s.Reserved++
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

// Task returns a copy of the task with the given id.
func (m *MemoryBackend) Task(id string) (Task, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[id]
	if !ok {
		return Task{}, "", false
	}
	return e.task, e.status, true
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
