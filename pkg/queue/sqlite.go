package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend stores tasks in a SQLite database so that queued work
// survives restarts and can be consumed by a separate worker process.
type SQLiteBackend struct {
	db                 *sql.DB
	path               string
	reservationTimeout time.Duration
	logger             *slog.Logger
	now                func() time.Time
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// ReservationTimeout is how long a task may stay reserved before it is
	// handed out again. It recovers tasks held by a worker that died.
	// Default: 30 minutes
	ReservationTimeout time.Duration
}

// NewSQLiteBackend opens the queue database at path with default settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: path})
}

// NewSQLiteBackendWithConfig opens the queue database and applies schema
// migrations.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.ReservationTimeout <= 0 {
		cfg.ReservationTimeout = 30 * time.Minute
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	if err := Migrate(cfg.DBPath); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "synchronous(NORMAL)")
	dsn := "file:" + cfg.DBPath + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{
		db:                 db,
		path:               cfg.DBPath,
		reservationTimeout: cfg.ReservationTimeout,
		logger:             slog.Default().With("component", "queue.sqlite"),
		now:                time.Now,
	}

	b.logger.Info("SQLite queue opened", "path", cfg.DBPath)
	return b, nil
}

// Push implements Backend.
func (s *SQLiteBackend) Push(ctx context.Context, task Task) error {
	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.Payload == nil {
		task.Payload = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, payload, status, attempts, last_error, available_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', ?, ?, ?)`,
		task.ID, task.Kind, task.Payload, StatusPending, task.Attempts,
		task.CreatedAt.UnixNano(), task.CreatedAt.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to push task %s: %w", task.ID, err)
	}
	return nil
}

// Reserve implements Backend. Tasks reserved for longer than the
// reservation timeout are reclaimed as if they were pending.
func (s *SQLiteBackend) Reserve(ctx context.Context) (Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, false, fmt.Errorf("failed to begin reserve: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	stale := now.Add(-s.reservationTimeout).UnixNano()

	var (
		t       Task
		status  string
		created int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, kind, payload, status, attempts, last_error, created_at
		FROM tasks
		WHERE (status = ? AND available_at <= ?)
		   OR (status = ? AND updated_at <= ?)
		ORDER BY created_at, id
		LIMIT 1`,
		StatusPending, now.UnixNano(), StatusReserved, stale,
	).Scan(&t.ID, &t.Kind, &t.Payload, &status, &t.Attempts, &t.LastError, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("failed to select task: %w", err)
	}

	if status == StatusReserved {
		s.logger.Warn("reclaiming stale reservation", "task_id", t.ID, "kind", t.Kind, "attempts", t.Attempts)
	}

	t.Attempts++
	t.CreatedAt = time.Unix(0, created)

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, attempts = ?, updated_at = ? WHERE id = ?`,
		StatusReserved, t.Attempts, now.UnixNano(), t.ID,
	); err != nil {
		return Task{}, false, fmt.Errorf("failed to reserve task %s: %w", t.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return Task{}, false, fmt.Errorf("failed to commit reserve: %w", err)
	}
	return t, true, nil
}

// Ack implements Backend.
func (s *SQLiteBackend) Ack(ctx context.Context, id string) error {
	return s.transition(ctx, id, `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusDone, s.now().UnixNano(), id, StatusReserved)
}

// Retry implements Backend.
func (s *SQLiteBackend) Retry(ctx context.Context, id string, cause error, delay time.Duration) error {
	now := s.now()
	return s.transition(ctx, id,
		`UPDATE tasks SET status = ?, last_error = ?, available_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusPending, errString(cause), now.Add(delay).UnixNano(), now.UnixNano(), id, StatusReserved)
}

// Bury implements Backend.
func (s *SQLiteBackend) Bury(ctx context.Context, id string, cause error) error {
	return s.transition(ctx, id,
		`UPDATE tasks SET status = ?, last_error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusFailed, errString(cause), s.now().UnixNano(), id, StatusReserved)
}

func (s *SQLiteBackend) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Stats implements Backend.
func (s *SQLiteBackend) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan stats: %w", err)
		}
		switch status {
		case StatusPending:
			st.Pending = n
		case StatusReserved:
			st.Reserved = n
		case StatusDone:
			st.Done = n
		case StatusFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}

// Prune deletes finished tasks last updated before cutoff and returns the
// number of rows removed.
func (s *SQLiteBackend) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status IN (?, ?) AND updated_at < ?`,
		StatusDone, StatusFailed, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune tasks: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
