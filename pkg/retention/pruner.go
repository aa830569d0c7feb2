package retention

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days export files are kept.
	// 0 keeps files forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// Dir is the export directory scanned for old files.
	Dir string

	// Extensions are the file extensions eligible for deletion.
	// Default: .csv, .xlsx
	Extensions []string

	// TaskRetention is how long finished queue tasks are kept.
	// 0 keeps them forever.
	TaskRetention time.Duration
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 7,
		PruneSchedule: "0 3 * * *",
		Dir:           "data/public/exports",
		Extensions:    []string{".csv", ".xlsx"},
	}
}

// TaskPruner deletes finished tasks last updated before cutoff.
type TaskPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result summarizes one pruning run.
type Result struct {
	Files int64
	Bytes int64
	Tasks int64
}

// Pruner enforces the retention period on export files.
type Pruner struct {
	config    *Config
	tasks     TaskPruner
	now       func() time.Time
	logger    *slog.Logger
	scheduler *Scheduler
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithTaskPruner also prunes finished tasks from a queue store.
func WithTaskPruner(tp TaskPruner) Option {
	return func(p *Pruner) { p.tasks = tp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

// NewPruner creates a new retention pruner.
func NewPruner(config *Config, opts ...Option) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".csv", ".xlsx"}
	}

	p := &Pruner{
		config: config,
		now:    time.Now,
		logger: slog.Default().With("component", "retention.pruner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Scheduler returns the scheduler driving p.
func (p *Pruner) Scheduler() *Scheduler {
	return p.scheduler
}

// Prune deletes export files older than the retention period, then
// finished tasks older than the task retention.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var res Result

	if p.config.RetentionDays > 0 {
		files, bytes, err := p.pruneFiles(ctx)
		res.Files, res.Bytes = files, bytes
		if err != nil {
			return res, NewRetentionError(p.config.RetentionDays, "files", err)
		}
	}

	if p.tasks != nil && p.config.TaskRetention > 0 {
		n, err := p.tasks.Prune(ctx, p.now().Add(-p.config.TaskRetention))
		res.Tasks = n
		if err != nil {
			return res, NewRetentionError(p.config.RetentionDays, "tasks", err)
		}
	}

	if res.Files == 0 && res.Tasks == 0 {
		p.logger.Debug("nothing pruned", "retention_days", p.config.RetentionDays)
	} else {
		p.logger.Info("pruning completed",
			"files", res.Files,
			"bytes", res.Bytes,
			"tasks", res.Tasks,
			"retention_days", p.config.RetentionDays,
		)
	}

	return res, nil
}

// pruneFiles walks the export directory and removes expired files. A
// missing directory means nothing was exported yet.
func (p *Pruner) pruneFiles(ctx context.Context) (int64, int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning export files", "dir", p.config.Dir, "cutoff_time", cutoff)

	var files, bytes int64
	err := filepath.WalkDir(p.config.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == p.config.Dir {
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !p.eligible(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		files++
		bytes += info.Size()
		p.logger.Debug("export file removed", "path", path, "modified", info.ModTime())
		return nil
	})

	return files, bytes, err
}

func (p *Pruner) eligible(path string) bool {
	return slices.ContainsFunc(p.config.Extensions, func(ext string) bool {
		return strings.EqualFold(filepath.Ext(path), ext)
	})
}
