package definition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/atrium/pkg/resource"
)

// Watcher reloads a definition file into a registry when it changes.
// Bursts of events are debounced into one reload. A failed reload keeps
// the previously registered resources.
type Watcher struct {
	path     string
	db       *sql.DB
	registry *resource.Registry
	config   *WatcherConfig
	logger   *slog.Logger

	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)

	mu      sync.Mutex
	running bool
}

// WatcherConfig contains configuration for the definition watcher.
type WatcherConfig struct {
	// DebounceInterval is the quiet period after the last change before
	// reloading.
	// Default: 100ms
	DebounceInterval time.Duration
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{DebounceInterval: 100 * time.Millisecond}
}

// NewWatcher creates a watcher for the definition file at path.
func NewWatcher(path string, db *sql.DB, registry *resource.Registry, config *WatcherConfig) *Watcher {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		db:       db,
		registry: registry,
		config:   config,
		logger:   slog.Default().With("component", "definition.watcher", "path", path),
	}
}

// Reload loads the file and replaces the registry contents.
func (w *Watcher) Reload() error {
	resources, err := Load(w.path, w.db)
	if err == nil {
		err = w.registry.Replace(resources)
	}

	if err != nil {
		w.logger.Error("resource reload failed, keeping previous definitions", "error", err)
	} else {
		w.logger.Info("resources reloaded", "count", len(resources))
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
	return err
}

// Watch blocks until ctx is cancelled, reloading after every change of
// the file. The parent directory is watched so that editors replacing
// the file by rename are noticed.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	debounce := NewDebouncer(w.config.DebounceInterval)
	defer debounce.Stop()

	w.logger.Info("definition watcher started", "debounce_ms", w.config.DebounceInterval.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("definition watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("definition change detected", "op", event.Op.String())
			debounce.Trigger(func() { _ = w.Reload() })

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("definition watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// Debouncer collects rapid events and runs the last callback after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
