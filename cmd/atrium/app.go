package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/config"
	"mercator-hq/atrium/pkg/datasource"
	"mercator-hq/atrium/pkg/export"
	"mercator-hq/atrium/pkg/notify"
	"mercator-hq/atrium/pkg/queue"
	"mercator-hq/atrium/pkg/resource"
	"mercator-hq/atrium/pkg/resource/definition"
	"mercator-hq/atrium/pkg/retention"
	"mercator-hq/atrium/pkg/storage"
	"mercator-hq/atrium/pkg/telemetry/health"
	"mercator-hq/atrium/pkg/telemetry/logging"
	"mercator-hq/atrium/pkg/telemetry/metrics"
	"mercator-hq/atrium/pkg/telemetry/tracing"
)

// loadConfig loads the configuration named by --config and applies the
// --verbose override.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
// Components capture the default logger when they are created, so this
// runs before anything else is built.
func setupLogging(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:     lc.Level,
		Format:    lc.Format,
		AddSource: lc.AddSource,
		RedactPII: config.Bool(lc.RedactPII, true),
		Writer:    w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// setupTracing installs the configured tracer provider. The returned
// function flushes pending spans.
func setupTracing(cfg *config.Config) (func(), error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}, nil
}

// app holds the runtime components shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *sql.DB
	registry   *resource.Registry
	storage    *storage.Local
	inbox      *notify.Inbox
	backend    queue.Backend
	dispatcher *queue.Dispatcher
	processor  *export.Processor
	metrics    *metrics.Collector

	closers []func() error
}

// newApp opens the datasource and the queue, loads the resource
// definitions and wires the export processor.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "atrium"),
	}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init() error {
	cfg := a.cfg
	ds := cfg.Datasource

	var err error
	a.db, err = datasource.OpenSQLite(&datasource.SQLiteConfig{
		Path:         ds.Path,
		MaxOpenConns: ds.MaxOpenConns,
		WALMode:      config.Bool(ds.WALMode, true),
		BusyTimeout:  ds.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open datasource: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	resources, err := definition.Load(cfg.Resources.Path, a.db)
	if err != nil {
		return cli.NewConfigError(cfg.Resources.Path, err)
	}
	if a.registry, err = resource.NewRegistry(resources...); err != nil {
		return cli.NewConfigError(cfg.Resources.Path, err)
	}

	disks := make(map[string]storage.Disk, len(cfg.Storage.Disks))
	for name, d := range cfg.Storage.Disks {
		disks[name] = storage.Disk{Root: d.Root, URL: d.URL}
	}
	if a.storage, err = storage.NewLocal(disks); err != nil {
		return cli.NewConfigError("storage", err)
	}

	a.inbox = notify.NewInbox(cfg.Notifications.InboxCapacity)
	var notifier notify.Notifier = a.inbox
	if config.Bool(cfg.Notifications.Log, true) {
		notifier = notify.Multi{a.inbox, notify.NewLogNotifier(a.logger)}
	}

	if a.backend, err = openBackend(&cfg.Queue); err != nil {
		return err
	}
	a.closers = append(a.closers, a.backend.Close)
	a.dispatcher = queue.NewDispatcher(a.backend)

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if err := a.metrics.WatchQueue(a.backend); err != nil {
		return fmt.Errorf("failed to register queue metrics: %w", err)
	}

	a.processor = export.NewProcessor(a.storage,
		export.WithRegistry(a.registry),
		export.WithNotifier(notifier),
		export.WithObserver(a.metrics),
	)

	a.logger.Debug("runtime initialized",
		"resources", a.registry.Len(),
		"queue_backend", cfg.Queue.Backend,
		"datasource", ds.Path,
	)
	return nil
}

func openBackend(cfg *config.QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return queue.NewMemoryBackend(), nil
	case "sqlite":
		b, err := queue.NewSQLiteBackendWithConfig(queue.SQLiteBackendConfig{
			DBPath:             cfg.SQLite.Path,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			ReservationTimeout: cfg.TaskTimeout + time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open queue: %w", err)
		}
		return b, nil
	default:
		return nil, cli.NewConfigError("queue.backend", fmt.Errorf("unsupported queue backend %q", cfg.Backend))
	}
}

// newWorker creates a worker pool running export jobs.
func (a *app) newWorker() *queue.Worker {
	q := a.cfg.Queue
	w := queue.NewWorker(a.backend, &queue.WorkerConfig{
		Concurrency:  q.Concurrency,
		PollInterval: q.PollInterval,
		MaxAttempts:  q.MaxAttempts,
		RetryDelay:   q.RetryDelay,
		TaskTimeout:  q.TaskTimeout,
	})
	w.Handle(export.JobKind, a.processor.HandleTask)
	return w
}

// exportDir returns the absolute export directory.
func (a *app) exportDir() (string, error) {
	return a.storage.PathOf(a.cfg.Export.Disk, a.cfg.Export.Dir)
}

// newPruner creates the retention pruner for the export directory. A
// durable queue also has its finished tasks pruned.
func (a *app) newPruner() (*retention.Pruner, error) {
	dir, err := a.exportDir()
	if err != nil {
		return nil, err
	}

	opts := []retention.Option{}
	if tp, ok := a.backend.(retention.TaskPruner); ok {
		opts = append(opts, retention.WithTaskPruner(tp))
	}

	return retention.NewPruner(&retention.Config{
		RetentionDays: a.cfg.Retention.Days,
		PruneSchedule: a.cfg.Retention.Schedule,
		Dir:           dir,
		TaskRetention: a.cfg.Queue.PruneAfter,
	}, opts...), nil
}

// newHealth creates the readiness checker for every runtime dependency.
func (a *app) newHealth() (*health.Checker, error) {
	dir, err := a.exportDir()
	if err != nil {
		return nil, err
	}

	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("datasource", health.DatabaseCheck(a.db))
	checker.RegisterCheck("queue", health.QueueCheck(a.backend))
	checker.RegisterCheck("resources", health.RegistryCheck(a.registry))
	checker.RegisterCheck("storage", health.WritableDirCheck(dir))
	return checker, nil
}

// Close releases the runtime components in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
