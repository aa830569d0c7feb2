package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/resource/definition"
	"mercator-hq/atrium/pkg/server"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	noWorker      bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the atrium HTTP server",
	Long: `Start the HTTP server with the specified configuration.

Besides the HTTP endpoints the serve command runs, in the same process:
  - the export worker pool (unless --no-worker)
  - the retention scheduler (when retention.enabled is set)
  - the resource definition watcher (when resources.watch is set)

Examples:
  # Start with default config
  atrium serve

  # Override listen address
  atrium serve --listen 0.0.0.0:8080

  # Leave queued exports to separate worker processes
  atrium serve --no-worker

  # Validate config and definitions without starting
  atrium serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.noWorker, "no-worker", false, "do not run the export worker in this process")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and definitions without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Atrium v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)
	fmt.Fprintf(out, "✓ Resources loaded (%d resources)\n", a.registry.Len())

	if serveFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	checker, err := a.newHealth()
	if err != nil {
		return err
	}

	srv := server.New(&cfg.Server, server.Deps{
		Config:     cfg,
		Registry:   a.registry,
		Storage:    a.storage,
		Processor:  a.processor,
		Dispatcher: a.dispatcher,
		Inbox:      a.inbox,
		Metrics:    a.metrics,
		Health:     checker,
		Build:      buildInfo(),
	})

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	if !serveFlags.noWorker {
		w := a.newWorker()
		g.Go(func() error { return w.Run(ctx) })
		fmt.Fprintf(out, "✓ Export worker started (%d workers)\n", cfg.Queue.Concurrency)
	}

	if cfg.Retention.Enabled {
		pruner, err := a.newPruner()
		if err != nil {
			return err
		}
		g.Go(func() error { return pruner.Scheduler().Run(ctx) })
		fmt.Fprintf(out, "✓ Retention scheduled (%s, %d days)\n", cfg.Retention.Schedule, cfg.Retention.Days)
	}

	if cfg.Resources.Watch {
		watcher := definition.NewWatcher(cfg.Resources.Path, a.db, a.registry, &definition.WatcherConfig{
			DebounceInterval: cfg.Resources.Debounce,
		})
		g.Go(func() error { return watcher.Watch(ctx) })
		fmt.Fprintf(out, "✓ Watching %s for changes\n", cfg.Resources.Path)
	}

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
