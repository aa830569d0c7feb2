package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
)

var workerFlags struct {
	drain bool
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the export worker",
	Long: `Run the export worker pool against the configured queue.

With the sqlite queue backend several worker processes may consume the
jobs queued by the server. With --drain the worker processes the pending
jobs one by one and exits.

Examples:
  # Run until interrupted
  atrium worker

  # Process everything queued and exit
  atrium worker --drain`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().BoolVar(&workerFlags.drain, "drain", false, "process pending jobs and exit")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
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

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if workerFlags.drain {
		return drain(ctx, cmd, a)
	}

	if err := a.newWorker().Run(ctx); err != nil {
		return cli.NewCommandError("worker", err)
	}
	return nil
}

// drain processes tasks until none is available, reporting progress on
// stderr.
func drain(ctx context.Context, cmd *cobra.Command, a *app) error {
	st, err := a.backend.Stats(ctx)
	if err != nil {
		return cli.NewCommandError("worker", err)
	}

	w := a.newWorker()
	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), "tasks")
	progress.Start(int64(st.Pending))

	var done int64
	for {
		ok, err := w.ProcessOne(ctx)
		if err != nil {
			progress.Error(err)
			return cli.NewCommandError("worker", err)
		}
		if !ok {
			break
		}
		done++
		progress.Update(done)
	}
	progress.Finish()

	st, err = a.backend.Stats(ctx)
	if err != nil {
		return cli.NewCommandError("worker", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Processed %d tasks (%d done, %d failed, %d pending)\n",
		done, st.Done, st.Failed, st.Pending)
	return nil
}
