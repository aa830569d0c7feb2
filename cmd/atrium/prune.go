package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
)

var pruneFlags struct {
	days int
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old export files and finished jobs",
	Long: `Run the retention policy once: export files older than the retention
period are deleted from the export directory, and finished jobs older than
queue.prune_after are deleted from the sqlite queue.

Examples:
  # Apply the configured retention
  atrium prune

  # Keep only the last day of exports
  atrium prune --days 1`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "override the retention period in days")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pruneFlags.days > 0 {
		cfg.Retention.Days = pruneFlags.days
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	pruner, err := a.newPruner()
	if err != nil {
		return err
	}

	result, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d files (%d bytes) and %d finished jobs\n",
		result.Files, result.Bytes, result.Tasks)
	return nil
}
