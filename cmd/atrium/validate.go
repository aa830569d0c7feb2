package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/datasource"
	"mercator-hq/atrium/pkg/resource/definition"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and resource definitions",
	Long: `Load the configuration and the resource definition file and report the
first problem found. Every page of every resource is resolved, so field
declarations that only fail at request time are reported too.

The datasource is opened to build the resource queries, but no query is
run.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", cfgFile)

	if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	db, err := datasource.OpenSQLite(&datasource.SQLiteConfig{
		Path:         cfg.Datasource.Path,
		MaxOpenConns: 1,
		BusyTimeout:  cfg.Datasource.BusyTimeout,
	})
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	defer db.Close()

	resources, err := definition.Load(cfg.Resources.Path, db)
	if err != nil {
		return cli.NewConfigError(cfg.Resources.Path, err)
	}

	fmt.Fprintf(out, "✓ Resource definitions valid (%d resources in %s)\n", len(resources), cfg.Resources.Path)
	return nil
}
