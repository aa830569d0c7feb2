package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "atrium",
	Short: "Atrium - admin resource fields and exports",
	Long: `Atrium serves the admin surface of declared resources.

Resources are declared in a YAML definition file over a SQLite database.
Atrium resolves the fields every admin page shows and exports resource
listings to CSV or XLSX files, either while the request waits or through
a background queue that notifies users when the file is ready.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "atrium.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
