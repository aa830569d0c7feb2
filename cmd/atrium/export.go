package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/atrium/pkg/cli"
	"mercator-hq/atrium/pkg/export"
)

var exportFlags struct {
	filters   []string
	sort      string
	order     string
	csv       bool
	delimiter string
	filename  string
	queue     bool
	notify    []string
}

var exportCmd = &cobra.Command{
	Use:   "export <resource>",
	Short: "Export a resource listing to a file",
	Long: `Export the listing of a resource to an XLSX or CSV file on the export disk.

Filters and sorting use the same parameters as the export endpoint. The
format, delimiter and disk default to the export section of the config.

Examples:
  # Export every item
  atrium export items

  # Export active items as semicolon separated CSV, newest first
  atrium export items --filter active=1 --csv --delimiter ";" --sort id --order desc

  # Queue the export and notify a user when it is ready
  atrium export items --queue --notify alice`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringArrayVarP(&exportFlags.filters, "filter", "f", nil, "equality filter column=value (repeatable)")
	exportCmd.Flags().StringVar(&exportFlags.sort, "sort", "", "sort column")
	exportCmd.Flags().StringVar(&exportFlags.order, "order", "", "sort order: asc, desc")
	exportCmd.Flags().BoolVar(&exportFlags.csv, "csv", false, "write CSV instead of the configured format")
	exportCmd.Flags().StringVar(&exportFlags.delimiter, "delimiter", "", "CSV delimiter (overrides config)")
	exportCmd.Flags().StringVar(&exportFlags.filename, "filename", "", "file name without extension")
	exportCmd.Flags().BoolVar(&exportFlags.queue, "queue", false, "queue the export instead of running it")
	exportCmd.Flags().StringArrayVar(&exportFlags.notify, "notify", nil, "user to notify when the file is ready (repeatable)")
}

// exportParams turns the filter and sort flags into query parameters.
func exportParams(filters []string, sort, order string) (url.Values, error) {
	params := url.Values{}
	for _, f := range filters {
		col, val, ok := strings.Cut(f, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter %q: expected column=value", f)
		}
		params.Set("filters["+col+"]", val)
	}
	if sort != "" {
		params.Set("sort", sort)
	}
	if order != "" {
		params.Set("order", order)
	}
	return params, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	params, err := exportParams(exportFlags.filters, exportFlags.sort, exportFlags.order)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.registry.Lookup(args[0])
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	ec := cfg.Export
	delimiter := ec.Delimiter
	if exportFlags.delimiter != "" {
		delimiter = exportFlags.delimiter
	}

	opts := []export.Option{
		export.Resource(res),
		export.Disk(ec.Disk),
		export.Dir(ec.Dir),
		export.Delimiter(delimiter),
		export.Filename(exportFlags.filename),
		export.WithStorage(a.storage),
		export.WithProcessor(a.processor),
		export.NotifyUsers(append(append([]string(nil), ec.NotifyUsers...), exportFlags.notify...)...),
	}
	if exportFlags.csv || strings.EqualFold(ec.Format, string(export.FormatCSV)) {
		opts = append(opts, export.CSV())
	}
	if exportFlags.queue {
		opts = append(opts, export.Queue(), export.WithDispatcher(a.dispatcher))
	}

	result, err := export.NewHandler(export.DefaultLabel, opts...).Handle(cmd.Context(), params)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	out := cmd.OutOrStdout()
	if result.Queued {
		fmt.Fprintf(out, "✓ Export queued (task %s)\n", result.TaskID)
		fmt.Fprintf(out, "  File: %s\n", result.Path)
		return nil
	}

	fmt.Fprintf(out, "✓ Exported %s to %s\n", res.URIKey(), result.Path)
	if link, err := a.processor.Link(export.Job{Path: result.Path, Disk: ec.Disk, Dir: ec.Dir}); err == nil {
		fmt.Fprintf(out, "  URL: %s\n", link)
	}
	return nil
}
