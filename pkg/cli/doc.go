/*
Package cli provides command-line helpers shared by the atrium commands.

Output Formatting:

Commands that list things (resources, fields, queue statistics) build a
Table and hand it to a Formatter selected by the --output flag:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	table := cli.Table{Headers: []string{"key", "title"}}
	table.Append("items", "Items")
	return formatter.Format(cmd.OutOrStdout(), table)

Progress Reporting:

Draining the queue reports progress per processed task:

	progress := cli.NewProgressReporter(os.Stderr, "tasks")
	progress.Start(pending)
	progress.Update(done)
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
