/*
Package cli provides command-line interface utilities for the arbiter command.

Output Formatting:

Commands print results as text, JSON or CSV:

	formatter, err := cli.NewFormatter(cli.FormatCSV)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, overview); err != nil {
		return err
	}

Values implementing TextRenderer control their text form and values
implementing Tabular can be written as CSV.

Status Lines:

Success, Warn and Failure print colored, prefixed status lines. Color is
disabled automatically when the output is not a terminal or NO_COLOR is set.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM and configuration reload on SIGHUP:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	for range cli.ReloadSignals(ctx) {
		holder.Reload()
	}
*/
package cli
