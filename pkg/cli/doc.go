/*
Package cli provides command-line helpers for the stylecheck command.

Output Formatting:

Diagnostics are printed as colored text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatText, noColor)
	if err := formatter.FormatEvents(os.Stdout, events); err != nil {
		return err
	}

Progress Reporting:

Batch scans report completed files through a progress reporter:

	progress := cli.NewProgressReporter(os.Stderr)
	batch := scan.NewBatchScanner(coord, scan.WithProgress(progress))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
