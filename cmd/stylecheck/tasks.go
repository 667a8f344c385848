package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/tasks"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
)

var tasksFlags struct {
	file      string
	scanID    string
	minLevel  string
	olderThan time.Duration
	limit     int
	offset    int
	format    string
	exportAs  string
	output    string
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect stored check results",
	Long: `Query, export and prune the task list.

Every file checked by check or watch replaces its stored problems when
tasks.enabled is set in the configuration.`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored problems",
	Long: `List stored problems ordered by file and line.

Examples:
  # Warnings and errors of one file
  stylecheck tasks list --file src/A.java --min-level warning

  # Problems of one batch as JSON
  stylecheck tasks list --scan-id 5b0f... --format json`,
	RunE: listTasks,
}

var tasksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored problems with their metadata",
	Long: `Export stored problems including their IDs, scan IDs and record times.

Examples:
  # Export everything as CSV
  stylecheck tasks export --format csv -o tasks.csv`,
	RunE: exportTasks,
}

var tasksPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete problems older than tasks.retention.days and the oldest problems
beyond tasks.retention.max_records.

Examples:
  # Prune with the configured policy
  stylecheck tasks prune

  # Delete everything older than a day
  stylecheck tasks prune --older-than 24h`,
	RunE: pruneTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd, tasksExportCmd, tasksPruneCmd)

	for _, c := range []*cobra.Command{tasksListCmd, tasksExportCmd} {
		c.Flags().StringVar(&tasksFlags.file, "file", "", "filter by file")
		c.Flags().StringVar(&tasksFlags.scanID, "scan-id", "", "filter by scan ID")
		c.Flags().StringVar(&tasksFlags.minLevel, "min-level", "", "lowest level listed (info, warning, error)")
		c.Flags().IntVar(&tasksFlags.limit, "limit", tasks.DefaultLimit, "max results")
		c.Flags().IntVar(&tasksFlags.offset, "offset", 0, "pagination offset")
		c.Flags().StringVarP(&tasksFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	tasksListCmd.Flags().StringVarP(&tasksFlags.format, "format", "f", "text", "output format: text, json, csv")
	tasksExportCmd.Flags().StringVarP(&tasksFlags.exportAs, "format", "f", "json", "export format: json, csv")
	tasksPruneCmd.Flags().DurationVar(&tasksFlags.olderThan, "older-than", 0, "delete problems older than this instead of applying the retention policy")
}

// openTasks opens the configured task database.
func openTasks(cmd *cobra.Command) (*tasks.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	store, err := tasks.NewSQLiteStore(cfg.Tasks.SQLite, logger)
	if err != nil {
		return nil, cli.NewCommandError(cmd.Name(), err)
	}
	return store, nil
}

// taskQuery builds a query from the filter flags.
func taskQuery() (*tasks.Query, error) {
	q := &tasks.Query{
		ScanID: tasksFlags.scanID,
		Limit:  tasksFlags.limit,
		Offset: tasksFlags.offset,
	}
	if tasksFlags.file != "" {
		abs, err := filepath.Abs(tasksFlags.file)
		if err != nil {
			return nil, err
		}
		q.File = abs
	}
	if tasksFlags.minLevel != "" {
		level, err := diag.ParseLevel(tasksFlags.minLevel)
		if err != nil {
			return nil, cli.NewConfigError("--min-level", err.Error())
		}
		q.MinLevel = level
	}
	return q, nil
}

// outputWriter returns the --output file or stdout.
func outputWriter(cmd *cobra.Command) (io.Writer, func() error, error) {
	if tasksFlags.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(tasksFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func queryTasks(cmd *cobra.Command) ([]*tasks.Task, error) {
	q, err := taskQuery()
	if err != nil {
		return nil, err
	}
	store, err := openTasks(cmd)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return store.Query(ctx, q)
}

func listTasks(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(tasksFlags.format)
	if err != nil {
		return err
	}
	list, err := queryTasks(cmd)
	if err != nil {
		return err
	}

	events := make([]diag.Event, len(list))
	for i, t := range list {
		events[i] = t.Event()
	}

	w, closeOut, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	return cli.NewFormatter(format, useColor() && tasksFlags.output == "").FormatEvents(w, events)
}

func exportTasks(cmd *cobra.Command, args []string) error {
	format := tasks.ExportFormat(tasksFlags.exportAs)
	if format != tasks.FormatJSON && format != tasks.FormatCSV {
		return cli.NewConfigError("--format", fmt.Sprintf("unknown export format %q (want json or csv)", tasksFlags.exportAs))
	}
	list, err := queryTasks(cmd)
	if err != nil {
		return err
	}

	w, closeOut, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	if err := tasks.Export(w, format, list); err != nil {
		return err
	}
	if tasksFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d tasks to %s\n", len(list), tasksFlags.output)
	}
	return nil
}

func pruneTasks(cmd *cobra.Command, args []string) error {
	store, err := openTasks(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	var deleted int64
	if tasksFlags.olderThan > 0 {
		cutoff := time.Now().Add(-tasksFlags.olderThan)
		deleted, err = store.Delete(ctx, &tasks.Query{Before: &cutoff})
	} else {
		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			return cfgErr
		}
		deleted, err = tasks.NewPruner(store, cfg.Tasks.Retention, nil).Prune(ctx)
	}
	if err != nil {
		return cli.NewCommandError("tasks prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d tasks\n", deleted)
	return nil
}
