package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/scan"
	"mercator-hq/stylecheck/pkg/snapshot"
	"mercator-hq/stylecheck/pkg/tasks"
	"mercator-hq/stylecheck/pkg/telemetry/health"
	"mercator-hq/stylecheck/pkg/watch"
)

var watchFlags struct {
	format   string
	listen   string
	severity string
}

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Check files continuously as they change",
	Long: `Check every file once, then recheck files as they are saved.

A later save of the same file cancels a check still running for it. Editing
the preferences rebuilds the checker configuration after scan.reload_delay
and rechecks every file.

When telemetry.listen_address is set, Prometheus metrics and health probes
are served there until the command is interrupted.

Examples:
  # Watch the current directory
  stylecheck watch

  # Watch a tree and serve telemetry on another port
  stylecheck watch ./src --listen 127.0.0.1:9100`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.format, "format", "f", "text", "output format: text, json, csv")
	watchCmd.Flags().StringVarP(&watchFlags.listen, "listen", "l", "", "override telemetry listen address")
	watchCmd.Flags().StringVar(&watchFlags.severity, "severity", "", "override the stored severity (ignore, info, warning, error)")
}

// watcher rechecks files in response to saves and preference changes.
type watcher struct {
	app       *app
	batch     *scan.BatchScanner
	formatter cli.Formatter
	sessionID string

	// refresh is signaled after every snapshot rebuild.
	refresh chan struct{}

	// scans tracks rechecks still running.
	scans sync.WaitGroup

	mu  sync.Mutex
	out io.Writer
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(watchFlags.format)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	errOut := cmd.ErrOrStderr()
	refresh := make(chan struct{}, 1)
	a, err := newApp(ctx, errOut, appOptions{
		severity: watchFlags.severity,
		notify: func(message string) {
			fmt.Fprintln(errOut, "Configuration error:", message)
		},
		listeners: []snapshot.Listener{
			func(*snapshot.Snapshot, error) {
				select {
				case refresh <- struct{}{}:
				default:
				}
			},
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if watchFlags.listen != "" {
		a.cfg.Telemetry.ListenAddress = watchFlags.listen
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	w := &watcher{
		app:       a,
		batch:     a.batch(),
		formatter: cli.NewFormatter(format, useColor()),
		sessionID: uuid.NewString(),
		refresh:   refresh,
		out:       cmd.OutOrStdout(),
	}
	defer w.batch.Finish()

	w.registerHealthChecks()

	if a.tasks != nil {
		pruner := tasks.NewPruner(a.tasks, a.cfg.Tasks.Retention, a.logger)
		scheduler := tasks.NewScheduler(pruner, a.logger)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("tasks.retention.prune_schedule", err.Error())
		}
		defer scheduler.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	a.snapshots.Start(gctx)

	g.Go(func() error {
		return a.telemetry.Serve(gctx)
	})

	if a.fileStore != nil && a.cfg.Settings.Watch {
		g.Go(func() error {
			return a.fileStore.Watch(gctx, a.cfg.Settings.WatchDebounce)
		})
	}

	fwConfig := watch.DefaultConfig()
	fwConfig.Paths = paths
	fwConfig.Extensions = a.cfg.Scan.Extensions
	fw, err := watch.NewFileWatcher(fwConfig, a.logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer fw.Stop()

	g.Go(func() error {
		return fw.Watch(gctx, func(changed []string) error {
			w.recheck(gctx, changed)
			return nil
		})
	})

	g.Go(func() error {
		return w.refreshLoop(gctx, paths)
	})

	a.logger.Info("Watching for changes", "paths", paths, "session_id", w.sessionID)
	err = g.Wait()
	a.coord.CancelAll()
	w.scans.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, snapshot.ErrClosed) {
		return nil
	}
	return err
}

func (w *watcher) registerHealthChecks() {
	checker := w.app.telemetry.Health()
	checker.RegisterCheck("configuration", health.ErrorCheck(w.app.snapshots.Err))
	checker.RegisterCheck("snapshot", health.StartedCheck(func() bool {
		return w.app.snapshots.Current() != nil || w.app.snapshots.Err() != nil
	}))
	if w.app.tasks != nil {
		checker.RegisterCheck("tasks", health.PingCheck(w.app.tasks))
	}
}

// refreshLoop rechecks every file after each snapshot rebuild. The first
// rebuild, started by the snapshot store, performs the initial check.
func (w *watcher) refreshLoop(ctx context.Context, paths []string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.refresh:
		}

		report, err := w.batch.ScanAll(ctx, paths)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var cfgErr *snapshot.ConfigError
			if errors.As(err, &cfgErr) {
				// Reported through the error reporter; wait for the
				// next preference change.
				continue
			}
			return err
		}
		w.print(report.Events())
	}
}

// recheck starts a check of each saved file. A check still running for
// the same file is canceled.
func (w *watcher) recheck(ctx context.Context, paths []string) {
	for _, path := range paths {
		if !w.batch.Matches(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			w.app.coord.CancelFile(path)
			continue
		}

		w.scans.Add(1)
		go func() {
			defer w.scans.Done()
			events, err := w.app.coord.ScanFile(ctx, scan.Request{Path: path})
			if err != nil {
				var cfgErr *snapshot.ConfigError
				if !errors.As(err, &cfgErr) {
					w.app.logger.Warn("Check failed", "file", path, "error", err)
				}
				return
			}
			if events == nil {
				// Skipped or canceled.
				return
			}
			if w.app.tasks != nil {
				if err := w.app.tasks.Record(ctx, w.sessionID, path, events); err != nil {
					w.app.logger.Warn("Failed to store check result", "file", path, "error", err)
				}
			}
			w.print(events)
		}()
	}
}

func (w *watcher) print(events []diag.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.formatter.FormatEvents(w.out, events); err != nil {
		w.app.logger.Warn("Failed to write results", "error", err)
	}
}
