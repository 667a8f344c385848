package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/stylecheck/pkg/cli"
	"mercator-hq/stylecheck/pkg/config"
	"mercator-hq/stylecheck/pkg/markers"
	"mercator-hq/stylecheck/pkg/pool"
	"mercator-hq/stylecheck/pkg/run"
	"mercator-hq/stylecheck/pkg/scan"
	"mercator-hq/stylecheck/pkg/settings"
	"mercator-hq/stylecheck/pkg/snapshot"
	"mercator-hq/stylecheck/pkg/tasks"
	"mercator-hq/stylecheck/pkg/telemetry"
)

// app wires the components shared by check and watch.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	logger    *slog.Logger

	prefs     settings.Store
	fileStore *settings.FileStore
	snapshots *snapshot.Store
	coord     *scan.Coordinator
	tasks     *tasks.Store

	closers []func() error
}

// appOptions adjust how newApp builds the components.
type appOptions struct {
	// severity overrides the stored severity for this process only.
	severity string

	// listeners observe snapshot rebuilds.
	listeners []snapshot.Listener

	// notify receives configuration error messages.
	notify scan.Notifier
}

// loadConfig loads the --config file once per process.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("--config", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp builds telemetry, the preference store, the snapshot store, the
// scan coordinator and, when enabled, the task store. Logs go to logOut.
func newApp(ctx context.Context, logOut io.Writer, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(&cfg.Telemetry, logOut, versionInfo())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	slog.SetDefault(tel.Logger())

	a := &app{
		cfg:       cfg,
		telemetry: tel,
		logger:    tel.Logger(),
	}
	a.closers = append(a.closers, func() error {
		return tel.Shutdown(context.Background())
	})

	if err := a.openSettings(ctx, opts.severity); err != nil {
		a.Close()
		return nil, err
	}

	patterns, err := markers.CompilePatterns(
		cfg.Scan.Markers.RegionStart,
		cfg.Scan.Markers.RegionStop,
		cfg.Scan.Markers.SingleLine,
	)
	if err != nil {
		a.Close()
		return nil, cli.NewConfigError("scan.markers", err.Error())
	}

	reporter := scan.NewErrorReporter(opts.notify, a.logger)
	storeOpts := []snapshot.Option{
		snapshot.WithDelay(cfg.Scan.ReloadDelay),
		snapshot.WithLogger(a.logger),
		snapshot.WithMetrics(tel.Metrics()),
		snapshot.WithTracer(tel.Tracer()),
	}
	storeOpts = append(storeOpts, reporter.SnapshotOptions()...)
	for _, l := range opts.listeners {
		storeOpts = append(storeOpts, snapshot.WithListener(l))
	}
	a.snapshots = snapshot.NewStore(a.prefs, storeOpts...)
	a.closers = append(a.closers, func() error {
		a.snapshots.Close()
		return nil
	})

	a.coord = scan.NewCoordinator(a.snapshots,
		scan.WithLogger(a.logger),
		scan.WithTracer(tel.Tracer()),
		scan.WithMetrics(tel.Metrics()),
		scan.WithPool(pool.New(pool.WithLogger(a.logger), pool.WithRecorder(tel.Metrics()))),
		scan.WithWorkers(run.NewWorkerPool(cfg.Scan.Workers)),
		scan.WithMarkers(patterns),
		scan.WithReporter(reporter),
		scan.WithFileTimeout(cfg.Scan.FileTimeout),
	)

	if cfg.Tasks.Enabled {
		store, err := tasks.NewSQLiteStore(cfg.Tasks.SQLite, a.logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open task store: %w", err)
		}
		a.tasks = store
		a.closers = append(a.closers, store.Close)
	}

	return a, nil
}

// openSettings opens the configured preference store. A severity override
// copies the stored preferences into memory so the store is not written.
func (a *app) openSettings(ctx context.Context, severity string) error {
	prefs, closer, err := openPreferences(ctx, a.cfg.Settings, a.logger)
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.prefs = prefs
	a.fileStore, _ = prefs.(*settings.FileStore)

	if severity != "" {
		policy, err := parseSeverity(severity)
		if err != nil {
			return err
		}
		values := prefs.Values().Clone()
		values.Severity = policy
		a.prefs = settings.NewMemoryStore(values)
		a.fileStore = nil
	}
	return nil
}

// openPreferences opens the preference backend named by cfg.Store.
func openPreferences(ctx context.Context, cfg config.SettingsConfig, logger *slog.Logger) (settings.Store, func() error, error) {
	switch cfg.Store {
	case "file":
		store, err := settings.OpenFileStore(cfg.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open preferences %q: %w", cfg.Path, err)
		}
		return store, nil, nil
	case "sqlite":
		store, err := settings.OpenSQLStore(ctx, cfg.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open preferences %q: %w", cfg.Path, err)
		}
		return store, store.Close, nil
	case "memory":
		return settings.NewMemoryStore(settings.Values{}), nil, nil
	default:
		return nil, nil, cli.NewConfigError("settings.store", fmt.Sprintf("unsupported preference store: %s", cfg.Store))
	}
}

// batch returns a batch scanner storing results when tasks are enabled.
func (a *app) batch(opts ...scan.BatchOption) *scan.BatchScanner {
	base := []scan.BatchOption{scan.WithExtensions(a.cfg.Scan.Extensions)}
	if a.tasks != nil {
		base = append(base, scan.WithSink(a.tasks))
	}
	return scan.NewBatchScanner(a.coord, append(base, opts...)...)
}

// Close releases every component in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
