package scan

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/markers"
	"mercator-hq/stylecheck/pkg/pool"
	"mercator-hq/stylecheck/pkg/run"
	"mercator-hq/stylecheck/pkg/snapshot"
	"mercator-hq/stylecheck/pkg/source"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
	"mercator-hq/stylecheck/pkg/telemetry/tracing"
)

// Outcomes passed to Metrics.FileScanned.
const (
	OutcomeChecked  = "checked"
	OutcomeSkipped  = "skipped"
	OutcomeModified = "modified"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Reasons passed to Metrics.EventFiltered.
const (
	FilteredSeverity  = "severity"
	FilteredLine      = "line"
	FilteredGenerated = "generated"
)

// Snapshots supplies configuration snapshots. *snapshot.Store implements
// it.
type Snapshots interface {
	Get(ctx context.Context) (*snapshot.Snapshot, error)
}

// Metrics receives scan activity. *metrics.Collector implements it.
type Metrics interface {
	run.Recorder
	FileScanned(outcome string, duration time.Duration)
	EventReported(check, level string)
	EventFiltered(reason string)
}

type noopMetrics struct{}

func (noopMetrics) RunFinished(string)                {}
func (noopMetrics) FileScanned(string, time.Duration) {}
func (noopMetrics) EventReported(string, string)      {}
func (noopMetrics) EventFiltered(string)              {}

// Request is an interactive scan of one file.
type Request struct {
	// Path of the file.
	Path string

	// Content, when non-nil, is scanned instead of the file on disk.
	Content []byte

	// Modified marks an editor buffer with unsaved changes. Such files are
	// skipped: their line numbers no longer match the saved content.
	Modified bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer records a span per scanned file.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// WithMetrics sets the scan metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPool sets the engine pool used by ScanPooled.
func WithPool(p *pool.EnginePool) Option {
	return func(c *Coordinator) {
		c.pool = p
	}
}

// WithWorkers sets the worker pool runs execute on.
func WithWorkers(w *run.WorkerPool) Option {
	return func(c *Coordinator) {
		c.workers = w
	}
}

// WithMarkers sets the generated region markers.
func WithMarkers(p markers.Patterns) Option {
	return func(c *Coordinator) {
		c.markers = markers.NewFilter(p)
	}
}

// WithReporter sets the configuration error reporter.
func WithReporter(r *ErrorReporter) Option {
	return func(c *Coordinator) {
		c.reporter = r
	}
}

// WithFileTimeout bounds each file scan. A timed out scan ends like a
// canceled one.
func WithFileTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// Coordinator scans files against the current configuration snapshot.
type Coordinator struct {
	snapshots Snapshots
	pool      *pool.EnginePool
	workers   *run.WorkerPool
	markers   *markers.Filter
	reporter  *ErrorReporter
	logger    *slog.Logger
	tracer    *tracing.Tracer
	metrics   Metrics
	timeout   time.Duration

	mu     sync.Mutex
	active map[string]*run.CancellableRun
}

// NewCoordinator creates a coordinator reading snapshots from snapshots.
func NewCoordinator(snapshots Snapshots, opts ...Option) *Coordinator {
	c := &Coordinator{
		snapshots: snapshots,
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		active:    make(map[string]*run.CancellableRun),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "scan.coordinator")
	if c.pool == nil {
		c.pool = pool.New(pool.WithLogger(c.logger))
	}
	if c.workers == nil {
		c.workers = run.NewWorkerPool(run.DefaultWorkers)
	}
	if c.markers == nil {
		c.markers = markers.NewFilter(markers.DefaultPatterns())
	}
	if c.reporter == nil {
		c.reporter = NewErrorReporter(nil, c.logger)
	}
	return c
}

// Pool returns the engine pool used by ScanPooled.
func (c *Coordinator) Pool() *pool.EnginePool {
	return c.pool
}

// Reporter returns the configuration error reporter.
func (c *Coordinator) Reporter() *ErrorReporter {
	return c.reporter
}

// ScanFile scans one file with a private checker. A later ScanFile of the
// same path, or CancelFile, cancels it; a canceled scan returns no events
// and no error. Configuration errors are reported and returned.
func (c *Coordinator) ScanFile(ctx context.Context, req Request) ([]diag.Event, error) {
	path := absPath(req.Path)
	if req.Modified {
		c.metrics.FileScanned(OutcomeModified, 0)
		c.logger.DebugContext(ctx, "Skipping modified buffer", "file", path)
		return nil, nil
	}

	r := run.NewCancellableRun(c.workers, run.WithLogger(c.logger), run.WithRecorder(c.metrics))

	c.mu.Lock()
	if prev, ok := c.active[path]; ok {
		prev.Cancel()
	}
	c.active[path] = r
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.active[path] == r {
			delete(c.active, path)
		}
		c.mu.Unlock()
	}()

	return c.scan(ctx, path, req.Content, r, false)
}

// CancelFile cancels the interactive scan of path and reports whether
// one was running.
func (c *Coordinator) CancelFile(path string) bool {
	path = absPath(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.active[path]
	if ok {
		r.Cancel()
	}
	return ok
}

// CancelAll cancels every interactive scan.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.active {
		r.Cancel()
	}
}

// ScanPooled scans one file from disk with the pooled checker.
func (c *Coordinator) ScanPooled(ctx context.Context, path string) ([]diag.Event, error) {
	r := run.NewCancellableRun(c.workers, run.WithLogger(c.logger), run.WithRecorder(c.metrics))
	return c.scan(ctx, absPath(path), nil, r, true)
}

func (c *Coordinator) scan(ctx context.Context, path string, content []byte, r *run.CancellableRun, pooled bool) ([]diag.Event, error) {
	start := time.Now()
	ctx = logging.WithFile(ctx, path)
	ctx, span := c.tracer.Start(ctx, "scan.file")

	snap, err := c.snapshots.Get(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.reporter.Report(err)
		}
		c.metrics.FileScanned(OutcomeError, time.Since(start))
		tracing.End(span, err)
		return nil, err
	}
	tracing.SetFileAttributes(span, path, snap.Generation)
	span.SetAttributes(attribute.Bool(tracing.AttrPooled, pooled))

	if snap.Skip(path) {
		c.metrics.FileScanned(OutcomeSkipped, time.Since(start))
		tracing.SetSkipped(span, "path filter")
		tracing.End(span, nil)
		return nil, nil
	}

	var file *source.File
	if content != nil {
		file, err = source.Parse(ctx, path, content)
	} else {
		file, err = source.Load(ctx, path)
	}
	if err != nil {
		c.metrics.FileScanned(OutcomeError, time.Since(start))
		tracing.End(span, err)
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := r.Execute(ctx, func(ctx context.Context) ([]diag.Event, error) {
		ctx = engine.WithLoader(ctx, snap.Loader)
		if pooled {
			return c.processPooled(ctx, snap, file)
		}
		return c.processPrivate(ctx, snap, file)
	})
	if err != nil {
		var cfgErr *engine.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.reporter.Report(err)
		}
		c.metrics.FileScanned(OutcomeError, time.Since(start))
		c.logger.InfoContext(ctx, "Scan failed", "error", err)
		tracing.End(span, err)
		return nil, err
	}
	if r.State() == run.StateCanceled {
		c.metrics.FileScanned(OutcomeCanceled, time.Since(start))
		tracing.SetSkipped(span, "canceled")
		tracing.End(span, nil)
		return nil, nil
	}

	events := c.filter(snap, file, raw)
	c.metrics.FileScanned(OutcomeChecked, time.Since(start))
	tracing.SetResultAttributes(span, len(events), len(raw)-len(events))
	tracing.End(span, nil)

	c.logger.DebugContext(ctx, "File scanned",
		"events", len(events),
		"filtered", len(raw)-len(events),
		"generation", snap.Generation,
	)
	return events, nil
}

func (c *Coordinator) processPrivate(ctx context.Context, snap *snapshot.Snapshot, file *source.File) ([]diag.Event, error) {
	checker := engine.NewChecker(c.logger)
	defer checker.Destroy()

	if err := checker.Configure(ctx, nil, snap.EngineConfig); err != nil {
		return nil, err
	}
	return process(ctx, checker, file)
}

func (c *Coordinator) processPooled(ctx context.Context, snap *snapshot.Snapshot, file *source.File) ([]diag.Event, error) {
	checker, err := c.pool.Acquire(ctx, nil, snap)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(checker)

	return process(ctx, checker, file)
}

func process(ctx context.Context, checker *engine.Checker, file *source.File) ([]diag.Event, error) {
	collector := &engine.Collector{}
	checker.AddListener(collector)
	defer checker.RemoveListener(collector)

	if err := checker.Process(ctx, file); err != nil {
		return nil, err
	}
	return collector.Events(), nil
}

// filter drops events below the snapshot policy, file level events and
// events inside generated regions.
func (c *Coordinator) filter(snap *snapshot.Snapshot, file *source.File, raw []diag.Event) []diag.Event {
	kept := make([]diag.Event, 0, len(raw))
	for _, e := range raw {
		switch {
		case e.Line <= 0:
			c.metrics.EventFiltered(FilteredLine)
		case !snap.Policy.Include(e.Level):
			c.metrics.EventFiltered(FilteredSeverity)
		default:
			kept = append(kept, e)
		}
	}

	set := c.markers.SetFor(file)
	out := kept[:0]
	for _, e := range kept {
		if !set.Accept(e.Line) {
			c.metrics.EventFiltered(FilteredGenerated)
			continue
		}
		c.metrics.EventReported(e.Source, e.Level.String())
		out = append(out, e)
	}
	return out
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
