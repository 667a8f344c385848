package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/snapshot"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
	"mercator-hq/stylecheck/pkg/telemetry/tracing"
)

// DefaultExtensions are the file extensions batch scans consider.
var DefaultExtensions = []string{".java", ".go"}

// Sink receives the results of a batch scan, one call per scanned file.
// *tasks.Store implements it.
type Sink interface {
	Record(ctx context.Context, scanID, path string, events []diag.Event) error
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Path   string
	Events []diag.Event
	// Err is set when the file could not be read or checked.
	Err error
}

// Report is the outcome of one batch scan.
type Report struct {
	ScanID   string
	Files    []FileResult
	Duration time.Duration
}

// Events returns every event of the batch in file order.
func (r *Report) Events() []diag.Event {
	var out []diag.Event
	for _, f := range r.Files {
		out = append(out, f.Events...)
	}
	return out
}

// Failed returns the files that ended with an error.
func (r *Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Progress observes a batch as files complete. *cli.SimpleProgress
// implements it.
type Progress interface {
	Start(total int64)
	Update(current int64)
	Finish()
}

// BatchOption configures a BatchScanner.
type BatchOption func(*BatchScanner)

// WithExtensions sets the extensions considered when walking directories.
func WithExtensions(exts []string) BatchOption {
	return func(b *BatchScanner) {
		if len(exts) > 0 {
			b.extensions = slices.Clone(exts)
		}
	}
}

// WithJobs bounds the number of files scanned at once.
func WithJobs(n int) BatchOption {
	return func(b *BatchScanner) {
		b.jobs = n
	}
}

// WithSink stores every file result.
func WithSink(s Sink) BatchOption {
	return func(b *BatchScanner) {
		b.sink = s
	}
}

// WithProgress reports the number of completed files to p.
func WithProgress(p Progress) BatchOption {
	return func(b *BatchScanner) {
		b.progress = p
	}
}

// BatchScanner scans many files with the coordinator's pooled checker.
type BatchScanner struct {
	coord      *Coordinator
	extensions []string
	jobs       int
	sink       Sink
	progress   Progress
	logger     *slog.Logger
}

// NewBatchScanner creates a batch scanner on top of coord.
func NewBatchScanner(coord *Coordinator, opts ...BatchOption) *BatchScanner {
	b := &BatchScanner{
		coord:      coord,
		extensions: slices.Clone(DefaultExtensions),
		jobs:       coord.workers.Size(),
		logger:     coord.logger.With("component", "scan.batch"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.jobs < 1 {
		b.jobs = 1
	}
	return b
}

// Matches reports whether path has one of the configured extensions.
func (b *BatchScanner) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range b.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// Collect expands paths into the files a batch scan would check:
// directories are walked recursively, skipping hidden ones, and only
// files with a configured extension are kept. The result is sorted and
// free of duplicates.
func (b *BatchScanner) Collect(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		path = absPath(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", root, err)
		}
		if !info.IsDir() {
			if b.Matches(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if b.Matches(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %q: %w", root, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// ScanAll collects paths and scans every file. Unreadable files are
// recorded in their FileResult; a configuration error stops the batch and
// is returned, since no file could be checked.
func (b *BatchScanner) ScanAll(ctx context.Context, paths []string) (*Report, error) {
	files, err := b.Collect(paths)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ScanID: uuid.NewString(),
		Files:  make([]FileResult, len(files)),
	}
	start := time.Now()
	ctx = logging.WithScanID(ctx, report.ScanID)
	ctx, span := b.coord.tracer.Start(ctx, "scan.batch")
	tracing.SetBatchAttributes(span, report.ScanID, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)

	var done atomic.Int64
	if b.progress != nil {
		b.progress.Start(int64(len(files)))
	}

	for i, path := range files {
		g.Go(func() error {
			events, err := b.coord.ScanPooled(gctx, path)
			var cfgErr *snapshot.ConfigError
			if errors.As(err, &cfgErr) {
				return err
			}
			report.Files[i] = FileResult{Path: path, Events: events, Err: err}
			if b.progress != nil {
				b.progress.Update(done.Add(1))
			}
			if err != nil || gctx.Err() != nil {
				return nil
			}
			if b.sink != nil {
				if err := b.sink.Record(gctx, report.ScanID, path, events); err != nil {
					b.logger.WarnContext(gctx, "Failed to store scan result",
						"file", path,
						"error", err,
					)
				}
			}
			return nil
		})
	}

	err = g.Wait()
	report.Duration = time.Since(start)
	if b.progress != nil {
		b.progress.Finish()
	}
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "Batch scan finished",
		"files", len(files),
		"events", len(report.Events()),
		"failed", len(report.Failed()),
		"duration", report.Duration,
	)
	return report, nil
}

// Finish releases the pooled checker at the end of a batch.
func (b *BatchScanner) Finish() {
	b.coord.pool.Clear()
}
