package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/pool"
	"mercator-hq/stylecheck/pkg/settings"
	"mercator-hq/stylecheck/pkg/snapshot"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
)

// javaSource has trailing spaces on lines 2, 5 and 7, a to-do comment on
// line 3, a generated region on lines 4-6 and no final newline.
const javaSource = "class A {\n" +
	"    int x = 1;  \n" +
	"    // TODO: rename\n" +
	"    // GEN-BEGIN:init\n" +
	"    int y = 2;  \n" +
	"    // GEN-END:init\n" +
	"    int z = 3;  \n" +
	"}"

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
	filtered map[string]int
	reported int
	runs     []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{filtered: make(map[string]int)}
}

func (m *fakeMetrics) RunFinished(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, state)
}

func (m *fakeMetrics) FileScanned(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *fakeMetrics) EventReported(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reported++
}

func (m *fakeMetrics) EventFiltered(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filtered[reason]++
}

func (m *fakeMetrics) lastOutcome() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outcomes) == 0 {
		return ""
	}
	return m.outcomes[len(m.outcomes)-1]
}

func newSnapshotStore(t *testing.T, v settings.Values, opts ...snapshot.Option) *snapshot.Store {
	t.Helper()
	builder := snapshot.NewBuilder(logging.Discard(), snapshot.WithDefaultProperties(func() engine.Properties {
		return engine.Properties{}
	}))
	opts = append([]snapshot.Option{
		snapshot.WithLogger(logging.Discard()),
		snapshot.WithBuilder(builder),
	}, opts...)
	store := snapshot.NewStore(settings.NewMemoryStore(v), opts...)
	t.Cleanup(store.Close)
	return store
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func eventLines(events []diag.Event) []int {
	lines := make([]int, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.Line)
	}
	slices.Sort(lines)
	return lines
}

func TestCoordinator_ScanFileFilters(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), javaSource)
	m := newFakeMetrics()
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}),
		WithLogger(logging.Discard()),
		WithMetrics(m),
	)

	events, err := coord.ScanFile(context.Background(), Request{Path: path})
	if err != nil {
		t.Fatalf("ScanFile() error = %v, want nil", err)
	}

	if got, want := eventLines(events), []int{2, 3, 7}; !slices.Equal(got, want) {
		t.Errorf("event lines = %v, want %v", got, want)
	}
	if m.filtered[FilteredLine] != 1 {
		t.Errorf("file level events filtered = %d, want 1", m.filtered[FilteredLine])
	}
	if m.filtered[FilteredGenerated] != 1 {
		t.Errorf("generated events filtered = %d, want 1", m.filtered[FilteredGenerated])
	}
	if m.reported != 3 {
		t.Errorf("reported = %d, want 3", m.reported)
	}
	if m.lastOutcome() != OutcomeChecked {
		t.Errorf("outcome = %q, want %q", m.lastOutcome(), OutcomeChecked)
	}
}

func TestCoordinator_SeverityPolicy(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), javaSource)
	m := newFakeMetrics()
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{Severity: diag.PolicyWarning}),
		WithLogger(logging.Discard()),
		WithMetrics(m),
	)

	events, err := coord.ScanFile(context.Background(), Request{Path: path})
	if err != nil {
		t.Fatalf("ScanFile() error = %v, want nil", err)
	}
	if got, want := eventLines(events), []int{2, 7}; !slices.Equal(got, want) {
		t.Errorf("event lines = %v, want %v", got, want)
	}
	for _, e := range events {
		if e.Level != diag.LevelWarning {
			t.Errorf("event %v below the WARNING policy", e)
		}
	}
	if m.filtered[FilteredSeverity] != 1 {
		t.Errorf("severity filtered = %d, want 1", m.filtered[FilteredSeverity])
	}
}

func TestCoordinator_ScanFileContent(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), "class A {}\n")
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}), WithLogger(logging.Discard()))

	events, err := coord.ScanFile(context.Background(), Request{
		Path:    path,
		Content: []byte("class A {  \n}\n"),
	})
	if err != nil {
		t.Fatalf("ScanFile() error = %v, want nil", err)
	}
	if got := eventLines(events); !slices.Equal(got, []int{1}) {
		t.Errorf("event lines = %v, want [1] from the buffer content", got)
	}
}

func TestCoordinator_SkipsFiltered(t *testing.T) {
	dir := t.TempDir()
	generated := writeFile(t, filepath.Join(dir, "gen", "A.java"), javaSource)
	other := writeFile(t, filepath.Join(dir, "main.go"), "package main  \n")
	m := newFakeMetrics()
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{
		IgnoredPathsPattern: ".*/gen/.*",
		CheckedPathsPattern: ".*\\.java",
	}), WithLogger(logging.Discard()), WithMetrics(m))

	for _, path := range []string{generated, other} {
		events, err := coord.ScanFile(context.Background(), Request{Path: path})
		if err != nil {
			t.Fatalf("ScanFile(%s) error = %v, want nil", path, err)
		}
		if len(events) != 0 {
			t.Errorf("ScanFile(%s) = %v, want no events", path, events)
		}
		if m.lastOutcome() != OutcomeSkipped {
			t.Errorf("outcome = %q, want %q", m.lastOutcome(), OutcomeSkipped)
		}
	}
	if len(m.runs) != 0 {
		t.Errorf("runs = %v, want none for skipped files", m.runs)
	}
}

func TestCoordinator_SkipsModifiedBuffer(t *testing.T) {
	m := newFakeMetrics()
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}),
		WithLogger(logging.Discard()),
		WithMetrics(m),
	)

	events, err := coord.ScanFile(context.Background(), Request{Path: "/nowhere/A.java", Modified: true})
	if err != nil || events != nil {
		t.Fatalf("ScanFile() = %v, %v, want nil, nil", events, err)
	}
	if m.lastOutcome() != OutcomeModified {
		t.Errorf("outcome = %q, want %q", m.lastOutcome(), OutcomeModified)
	}
}

func TestCoordinator_ConfigErrorReportedOnce(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), javaSource)
	var notified []string
	reporter := NewErrorReporter(func(msg string) { notified = append(notified, msg) }, logging.Discard())
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{
		CustomConfigFile: filepath.Join(t.TempDir(), "missing.xml"),
	}), WithLogger(logging.Discard()), WithReporter(reporter))

	for i := 0; i < 3; i++ {
		_, err := coord.ScanFile(context.Background(), Request{Path: path})
		var cfgErr *snapshot.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("ScanFile() error = %v, want *snapshot.ConfigError", err)
		}
	}
	if len(notified) != 1 {
		t.Errorf("notifications = %d, want 1", len(notified))
	}
}

func TestCoordinator_ConfigErrorReportedAgainAfterPreferenceChange(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), javaSource)
	var notified []string
	reporter := NewErrorReporter(func(msg string) { notified = append(notified, msg) }, logging.Discard())
	store := newSnapshotStore(t, settings.Values{
		CustomConfigFile: filepath.Join(t.TempDir(), "missing.xml"),
	}, reporter.SnapshotOptions()...)
	coord := NewCoordinator(store, WithLogger(logging.Discard()), WithReporter(reporter))

	scan := func() {
		t.Helper()
		_, err := coord.ScanFile(context.Background(), Request{Path: path})
		var cfgErr *snapshot.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("ScanFile() error = %v, want *snapshot.ConfigError", err)
		}
	}

	scan()
	scan()
	store.OnPreferencesChanged()
	scan()

	if len(notified) != 2 {
		t.Fatalf("notifications = %d, want 2: %q", len(notified), notified)
	}
	if notified[0] != notified[1] {
		t.Errorf("notifications = %q, want the same message twice", notified)
	}
}

// blockingSnapshots holds Get until released.
type blockingSnapshots struct {
	snap    *snapshot.Snapshot
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSnapshots) Get(ctx context.Context) (*snapshot.Snapshot, error) {
	close(b.entered)
	<-b.release
	return b.snap, nil
}

func TestCoordinator_CancelFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "A.java"), javaSource)
	snap, err := snapshot.NewBuilder(logging.Discard()).Build(context.Background(), settings.Values{})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	snaps := &blockingSnapshots{snap: snap, entered: make(chan struct{}), release: make(chan struct{})}
	m := newFakeMetrics()
	coord := NewCoordinator(snaps, WithLogger(logging.Discard()), WithMetrics(m))

	type result struct {
		events []diag.Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := coord.ScanFile(context.Background(), Request{Path: path})
		done <- result{events, err}
	}()

	<-snaps.entered
	if !coord.CancelFile(path) {
		t.Fatal("CancelFile() = false, want true for a running scan")
	}
	close(snaps.release)

	res := <-done
	if res.err != nil || len(res.events) != 0 {
		t.Errorf("ScanFile() = %v, %v, want no events and nil", res.events, res.err)
	}
	if m.lastOutcome() != OutcomeCanceled {
		t.Errorf("outcome = %q, want %q", m.lastOutcome(), OutcomeCanceled)
	}
	if coord.CancelFile(path) {
		t.Error("CancelFile() = true after the scan finished")
	}
}

type countingRecorder struct {
	mu           sync.Mutex
	hits, misses int
}

func (r *countingRecorder) PoolHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *countingRecorder) PoolMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *countingRecorder) PoolDestroyed(string) {}
func (r *countingRecorder) PoolInUse(int)        {}

func TestCoordinator_ScanPooledReusesChecker(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "A.java"), javaSource)
	b := writeFile(t, filepath.Join(dir, "B.java"), javaSource)
	rec := &countingRecorder{}
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}),
		WithLogger(logging.Discard()),
		WithPool(pool.New(pool.WithLogger(logging.Discard()), pool.WithRecorder(rec))),
	)

	for _, path := range []string{a, b} {
		events, err := coord.ScanPooled(context.Background(), path)
		if err != nil {
			t.Fatalf("ScanPooled() error = %v, want nil", err)
		}
		if got := eventLines(events); !slices.Equal(got, []int{2, 3, 7}) {
			t.Errorf("event lines = %v, want [2 3 7]", got)
		}
	}
	if rec.misses != 1 || rec.hits != 1 {
		t.Errorf("misses = %d hits = %d, want 1 and 1", rec.misses, rec.hits)
	}
}

type memorySink struct {
	mu      sync.Mutex
	scanIDs map[string]struct{}
	paths   []string
}

func (s *memorySink) Record(_ context.Context, scanID, path string, _ []diag.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanIDs == nil {
		s.scanIDs = make(map[string]struct{})
	}
	s.scanIDs[scanID] = struct{}{}
	s.paths = append(s.paths, path)
	return nil
}

func TestBatchScanner_Collect(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "A.java"), javaSource)
	b := writeFile(t, filepath.Join(dir, "b.go"), "package b\n")
	d := writeFile(t, filepath.Join(dir, "sub", "D.java"), "class D {}\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x\n")
	writeFile(t, filepath.Join(dir, ".hidden", "C.java"), "class C {}\n")

	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}), WithLogger(logging.Discard()))
	batch := NewBatchScanner(coord)

	files, err := batch.Collect([]string{dir, a})
	if err != nil {
		t.Fatalf("Collect() error = %v, want nil", err)
	}
	want := []string{a, b, d}
	slices.Sort(want)
	if !slices.Equal(files, want) {
		t.Errorf("Collect() = %v, want %v", files, want)
	}

	javaOnly := NewBatchScanner(coord, WithExtensions([]string{".java"}))
	files, err = javaOnly.Collect([]string{dir})
	if err != nil {
		t.Fatalf("Collect() error = %v, want nil", err)
	}
	if len(files) != 2 {
		t.Errorf("Collect() = %v, want the two java files", files)
	}
}

func TestBatchScanner_ScanAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.java"), javaSource)
	writeFile(t, filepath.Join(dir, "B.java"), javaSource)
	writeFile(t, filepath.Join(dir, "c.go"), "package c\n")

	sink := &memorySink{}
	coord := NewCoordinator(newSnapshotStore(t, settings.Values{}), WithLogger(logging.Discard()))
	batch := NewBatchScanner(coord, WithSink(sink), WithJobs(2))

	report, err := batch.ScanAll(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("ScanAll() error = %v, want nil", err)
	}
	batch.Finish()

	if _, err := uuid.Parse(report.ScanID); err != nil {
		t.Errorf("ScanID %q is not a UUID: %v", report.ScanID, err)
	}
	if len(report.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(report.Files))
	}
	if got := len(report.Events()); got != 6 {
		t.Errorf("events = %d, want 6", got)
	}
	if len(report.Failed()) != 0 {
		t.Errorf("failed = %v, want none", report.Failed())
	}
	if len(sink.paths) != 3 || len(sink.scanIDs) != 1 {
		t.Errorf("sink got %d paths under %d scan IDs, want 3 under 1", len(sink.paths), len(sink.scanIDs))
	}
}

func TestBatchScanner_ConfigErrorStopsBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.java"), javaSource)
	writeFile(t, filepath.Join(dir, "B.java"), javaSource)

	coord := NewCoordinator(newSnapshotStore(t, settings.Values{
		CustomConfigFile: filepath.Join(dir, "missing.xml"),
	}), WithLogger(logging.Discard()))

	_, err := NewBatchScanner(coord).ScanAll(context.Background(), []string{dir})
	var cfgErr *snapshot.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("ScanAll() error = %v, want *snapshot.ConfigError", err)
	}
}

func TestErrorReporter(t *testing.T) {
	var notified []string
	r := NewErrorReporter(func(msg string) { notified = append(notified, msg) }, logging.Discard())

	first := errors.New("bad file")
	if !r.Report(first) {
		t.Error("Report() = false for a new message")
	}
	if r.Report(errors.New("bad file")) {
		t.Error("Report() = true for a repeated message")
	}
	if !r.Report(errors.New("other")) {
		t.Error("Report() = false for a different message")
	}
	if !r.Report(first) {
		t.Error("Report() = false for a message that is no longer the last")
	}

	r.Reset()
	if !r.Report(first) {
		t.Error("Report() = false after Reset")
	}

	r.SnapshotListener()(nil, errors.New("still broken"))
	if r.Report(first) {
		t.Error("failed rebuild should not reset the reporter")
	}
	r.SnapshotListener()(&snapshot.Snapshot{}, nil)
	if !r.Report(first) {
		t.Error("successful rebuild should reset the reporter")
	}

	if len(notified) != 5 {
		t.Errorf("notifications = %d, want 5", len(notified))
	}
}

func TestMessage_UnwrapsParseErrors(t *testing.T) {
	cause := errors.New("XML syntax error on line 1")
	parse := &engine.ConfigurationError{Path: "checks.xml", Parse: true, Cause: cause}
	if got := Message(parse); got != cause.Error() {
		t.Errorf("Message() = %q, want %q", got, cause.Error())
	}

	wrapped := &snapshot.ConfigError{Op: snapshot.OpLoadConfig, Path: "checks.xml", Cause: parse}
	if got := Message(wrapped); got != cause.Error() {
		t.Errorf("Message() = %q, want %q", got, cause.Error())
	}

	module := &engine.ConfigurationError{Module: "Nope", Cause: engine.ErrUnknownModule}
	if got := Message(module); got != module.Error() {
		t.Errorf("Message() = %q, want %q", got, module.Error())
	}
}
