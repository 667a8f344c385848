package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/settings"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
)

// countingBuilder returns a builder whose default property source counts
// invocations, one per build.
func countingBuilder(builds *atomic.Int64) *Builder {
	return NewBuilder(logging.Discard(), WithDefaultProperties(func() engine.Properties {
		builds.Add(1)
		return engine.Properties{"basedir": "/work"}
	}))
}

// recordListener collects published results.
type recordListener struct {
	mu    sync.Mutex
	snaps []*Snapshot
	errs  []error
	ch    chan struct{}
}

func newRecordListener() *recordListener {
	return &recordListener{ch: make(chan struct{}, 64)}
}

func (r *recordListener) listen(snap *Snapshot, err error) {
	r.mu.Lock()
	if err != nil {
		r.errs = append(r.errs, err)
	} else {
		r.snaps = append(r.snaps, snap)
	}
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recordListener) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a rebuild")
	}
}

func (r *recordListener) last() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func TestStore_GetBuildsSynchronously(t *testing.T) {
	var builds atomic.Int64
	store := NewStore(settings.NewMemoryStore(settings.Values{}),
		WithLogger(logging.Discard()),
		WithBuilder(countingBuilder(&builds)),
	)
	defer store.Close()

	snap, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if snap.Policy != diag.PolicyIgnore {
		t.Errorf("Policy = %v, want IGNORE", snap.Policy)
	}
	if snap.Loader != engine.DefaultLoader() {
		t.Error("empty classpath should use the default loader")
	}
	if snap.EngineConfig == nil || snap.EngineConfig.Source != engine.DefaultConfigurationName {
		t.Errorf("EngineConfig = %+v, want the bundled configuration", snap.EngineConfig)
	}

	again, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if again != snap {
		t.Error("Get() rebuilt an unchanged snapshot")
	}
	if got := builds.Load(); got != 1 {
		t.Errorf("builds = %d, want 1", got)
	}
}

func TestStore_DebounceCoalescesBurst(t *testing.T) {
	var builds atomic.Int64
	prefs := settings.NewMemoryStore(settings.Values{})
	listener := newRecordListener()
	store := NewStore(prefs,
		WithLogger(logging.Discard()),
		WithBuilder(countingBuilder(&builds)),
		WithDelay(50*time.Millisecond),
		WithListener(listener.listen),
	)
	defer store.Close()

	for i := 1; i <= 5; i++ {
		v := prefs.Values().Clone()
		v.CustomProperties = map[string]string{"max.line.length": strconv.Itoa(100 + i)}
		if err := prefs.SetValues(v); err != nil {
			t.Fatalf("SetValues() error = %v, want nil", err)
		}
		store.OnPreferencesChanged()
		time.Sleep(5 * time.Millisecond)
	}

	listener.wait(t)
	time.Sleep(150 * time.Millisecond)

	if got := builds.Load(); got != 1 {
		t.Errorf("builds = %d, want exactly 1 for the burst", got)
	}
	snap := listener.last()
	if snap == nil {
		t.Fatal("no snapshot published")
	}
	if got := snap.Properties["max.line.length"]; got != "105" {
		t.Errorf("max.line.length = %q, want the last value 105", got)
	}
	if snap.Generation != 5 {
		t.Errorf("Generation = %d, want 5", snap.Generation)
	}
}

func TestStore_GetDuringDebounceWindowIsFresh(t *testing.T) {
	var builds atomic.Int64
	prefs := settings.NewMemoryStore(settings.Values{})
	store := NewStore(prefs,
		WithLogger(logging.Discard()),
		WithBuilder(countingBuilder(&builds)),
		WithDelay(50*time.Millisecond),
	)
	defer store.Close()

	if _, err := store.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}

	if err := prefs.SetValues(settings.Values{Severity: diag.PolicyError}); err != nil {
		t.Fatalf("SetValues() error = %v, want nil", err)
	}
	store.OnPreferencesChanged()

	if store.Current() != nil {
		t.Error("Current() should be cleared by a preference change")
	}

	snap, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if snap.Policy != diag.PolicyError {
		t.Errorf("Policy = %v, want ERROR", snap.Policy)
	}

	time.Sleep(150 * time.Millisecond)
	if got := builds.Load(); got != 2 {
		t.Errorf("builds = %d, want 2 (scheduled rebuild superseded by Get)", got)
	}
	if store.Current() != snap {
		t.Error("synchronously built snapshot was replaced")
	}
}

func TestStore_ChangeHookRunsOnEveryChange(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(settings.NewMemoryStore(settings.Values{}),
		WithLogger(logging.Discard()),
		WithDelay(time.Hour),
		WithChangeHook(func() { calls.Add(1) }),
	)

	store.OnPreferencesChanged()
	store.OnPreferencesChanged()
	if got := calls.Load(); got != 2 {
		t.Errorf("hook calls = %d, want 2", got)
	}

	store.Close()
	store.OnPreferencesChanged()
	if got := calls.Load(); got != 2 {
		t.Errorf("hook calls after Close = %d, want 2", got)
	}
}

func TestStore_ConfigErrorCached(t *testing.T) {
	var builds atomic.Int64
	missing := filepath.Join(t.TempDir(), "missing.xml")
	prefs := settings.NewMemoryStore(settings.Values{CustomConfigFile: missing})
	store := NewStore(prefs,
		WithLogger(logging.Discard()),
		WithBuilder(countingBuilder(&builds)),
		WithDelay(time.Hour),
	)
	defer store.Close()

	_, err := store.Get(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Get() error = %v, want *ConfigError", err)
	}
	if cfgErr.Op != OpLoadConfig || cfgErr.Path != missing {
		t.Errorf("ConfigError = %+v", cfgErr)
	}

	_, again := store.Get(context.Background())
	if again != err {
		t.Errorf("second Get() error = %v, want the cached error", again)
	}
	if store.Err() != err {
		t.Errorf("Err() = %v, want the cached error", store.Err())
	}
	if got := builds.Load(); got != 1 {
		t.Errorf("builds = %d, want 1", got)
	}

	if err := prefs.SetValues(settings.Values{}); err != nil {
		t.Fatalf("SetValues() error = %v, want nil", err)
	}
	store.OnPreferencesChanged()
	if store.Err() != nil {
		t.Error("Err() should be cleared by a preference change")
	}
	if _, err := store.Get(context.Background()); err != nil {
		t.Errorf("Get() after fix error = %v, want nil", err)
	}
}

func TestStore_RebuildTwiceIsEquivalent(t *testing.T) {
	store := NewStore(settings.NewMemoryStore(settings.Values{
		Severity:            diag.PolicyWarning,
		CustomProperties:    map[string]string{"max.line.length": "80"},
		IgnoredPathsPattern: ".*/gen/.*",
	}), WithLogger(logging.Discard()))
	defer store.Close()

	a, err := store.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v, want nil", err)
	}
	b, err := store.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v, want nil", err)
	}

	if a == b {
		t.Error("Rebuild() returned the same instance twice")
	}
	if a.SameEngine(b) {
		t.Error("rebuilt snapshots should not share an engine configuration")
	}
	if !a.Equivalent(b) {
		t.Error("rebuilt snapshots should be equivalent")
	}
	if store.Current() != b {
		t.Error("Current() should be the latest rebuild")
	}
}

func TestStore_StaleBuildDiscarded(t *testing.T) {
	prefs := settings.NewMemoryStore(settings.Values{})
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	builder := NewBuilder(logging.Discard(), WithDefaultProperties(func() engine.Properties {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return engine.Properties{}
	}))
	store := NewStore(prefs,
		WithLogger(logging.Discard()),
		WithBuilder(builder),
		WithDelay(time.Hour),
	)
	defer store.Close()

	type result struct {
		snap *Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := store.Get(context.Background())
		done <- result{snap, err}
	}()

	<-entered
	if err := prefs.SetValues(settings.Values{Severity: diag.PolicyError}); err != nil {
		t.Fatalf("SetValues() error = %v, want nil", err)
	}
	store.OnPreferencesChanged()
	close(release)

	res := <-done
	if res.err != nil {
		t.Fatalf("Get() error = %v, want nil", res.err)
	}
	if res.snap.Policy != diag.PolicyError {
		t.Errorf("Policy = %v, want ERROR from the newer preferences", res.snap.Policy)
	}
	if res.snap.Generation != 1 {
		t.Errorf("Generation = %d, want 1", res.snap.Generation)
	}
}

func TestStore_StartFollowsChanges(t *testing.T) {
	prefs := settings.NewMemoryStore(settings.Values{})
	listener := newRecordListener()
	store := NewStore(prefs,
		WithLogger(logging.Discard()),
		WithDelay(10*time.Millisecond),
		WithListener(listener.listen),
	)

	ctx, cancel := context.WithCancel(context.Background())
	store.Start(ctx)
	listener.wait(t)

	if err := prefs.SetValues(settings.Values{Severity: diag.PolicyWarning}); err != nil {
		t.Fatalf("SetValues() error = %v, want nil", err)
	}
	listener.wait(t)

	if snap := listener.last(); snap == nil || snap.Policy != diag.PolicyWarning {
		t.Errorf("last snapshot = %+v, want WARNING policy", snap)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := store.Get(context.Background()); errors.Is(err, ErrClosed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("store not closed after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuilder_PropertyLayering(t *testing.T) {
	dir := t.TempDir()
	propFile := filepath.Join(dir, "checks.properties")
	if err := os.WriteFile(propFile, []byte("b=file\nc=file\n"), 0644); err != nil {
		t.Fatalf("failed to write property file: %v", err)
	}

	builder := NewBuilder(logging.Discard(), WithDefaultProperties(func() engine.Properties {
		return engine.Properties{"a": "default", "b": "default", "c": "default"}
	}))

	snap, err := builder.Build(context.Background(), settings.Values{
		CustomPropertyFile: propFile,
		CustomProperties:   map[string]string{"c": "custom"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	want := map[string]string{"a": "default", "b": "file", "c": "custom"}
	for k, v := range want {
		if got := snap.Properties[k]; got != v {
			t.Errorf("property %s = %q, want %q", k, got, v)
		}
	}
}

func TestBuilder_RecoverableProblems(t *testing.T) {
	builder := NewBuilder(logging.Discard())

	snap, err := builder.Build(context.Background(), settings.Values{
		CustomPropertyFile:  filepath.Join(t.TempDir(), "absent.properties"),
		CustomClasspath:     []string{filepath.Join(t.TempDir(), "absent-dir")},
		IgnoredPathsPattern: "([unclosed",
		CheckedPathsPattern: ".*\\.java",
	})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	if snap.IgnoredPaths != nil {
		t.Error("malformed ignored pattern should be treated as absent")
	}
	if snap.CheckedPaths == nil {
		t.Fatal("checked pattern should compile")
	}
}

func TestBuilder_InvalidClasspathDefinition(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(bad, []byte("checks:\n  - name: NoFormat\n"), 0644); err != nil {
		t.Fatalf("failed to write rules: %v", err)
	}

	_, err := NewBuilder(logging.Discard()).Build(context.Background(), settings.Values{
		CustomClasspath: []string{dir},
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Build() error = %v, want *ConfigError", err)
	}
	if cfgErr.Op != OpResolveClasspath || cfgErr.Path != bad {
		t.Errorf("ConfigError = %+v, want classpath error for %s", cfgErr, bad)
	}
}

func TestSnapshot_Skip(t *testing.T) {
	builder := NewBuilder(logging.Discard())
	snap, err := builder.Build(context.Background(), settings.Values{
		CheckedPathsPattern: ".*\\.java",
		IgnoredPathsPattern: ".*/generated/.*",
	})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	tests := []struct {
		path string
		skip bool
	}{
		{"/src/app/Main.java", false},
		{"/src/app/main.go", true},
		{"/src/generated/Form.java", true},
		{"/src/app/Main.java.bak", true},
	}
	for _, tt := range tests {
		if got := snap.Skip(tt.path); got != tt.skip {
			t.Errorf("Skip(%q) = %v, want %v", tt.path, got, tt.skip)
		}
	}
}
