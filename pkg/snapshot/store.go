package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mercator-hq/stylecheck/pkg/settings"
	"mercator-hq/stylecheck/pkg/telemetry/logging"
	"mercator-hq/stylecheck/pkg/telemetry/tracing"
	"mercator-hq/stylecheck/pkg/watch"
)

// DefaultDelay is the quiet period between the last preference change of
// a burst and the rebuild it schedules.
const DefaultDelay = 300 * time.Millisecond

// Rebuild results reported to Metrics.
const (
	ResultPublished = "published"
	ResultStale     = "stale"
	ResultError     = "error"
)

// Metrics receives rebuild outcomes. *metrics.Collector implements it.
type Metrics interface {
	SnapshotRebuilt(result string, duration time.Duration, generation uint64)
}

// Listener is called after every published rebuild with either the new
// snapshot or the error that replaced it.
type Listener func(snap *Snapshot, err error)

type noopMetrics struct{}

func (noopMetrics) SnapshotRebuilt(string, time.Duration, uint64) {}

// Option configures a Store.
type Option func(*Store)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Store) {
		s.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder replaces the snapshot builder.
func WithBuilder(b *Builder) Option {
	return func(s *Store) {
		s.builder = b
	}
}

// WithMetrics sets the rebuild metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer records a span per rebuild.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

// WithListener registers a callback for published rebuilds.
func WithListener(l Listener) Option {
	return func(s *Store) {
		s.listeners = append(s.listeners, l)
	}
}

// WithChangeHook registers fn to run on every preference change, before
// any rebuild for it starts. fn runs under the store lock and must not
// call back into the Store.
func WithChangeHook(fn func()) Option {
	return func(s *Store) {
		s.changeHooks = append(s.changeHooks, fn)
	}
}

// Store holds the current Snapshot and rebuilds it when preferences
// change.
//
// A change clears the current snapshot immediately and schedules a
// rebuild after the debounce delay; further changes within the delay
// replace the scheduled rebuild. Get never returns a snapshot older than
// the latest change: while none is published it builds one synchronously.
//
// Builds run outside the lock. Each change bumps a generation counter and
// a finished build is published only if no change arrived meanwhile.
type Store struct {
	src       settings.Store
	builder   *Builder
	logger    *slog.Logger
	metrics   Metrics
	tracer    *tracing.Tracer
	listeners []Listener
	delay     time.Duration

	changeHooks []func()

	debouncer *watch.Debouncer
	group     singleflight.Group

	mu          sync.Mutex
	current     *Snapshot
	lastErr     *ConfigError
	gen         uint64
	pending     uint64 // debouncer token of the scheduled rebuild
	closed      bool
	unsubscribe func()
}

// NewStore creates a Store reading preferences from src. Call Start to
// follow changes.
func NewStore(src settings.Store, opts ...Option) *Store {
	s := &Store{
		src:     src,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "snapshot.store")
	if s.builder == nil {
		s.builder = NewBuilder(s.logger)
	}
	s.debouncer = watch.NewDebouncer(s.delay)
	return s
}

// Start subscribes to preference changes and prepares the first snapshot
// in the background. The store closes when ctx is done.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.unsubscribe = s.src.Subscribe(func(c settings.Change) {
		s.logger.Debug("Preference changed", "property", c.Property)
		s.OnPreferencesChanged()
	})
	gen := s.gen
	s.mu.Unlock()

	context.AfterFunc(ctx, s.Close)

	go func() {
		_, _ = s.rebuildShared(context.WithoutCancel(ctx), gen)
	}()
}

// Get returns the current snapshot, building one synchronously when none
// is published. A failed build is returned as *ConfigError, and repeated
// to every caller until preferences change again.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if s.lastErr != nil {
			err := s.lastErr
			s.mu.Unlock()
			return nil, err
		}
		if s.current != nil {
			snap := s.current
			s.mu.Unlock()
			return snap, nil
		}
		gen, pending := s.gen, s.pending
		s.mu.Unlock()

		// The synchronous build reads the latest values, so the
		// rebuild scheduled for this generation is redundant. A newer
		// change has its own token and stays scheduled.
		s.debouncer.CancelToken(pending)

		snap, err := s.rebuildShared(ctx, gen)
		if errors.Is(err, errStale) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return snap, err
	}
}

// Err returns the cached configuration error, if any, without building.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return s.lastErr
	}
	return nil
}

// Current returns the published snapshot without building one.
func (s *Store) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnPreferencesChanged invalidates the current snapshot and cached error
// and schedules a rebuild after the debounce delay, replacing any rebuild
// already scheduled.
func (s *Store) OnPreferencesChanged() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.lastErr = nil
	s.gen++
	gen := s.gen

	for _, fn := range s.changeHooks {
		fn()
	}
	s.pending = s.debouncer.Trigger(func() {
		_, _ = s.rebuildShared(context.Background(), gen)
	})
	s.mu.Unlock()
}

// Rebuild builds and publishes a snapshot from the current preferences
// right away. The result is a new Snapshot even when nothing changed.
func (s *Store) Rebuild(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	snap, err := s.rebuild(ctx, gen)
	if errors.Is(err, errStale) {
		return s.Get(ctx)
	}
	return snap, err
}

// Close stops the scheduled rebuild and unsubscribes from preference
// changes. It is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	s.debouncer.Stop()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Generation returns the number of preference changes observed.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

var errStale = errors.New("preferences changed during rebuild")

// rebuildShared collapses concurrent builds of the same generation.
func (s *Store) rebuildShared(ctx context.Context, gen uint64) (*Snapshot, error) {
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return s.rebuild(ctx, gen)
	})
	snap, _ := v.(*Snapshot)
	return snap, err
}

// rebuild builds a snapshot for generation gen and publishes it unless a
// newer change arrived.
func (s *Store) rebuild(ctx context.Context, gen uint64) (*Snapshot, error) {
	ctx = logging.WithGeneration(ctx, gen)
	ctx, span := s.tracer.Start(ctx, "snapshot.rebuild")

	start := time.Now()
	snap, err := s.builder.Build(ctx, s.src.Values())
	duration := time.Since(start)

	var cfgErr *ConfigError
	if err != nil && !errors.As(err, &cfgErr) {
		cfgErr = &ConfigError{Op: OpLoadConfig, Cause: err}
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		s.metrics.SnapshotRebuilt(ResultStale, duration, gen)
		s.logger.DebugContext(ctx, "Discarding stale snapshot")
		tracing.End(span, errStale)
		return nil, errStale
	}
	if cfgErr != nil {
		s.current = nil
		s.lastErr = cfgErr
	} else {
		snap.Generation = gen
		s.current = snap
		s.lastErr = nil
	}
	s.mu.Unlock()

	if cfgErr != nil {
		s.metrics.SnapshotRebuilt(ResultError, duration, gen)
		s.logger.InfoContext(ctx, "Configuration rebuild failed", "error", cfgErr)
		tracing.End(span, cfgErr)
		s.notify(nil, cfgErr)
		return nil, cfgErr
	}

	s.metrics.SnapshotRebuilt(ResultPublished, duration, gen)
	s.logger.InfoContext(ctx, "Configuration rebuilt",
		"config", snap.EngineConfig.Source,
		"policy", snap.Policy.String(),
		"classpath", snap.Loader.Classpath(),
		"properties", logging.RedactProperties(snap.Values.CustomProperties),
		"duration", duration,
	)
	tracing.End(span, nil)
	s.notify(snap, nil)
	return snap, nil
}

func (s *Store) notify(snap *Snapshot, err error) {
	for _, l := range s.listeners {
		l(snap, err)
	}
}
