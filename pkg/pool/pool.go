package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/snapshot"
)

// Reasons passed to Recorder.PoolDestroyed.
const (
	ReasonEvicted  = "evicted"
	ReasonReleased = "released"
	ReasonCleared  = "cleared"
)

// Recorder receives pool activity. *metrics.Collector implements it.
type Recorder interface {
	PoolHit()
	PoolMiss()
	PoolDestroyed(reason string)
	PoolInUse(n int)
}

type noopRecorder struct{}

func (noopRecorder) PoolHit()             {}
func (noopRecorder) PoolMiss()            {}
func (noopRecorder) PoolDestroyed(string) {}
func (noopRecorder) PoolInUse(int)        {}

// slot is the cached checker and the keys it was configured with.
type slot struct {
	checker *engine.Checker
	loader  *engine.Loader
	snap    *snapshot.Snapshot
	inUse   bool
}

// EnginePool is a single-slot cache of configured checkers. It never
// hands the same checker to two callers at once and never destroys a
// checker that is still in use.
type EnginePool struct {
	logger   *slog.Logger
	recorder Recorder

	mu    sync.Mutex
	slot  *slot
	inUse int
}

// Option configures an EnginePool.
type Option func(*EnginePool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *EnginePool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(p *EnginePool) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New creates an empty pool.
func New(opts ...Option) *EnginePool {
	p := &EnginePool{
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "engine.pool")
	return p
}

// Acquire returns a checker configured for snap with loader as the
// module loader. A nil loader uses the loader bound to ctx.
//
// The slot is reused when it was configured with the same loader (by
// identity or Equal) and the same snapshot instance and is not in use.
// When the keys differ a new checker replaces the slot; the displaced one
// is destroyed now if idle, or on Release otherwise. When the keys match
// but the slot is busy the caller gets a private checker that Release
// destroys.
//
// Configuration failures return an *engine.ConfigurationError and leave
// the slot untouched.
func (p *EnginePool) Acquire(ctx context.Context, loader *engine.Loader, snap *snapshot.Snapshot) (*engine.Checker, error) {
	if snap == nil {
		return nil, fmt.Errorf("acquire checker: nil snapshot")
	}
	if loader == nil {
		loader = engine.LoaderFrom(ctx)
	}

	p.mu.Lock()
	if s := p.slot; s != nil && s.snap == snap && sameLoader(s.loader, loader) {
		if !s.inUse {
			s.inUse = true
			p.inUse++
			p.recorder.PoolHit()
			p.recorder.PoolInUse(p.inUse)
			p.mu.Unlock()
			return s.checker, nil
		}
		p.mu.Unlock()
		return p.private(ctx, loader, snap)
	}
	p.mu.Unlock()

	p.recorder.PoolMiss()
	checker, err := p.configure(ctx, loader, snap)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	old := p.slot
	p.slot = &slot{checker: checker, loader: loader, snap: snap, inUse: true}
	p.inUse++
	p.recorder.PoolInUse(p.inUse)
	p.mu.Unlock()

	if old != nil && !old.inUse {
		p.destroy(old.checker, ReasonEvicted)
	}

	p.logger.DebugContext(ctx, "Engine slot replaced",
		"generation", snap.Generation,
		"classpath", loader.Classpath(),
	)
	return checker, nil
}

// private builds a checker that is never published as the slot.
func (p *EnginePool) private(ctx context.Context, loader *engine.Loader, snap *snapshot.Snapshot) (*engine.Checker, error) {
	p.recorder.PoolMiss()
	checker, err := p.configure(ctx, loader, snap)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.inUse++
	p.recorder.PoolInUse(p.inUse)
	p.mu.Unlock()
	return checker, nil
}

func (p *EnginePool) configure(ctx context.Context, loader *engine.Loader, snap *snapshot.Snapshot) (*engine.Checker, error) {
	checker := engine.NewChecker(p.logger)
	if err := checker.Configure(ctx, loader, snap.EngineConfig); err != nil {
		checker.Destroy()
		return nil, err
	}
	return checker, nil
}

// Release returns checker to the pool. The slot checker is kept for
// reuse; any other checker is destroyed.
func (p *EnginePool) Release(checker *engine.Checker) {
	if checker == nil {
		return
	}

	p.mu.Lock()
	if p.inUse > 0 {
		p.inUse--
	}
	p.recorder.PoolInUse(p.inUse)
	if s := p.slot; s != nil && s.checker == checker {
		s.inUse = false
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.destroy(checker, ReasonReleased)
}

// Clear forgets the slot and destroys its checker unless it is in use, in
// which case Release destroys it.
func (p *EnginePool) Clear() {
	p.mu.Lock()
	old := p.slot
	p.slot = nil
	p.mu.Unlock()

	if old != nil && !old.inUse {
		p.destroy(old.checker, ReasonCleared)
	}
}

// Cached reports whether checker is the current slot.
func (p *EnginePool) Cached(checker *engine.Checker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slot != nil && p.slot.checker == checker
}

func (p *EnginePool) destroy(checker *engine.Checker, reason string) {
	checker.Destroy()
	p.recorder.PoolDestroyed(reason)
	p.logger.Debug("Engine destroyed", "reason", reason)
}

func sameLoader(a, b *engine.Loader) bool {
	return a == b || a.Equal(b)
}
