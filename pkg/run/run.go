package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/stylecheck/pkg/diag"
)

// State is the lifecycle state of a CancellableRun.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is Completed, Canceled or Failed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCanceled || s == StateFailed
}

var (
	// ErrNotIdle is returned by Execute when the run was already used and
	// not Reset.
	ErrNotIdle = errors.New("run is not idle")

	// ErrPanic wraps a panic recovered from a task.
	ErrPanic = errors.New("task panicked")
)

// Task is the work of one run. It must stop promptly once ctx is done and
// release everything it acquired before returning.
type Task func(ctx context.Context) ([]diag.Event, error)

// Recorder receives terminal states. *metrics.Collector implements it.
type Recorder interface {
	RunFinished(state string)
}

type noopRecorder struct{}

func (noopRecorder) RunFinished(string) {}

// Option configures a CancellableRun.
type Option func(*CancellableRun)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *CancellableRun) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the terminal state recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *CancellableRun) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// CancellableRun executes one task at a time on a WorkerPool.
//
// Cancel sets a flag that survives until Reset: a run canceled before
// Execute returns immediately without invoking its task.
type CancellableRun struct {
	workers  *WorkerPool
	logger   *slog.Logger
	recorder Recorder

	mu       sync.Mutex
	state    State
	canceled bool
	cancel   context.CancelFunc
	// token identifies the current execution so a Reset in the middle of
	// one keeps it from overwriting the new state.
	token *struct{}
}

// NewCancellableRun creates an idle run. A nil pool gets its own
// single-worker pool.
func NewCancellableRun(workers *WorkerPool, opts ...Option) *CancellableRun {
	if workers == nil {
		workers = NewWorkerPool(1)
	}
	r := &CancellableRun{
		workers:  workers,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "run")
	return r
}

// State returns the current state.
func (r *CancellableRun) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Canceled reports whether the cancellation flag is set.
func (r *CancellableRun) Canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Cancel sets the cancellation flag and interrupts a running task. A
// running run becomes Canceled. It is idempotent.
func (r *CancellableRun) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canceled = true
	if r.state == StateRunning {
		r.state = StateCanceled
	}
	if r.cancel != nil {
		r.cancel()
	}
}

// Reset clears the cancellation flag and returns the run to Idle. A task
// still running is interrupted and its outcome ignored.
func (r *CancellableRun) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = nil
	r.token = nil
	r.canceled = false
	r.state = StateIdle
}

// Execute runs task on the worker pool and waits for it.
//
// A completed task's events are returned as is. A task error fails the
// run and is returned. When the run is canceled, or ctx is done, before
// or during the task, Execute returns no events and a nil error; the
// caller can still observe ctx.Err().
func (r *CancellableRun) Execute(ctx context.Context, task Task) ([]diag.Event, error) {
	r.mu.Lock()
	if r.canceled {
		if r.state == StateIdle {
			r.state = StateCanceled
		}
		r.mu.Unlock()
		r.recorder.RunFinished(StateCanceled.String())
		return nil, nil
	}
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotIdle, state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	token := new(struct{})
	r.state = StateRunning
	r.cancel = cancel
	r.token = token
	r.mu.Unlock()
	defer cancel()

	type result struct {
		events []diag.Event
		err    error
	}
	done := make(chan result, 1)

	err := r.workers.Submit(runCtx, func() {
		var res result
		defer func() {
			if p := recover(); p != nil {
				res = result{err: fmt.Errorf("%w: %v", ErrPanic, p)}
			}
			done <- res
		}()
		res.events, res.err = task(runCtx)
	})
	if err != nil {
		return nil, r.finish(token, StateCanceled, nil)
	}

	res := <-done
	switch {
	case runCtx.Err() != nil:
		return nil, r.finish(token, StateCanceled, nil)
	case res.err != nil:
		return nil, r.finish(token, StateFailed, res.err)
	default:
		return res.events, r.finish(token, StateCompleted, nil)
	}
}

// finish records the terminal state unless the run was Reset meanwhile,
// and returns err.
func (r *CancellableRun) finish(token *struct{}, state State, err error) error {
	r.mu.Lock()
	if r.token == token {
		r.state = state
		r.cancel = nil
	}
	r.mu.Unlock()

	r.recorder.RunFinished(state.String())
	if err != nil {
		r.logger.Debug("Run failed", "error", err)
	}
	return err
}
