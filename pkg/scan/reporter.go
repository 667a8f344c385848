package scan

import (
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/snapshot"
)

// Notifier shows a configuration problem to the user.
type Notifier func(message string)

// ErrorReporter notifies once per distinct error message. Repeats of the
// last message are suppressed until Reset.
type ErrorReporter struct {
	notify Notifier
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewErrorReporter creates a reporter. A nil notify only logs.
func NewErrorReporter(notify Notifier, logger *slog.Logger) *ErrorReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorReporter{
		notify: notify,
		logger: logger.With("component", "scan.reporter"),
	}
}

// Report notifies about err unless its message equals the last one
// reported. It returns whether a notification was sent.
func (r *ErrorReporter) Report(err error) bool {
	if err == nil {
		return false
	}
	msg := Message(err)

	r.mu.Lock()
	if msg == r.last {
		r.mu.Unlock()
		return false
	}
	r.last = msg
	r.mu.Unlock()

	r.logger.Warn("Configuration problem", "error", msg)
	if r.notify != nil {
		r.notify(msg)
	}
	return true
}

// Reset forgets the last message so the next error is reported again.
func (r *ErrorReporter) Reset() {
	r.mu.Lock()
	r.last = ""
	r.mu.Unlock()
}

// SnapshotOptions wires r into a snapshot store: the last message is
// forgotten on every preference change and after every successful
// rebuild, so a change that brings back the same error reports it again.
func (r *ErrorReporter) SnapshotOptions() []snapshot.Option {
	return []snapshot.Option{
		snapshot.WithChangeHook(r.Reset),
		snapshot.WithListener(r.SnapshotListener()),
	}
}

// SnapshotListener resets the reporter after every successful rebuild.
func (r *ErrorReporter) SnapshotListener() snapshot.Listener {
	return func(_ *snapshot.Snapshot, err error) {
		if err == nil {
			r.Reset()
		}
	}
}

// Message returns the text shown for err. Parse failures of the engine
// configuration are reduced to their cause.
func Message(err error) string {
	var cfgErr *engine.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Parse && cfgErr.Cause != nil {
		return cfgErr.Cause.Error()
	}
	return err.Error()
}
