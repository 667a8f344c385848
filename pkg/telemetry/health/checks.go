package health

import (
	"context"
	"errors"
)

// Pinger is satisfied by *sql.DB and the task store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingCheck reports a store unhealthy when it stops answering.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.PingContext(ctx)
	}
}

// ErrorCheck reports unhealthy while fn returns a non-nil error. The
// snapshot store uses it to surface a broken check configuration.
func ErrorCheck(fn func() error) CheckFunc {
	return func(ctx context.Context) error {
		return fn()
	}
}

// ErrNotStarted is reported by StartedCheck before the component starts.
var ErrNotStarted = errors.New("not started")

// StartedCheck reports unhealthy until started returns true.
func StartedCheck(started func() bool) CheckFunc {
	return func(ctx context.Context) error {
		if !started() {
			return ErrNotStarted
		}
		return nil
	}
}
