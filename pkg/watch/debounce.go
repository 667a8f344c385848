package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single delayed callback.
//
// Every Trigger cancels the pending callback and schedules a new one, so
// only the last trigger of a burst fires. A callback whose timer already
// expired but has not yet started is also suppressed when superseded.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Interval returns the quiet period.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Trigger schedules callback after the quiet period, replacing any
// pending callback. It returns a token for CancelToken, or zero after
// Stop, when nothing is scheduled.
func (d *Debouncer) Trigger(callback func()) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	token := d.seq

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped || token != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		callback()
	})
	return token
}

// Cancel drops the pending callback, if any. It reports whether a
// callback was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.seq++
	return true
}

// CancelToken drops the pending callback only if it is the one scheduled
// by the Trigger that returned token. It reports whether it did.
func (d *Debouncer) CancelToken(token uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil || token != d.seq {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.seq++
	return true
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending callback and disables further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
