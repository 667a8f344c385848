package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	barWidth = 40

	// redrawInterval limits how often Update repaints the bar.
	redrawInterval = 100 * time.Millisecond
)

// ProgressReporter follows a batch check file by file. scan.BatchScanner
// drives it through scan.WithProgress.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
}

// SimpleProgress repaints one terminal line with a bar, the share of
// files checked and the rate.
type SimpleProgress struct {
	w io.Writer

	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	drawn   time.Time
}

// NewProgressReporter returns a SimpleProgress writing to w, or to stderr
// when w is nil.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{w: w}
}

// Start resets the bar for total files.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total, p.current = total, 0
	p.started = time.Now()
	p.draw()
}

// Update records current checked files. Workers finish out of order, so
// a count below the last one is ignored.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current <= p.current {
		return
	}
	p.current = current
	if current == p.total || time.Since(p.drawn) >= redrawInterval {
		p.draw()
	}
}

// Finish draws the full bar and ends the line. An empty batch prints
// nothing.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *SimpleProgress) draw() {
	if p.total <= 0 {
		return
	}
	p.drawn = time.Now()

	share := float64(p.current) / float64(p.total)
	filled := int(share * barWidth)
	var rate float64
	if secs := p.drawn.Sub(p.started).Seconds(); secs > 0 {
		rate = float64(p.current) / secs
	}

	fmt.Fprintf(p.w, "\rChecking: [%s%s] %5.1f%% (%d/%d) %.1f files/s",
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled),
		share*100, p.current, p.total, rate)
}
