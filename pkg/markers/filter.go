package markers

import (
	"sync"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/source"
)

// Filter drops events that fall in generated regions.
//
// The marker set of the most recently seen file is cached by the
// identity of its *source.File; a different *source.File, even for the
// same path, triggers a fresh extraction. Safe for concurrent use.
type Filter struct {
	patterns Patterns

	mu   sync.Mutex
	file *source.File
	set  Set
}

// NewFilter creates a filter using the given marker patterns.
func NewFilter(patterns Patterns) *Filter {
	return &Filter{patterns: patterns}
}

// SetFor returns the marker set of f, extracting it if f is not the
// cached file.
func (f *Filter) SetFor(file *source.File) Set {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != file {
		f.set = f.patterns.Extract(file.Comments)
		f.file = file
	}
	return f.set
}

// Accept reports whether e, reported against file, is outside every
// generated region.
func (f *Filter) Accept(file *source.File, e diag.Event) bool {
	return f.SetFor(file).Accept(e.Line)
}

// Apply returns the events of file that are accepted, preserving order.
func (f *Filter) Apply(file *source.File, events []diag.Event) []diag.Event {
	set := f.SetFor(file)
	out := make([]diag.Event, 0, len(events))
	for _, e := range events {
		if set.Accept(e.Line) {
			out = append(out, e)
		}
	}
	return out
}
