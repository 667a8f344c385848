package diag

import "fmt"

// Event is a single finding reported by the engine for one file.
//
// Lines and columns are 1-based. A line of zero or below marks a
// file-level event that cannot be attached to source.
type Event struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
	// Source names the check that produced the event.
	Source string `json:"source,omitempty"`
}

// String formats the event as file:line:col: level: message.
func (e Event) String() string {
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Level, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Level, e.Message)
}

// Filter returns the events accepted by p, preserving order.
func Filter(events []Event, p Policy) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if p.Accept(e) {
			out = append(out, e)
		}
	}
	return out
}
