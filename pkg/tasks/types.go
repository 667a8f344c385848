package tasks

import (
	"fmt"
	"time"

	"mercator-hq/stylecheck/pkg/diag"
)

// Task is one stored diagnostic.
type Task struct {
	ID         string     `json:"id"`
	ScanID     string     `json:"scan_id"`
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column,omitempty"`
	Level      diag.Level `json:"level"`
	Source     string     `json:"source,omitempty"`
	Message    string     `json:"message"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Event returns the diagnostic the task was recorded from.
func (t *Task) Event() diag.Event {
	return diag.Event{
		File:    t.File,
		Line:    t.Line,
		Column:  t.Column,
		Message: t.Message,
		Level:   t.Level,
		Source:  t.Source,
	}
}

// Query selects tasks. Zero fields do not filter.
type Query struct {
	// File restricts results to one absolute path.
	File string

	// ScanID restricts results to one batch scan.
	ScanID string

	// MinLevel drops tasks below this level.
	MinLevel diag.Level

	// Before keeps tasks recorded strictly before this time.
	Before *time.Time

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int

	// Offset skips the first results.
	Offset int
}

// DefaultLimit is the result cap used when Query.Limit is zero.
const DefaultLimit = 1000

// StorageError reports a failed database operation.
type StorageError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("task storage %s failed: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(op string, cause error) *StorageError {
	return &StorageError{Operation: op, Cause: cause}
}
