package snapshot

import (
	"errors"
	"fmt"
)

// Operations reported by ConfigError.
const (
	OpLoadConfig       = "load configuration"
	OpResolveClasspath = "resolve classpath"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("snapshot store closed")

// ConfigError indicates that no snapshot could be built from the current
// preferences. It is cached by the Store and returned to every caller
// until the next successful rebuild.
type ConfigError struct {
	// Op is the failing step, OpLoadConfig or OpResolveClasspath.
	Op string

	// Path is the configuration file or classpath entry involved, if any.
	Path string

	Cause error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("cannot %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
