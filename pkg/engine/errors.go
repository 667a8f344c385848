package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrDestroyed indicates use of a checker after Destroy.
	ErrDestroyed = errors.New("checker destroyed")

	// ErrNotConfigured indicates Process was called before Configure.
	ErrNotConfigured = errors.New("checker not configured")

	// ErrUnknownModule indicates a module name the loader cannot resolve.
	ErrUnknownModule = errors.New("unknown module")

	// ErrUnsetProperty indicates a ${name} reference with no value and no default.
	ErrUnsetProperty = errors.New("property has not been set")
)

// parsePrefix starts every configuration parse error message.
const parsePrefix = "unable to parse configuration stream"

// ConfigurationError indicates a configuration that cannot be parsed or
// applied to a checker.
type ConfigurationError struct {
	// Path is the configuration source, empty for in-memory input.
	Path string

	// Module names the offending module, if known.
	Module string

	// Parse is set when the document itself could not be read.
	Parse bool

	Cause error
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	prefix := "cannot initialize module"
	if e.Parse {
		prefix = parsePrefix
	}

	switch {
	case e.Module != "" && e.Path != "":
		return fmt.Sprintf("%s %s (%s): %v", prefix, e.Module, e.Path, e.Cause)
	case e.Module != "":
		return fmt.Sprintf("%s %s: %v", prefix, e.Module, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s (%s): %v", prefix, e.Path, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// ProcessError indicates a check failed while processing a file.
type ProcessError struct {
	File  string
	Check string
	Cause error
}

// Error returns the error message.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("check %s failed on %s: %v", e.Check, e.File, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// ClasspathError indicates a rule definition on the classpath that could
// be read but not understood.
type ClasspathError struct {
	Entry string
	Cause error
}

// Error returns the error message.
func (e *ClasspathError) Error() string {
	return fmt.Sprintf("invalid classpath entry %s: %v", e.Entry, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ClasspathError) Unwrap() error {
	return e.Cause
}
