package diag

import (
	"fmt"
	"strings"
)

// Policy is the minimum severity at which events are reported.
//
// The zero value is PolicyIgnore, which reports everything.
type Policy uint8

const (
	// PolicyIgnore reports every event, including ignore-level ones.
	PolicyIgnore Policy = iota
	// PolicyInfo reports everything except ignore-level events.
	PolicyInfo
	// PolicyWarning reports warnings and errors.
	PolicyWarning
	// PolicyError reports errors only.
	PolicyError
)

// Include reports whether an event at level l is reportable under p.
func (p Policy) Include(l Level) bool {
	switch p {
	case PolicyError:
		return l == LevelError
	case PolicyWarning:
		return l == LevelWarning || l == LevelError
	case PolicyInfo:
		return l != LevelIgnore
	default:
		return true
	}
}

// Accept reports whether e should reach the caller: its line must be
// positive and its level included by p.
func (p Policy) Accept(e Event) bool {
	return e.Line > 0 && p.Include(e.Level)
}

// String returns the uppercase policy name as shown in preferences.
func (p Policy) String() string {
	switch p {
	case PolicyIgnore:
		return "IGNORE"
	case PolicyInfo:
		return "INFO"
	case PolicyWarning:
		return "WARNING"
	case PolicyError:
		return "ERROR"
	default:
		return fmt.Sprintf("POLICY(%d)", uint8(p))
	}
}

// ParsePolicy parses a policy name case-insensitively. An empty string
// yields PolicyIgnore.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "IGNORE":
		return PolicyIgnore, nil
	case "INFO":
		return PolicyInfo, nil
	case "WARNING", "WARN":
		return PolicyWarning, nil
	case "ERROR":
		return PolicyError, nil
	default:
		return PolicyIgnore, fmt.Errorf("unknown severity %q (want ERROR, WARNING, INFO or IGNORE)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
