package diag

import (
	"fmt"
	"strings"
)

// Level is the severity an engine check attaches to an event.
type Level uint8

const (
	// LevelIgnore marks events a check reports but asks to be ignored.
	LevelIgnore Level = iota
	// LevelInfo marks informational events.
	LevelInfo
	// LevelWarning marks warnings.
	LevelWarning
	// LevelError marks errors.
	LevelError
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelIgnore:
		return "ignore"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return LevelIgnore, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return LevelIgnore, fmt.Errorf("unknown severity level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
