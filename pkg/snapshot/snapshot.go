package snapshot

import (
	"maps"
	"path/filepath"
	"regexp"
	"time"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/settings"
)

// Snapshot is one fully resolved configuration generation. It is never
// modified after the Store publishes it and may be shared freely.
type Snapshot struct {
	// Policy is the minimum severity reported.
	Policy diag.Policy

	// EngineConfig is the parsed check configuration.
	EngineConfig *engine.Configuration

	// Loader resolves the check modules named by EngineConfig.
	Loader *engine.Loader

	// IgnoredPaths skips files whose absolute path fully matches it.
	IgnoredPaths *regexp.Regexp

	// CheckedPaths, when non-nil, restricts scanning to matching files.
	CheckedPaths *regexp.Regexp

	// Properties are the merged values used to expand EngineConfig.
	Properties engine.Properties

	// Values are the preferences the snapshot was built from.
	Values settings.Values

	// Generation increases with every preference change.
	Generation uint64

	// BuiltAt is when the build finished.
	BuiltAt time.Time
}

// SameEngine reports whether both snapshots carry the same configuration
// and loader objects. Only identity counts: an equivalent configuration
// parsed twice is a different engine.
func (s *Snapshot) SameEngine(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.EngineConfig == other.EngineConfig && s.Loader == other.Loader
}

// Equivalent reports whether both snapshots describe the same
// configuration content, regardless of identity or generation.
func (s *Snapshot) Equivalent(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Policy == other.Policy &&
		s.EngineConfig.Equal(other.EngineConfig) &&
		s.Loader.Equal(other.Loader) &&
		regexpString(s.IgnoredPaths) == regexpString(other.IgnoredPaths) &&
		regexpString(s.CheckedPaths) == regexpString(other.CheckedPaths) &&
		maps.Equal(s.Properties, other.Properties)
}

// Skip reports whether path is excluded by the path patterns. Patterns
// match the absolute, slash separated path in full.
func (s *Snapshot) Skip(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)

	if s.CheckedPaths != nil && !s.CheckedPaths.MatchString(path) {
		return true
	}
	return s.IgnoredPaths != nil && s.IgnoredPaths.MatchString(path)
}

func regexpString(re *regexp.Regexp) string {
	if re == nil {
		return ""
	}
	return re.String()
}
