package settings

import (
	"bufio"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"mercator-hq/stylecheck/pkg/diag"
)

// Property names reported in Change notifications.
const (
	PropSeverity            = "severity"
	PropCustomConfigFile    = "config_file"
	PropCustomPropertyFile  = "property_file"
	PropCustomClasspath     = "classpath"
	PropCustomProperties    = "properties"
	PropIgnoredPathsPattern = "ignored_paths"
	PropCheckedPathsPattern = "checked_paths"
)

// Values is one complete set of preferences. Treat it as immutable: use
// Clone before modifying a value obtained from a store.
type Values struct {
	// Severity is the minimum level reported.
	// Default: IGNORE
	Severity diag.Policy `yaml:"severity" toml:"severity"`

	// CustomConfigFile replaces the bundled engine configuration.
	CustomConfigFile string `yaml:"config_file,omitempty" toml:"config_file,omitempty"`

	// CustomPropertyFile is a key=value file merged into the engine
	// properties below CustomProperties.
	CustomPropertyFile string `yaml:"property_file,omitempty" toml:"property_file,omitempty"`

	// CustomClasspath lists rule definition files or directories.
	CustomClasspath []string `yaml:"classpath,omitempty" toml:"classpath,omitempty"`

	// CustomProperties override every other property source.
	CustomProperties map[string]string `yaml:"properties,omitempty" toml:"properties,omitempty"`

	// IgnoredPathsPattern skips files whose absolute path fully matches it.
	IgnoredPathsPattern string `yaml:"ignored_paths,omitempty" toml:"ignored_paths,omitempty"`

	// CheckedPathsPattern, when set, restricts scanning to files whose
	// absolute path fully matches it.
	CheckedPathsPattern string `yaml:"checked_paths,omitempty" toml:"checked_paths,omitempty"`
}

// Normalize trims string fields and drops empty classpath entries and
// property keys.
func (v Values) Normalize() Values {
	out := Values{
		Severity:            v.Severity,
		CustomConfigFile:    strings.TrimSpace(v.CustomConfigFile),
		CustomPropertyFile:  strings.TrimSpace(v.CustomPropertyFile),
		IgnoredPathsPattern: strings.TrimSpace(v.IgnoredPathsPattern),
		CheckedPathsPattern: strings.TrimSpace(v.CheckedPathsPattern),
	}
	for _, entry := range v.CustomClasspath {
		if entry = strings.TrimSpace(entry); entry != "" {
			out.CustomClasspath = append(out.CustomClasspath, entry)
		}
	}
	for k, val := range v.CustomProperties {
		if k = strings.TrimSpace(k); k != "" {
			if out.CustomProperties == nil {
				out.CustomProperties = make(map[string]string)
			}
			out.CustomProperties[k] = val
		}
	}
	return out
}

// Clone returns a deep copy of v.
func (v Values) Clone() Values {
	out := v
	out.CustomClasspath = slices.Clone(v.CustomClasspath)
	out.CustomProperties = maps.Clone(v.CustomProperties)
	return out
}

// Diff returns the names of the properties that differ between a and b,
// in declaration order.
func Diff(a, b Values) []string {
	var changed []string
	if a.Severity != b.Severity {
		changed = append(changed, PropSeverity)
	}
	if a.CustomConfigFile != b.CustomConfigFile {
		changed = append(changed, PropCustomConfigFile)
	}
	if a.CustomPropertyFile != b.CustomPropertyFile {
		changed = append(changed, PropCustomPropertyFile)
	}
	if !slices.Equal(a.CustomClasspath, b.CustomClasspath) {
		changed = append(changed, PropCustomClasspath)
	}
	if !maps.Equal(a.CustomProperties, b.CustomProperties) {
		changed = append(changed, PropCustomProperties)
	}
	if a.IgnoredPathsPattern != b.IgnoredPathsPattern {
		changed = append(changed, PropIgnoredPathsPattern)
	}
	if a.CheckedPathsPattern != b.CheckedPathsPattern {
		changed = append(changed, PropCheckedPathsPattern)
	}
	return changed
}

// JoinClasspath joins entries with the OS path list separator.
func JoinClasspath(entries []string) string {
	return strings.Join(entries, string(filepath.ListSeparator))
}

// SplitClasspath splits a path list, dropping empty entries.
func SplitClasspath(s string) []string {
	var out []string
	for _, entry := range filepath.SplitList(s) {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// FormatProperties renders properties as sorted key=value lines.
func FormatProperties(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseProperties reads key=value (or key:value) lines. Blank lines and
// lines starting with # or ! are skipped; a key without a separator maps
// to the empty string.
func ParseProperties(s string) map[string]string {
	props := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		idx := strings.IndexAny(line, "=:")
		if idx < 0 {
			props[line] = ""
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		props[key] = strings.TrimSpace(line[idx+1:])
	}
	return props
}

// ReadPropertyFile parses a key=value file from disk.
func ReadPropertyFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProperties(string(data)), nil
}
