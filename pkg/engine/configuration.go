package engine

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/stylecheck/pkg/diag"
)

//go:embed default_checks.xml
var defaultConfiguration []byte

// DefaultConfigurationName identifies the bundled configuration in
// errors and logs.
const DefaultConfigurationName = "default_checks.xml"

// Module is one node of a parsed configuration.
type Module struct {
	Name       string
	Properties map[string]string
	Children   []*Module
}

// Property returns a property value and whether it was set.
func (m *Module) Property(name string) (string, bool) {
	v, ok := m.Properties[name]
	return v, ok
}

// String returns a property value or def when unset.
func (m *Module) String(name, def string) string {
	if v, ok := m.Properties[name]; ok {
		return v
	}
	return def
}

// Int returns a property parsed as an integer, or def when unset.
func (m *Module) Int(name string, def int) (int, error) {
	v, ok := m.Properties[name]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("property %s: %q is not an integer", name, v)
	}
	return n, nil
}

// Regexp returns a property compiled as a regular expression, or def
// compiled when unset. An empty def with no property yields nil.
func (m *Module) Regexp(name, def string) (*regexp.Regexp, error) {
	expr := m.String(name, def)
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return re, nil
}

// Configuration is a parsed module tree. A *Configuration is immutable
// once returned and its pointer identity is used as a cache key.
type Configuration struct {
	// Source is the file the configuration came from, or
	// DefaultConfigurationName for the bundled one.
	Source string

	Root *Module
}

// Equal reports whether two configurations have the same content.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	return c.Source == other.Source && modulesEqual(c.Root, other.Root)
}

func modulesEqual(a, b *Module) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || len(a.Properties) != len(b.Properties) || len(a.Children) != len(b.Children) {
		return false
	}
	for k, v := range a.Properties {
		if bv, ok := b.Properties[k]; !ok || bv != v {
			return false
		}
	}
	for i := range a.Children {
		if !modulesEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Properties resolves ${name} references in configuration values.
type Properties map[string]string

// Merge returns a new Properties holding p overlaid by each of overrides
// in order, later maps winning key by key.
func (p Properties) Merge(overrides ...map[string]string) Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// xmlModule mirrors the on-disk configuration format.
type xmlModule struct {
	XMLName    xml.Name      `xml:"module"`
	Name       string        `xml:"name,attr"`
	Properties []xmlProperty `xml:"property"`
	Modules    []xmlModule   `xml:"module"`
}

type xmlProperty struct {
	Name    string  `xml:"name,attr"`
	Value   string  `xml:"value,attr"`
	Default *string `xml:"default,attr"`
}

// ParseConfiguration reads a configuration document from r, expanding
// property references with props.
func ParseConfiguration(r io.Reader, name string, props Properties) (*Configuration, error) {
	var root xmlModule
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&root); err != nil {
		return nil, &ConfigurationError{Path: name, Parse: true, Cause: err}
	}

	module, err := convertModule(&root, props)
	if err != nil {
		return nil, &ConfigurationError{Path: name, Parse: true, Cause: err}
	}

	return &Configuration{Source: name, Root: module}, nil
}

// LoadConfiguration parses the configuration file at path.
func LoadConfiguration(path string, props Properties) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Parse: true, Cause: err}
	}
	defer f.Close()

	return ParseConfiguration(f, path, props)
}

// DefaultConfiguration parses the bundled configuration.
func DefaultConfiguration(props Properties) (*Configuration, error) {
	return ParseConfiguration(bytes.NewReader(defaultConfiguration), DefaultConfigurationName, props)
}

func convertModule(x *xmlModule, props Properties) (*Module, error) {
	if strings.TrimSpace(x.Name) == "" {
		return nil, fmt.Errorf("module without a name")
	}

	m := &Module{
		Name:       x.Name,
		Properties: make(map[string]string, len(x.Properties)),
	}

	for _, p := range x.Properties {
		value, err := expand(p.Value, props)
		if err != nil {
			if p.Default == nil {
				return nil, fmt.Errorf("module %s property %s: %w", x.Name, p.Name, err)
			}
			value, err = expand(*p.Default, props)
			if err != nil {
				return nil, fmt.Errorf("module %s property %s default: %w", x.Name, p.Name, err)
			}
		}
		m.Properties[p.Name] = value
	}

	for i := range x.Modules {
		child, err := convertModule(&x.Modules[i], props)
		if err != nil {
			return nil, err
		}
		m.Children = append(m.Children, child)
	}

	return m, nil
}

// expand replaces ${name} references. "$$" yields a literal "$".
func expand(value string, props Properties) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '$' || i+1 >= len(value) {
			b.WriteByte(c)
			continue
		}

		switch value[i+1] {
		case '$':
			b.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(value[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated property reference in %q", value)
			}
			name := value[i+2 : i+2+end]
			v, ok := props[name]
			if !ok {
				return "", fmt.Errorf("%w: ${%s}", ErrUnsetProperty, name)
			}
			b.WriteString(v)
			i += end + 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// moduleLevel returns the severity of m, inheriting from its ancestors.
func moduleLevel(m *Module, inherited diag.Level) (diag.Level, error) {
	v, ok := m.Property("severity")
	if !ok {
		return inherited, nil
	}
	return diag.ParseLevel(v)
}
