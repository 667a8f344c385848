package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader resolves module names to check factories.
//
// Loaders form a chain: a lookup that misses in a child falls through to
// its parent. The shared default loader sits at the root and holds the
// built-in checks. Loader pointers are compared for identity by caches,
// so a Loader is never mutated after construction.
type Loader struct {
	parent    *Loader
	classpath []string
	factories map[string]Factory
}

var defaultLoader = sync.OnceValue(func() *Loader {
	factories := make(map[string]Factory, len(builtinFactories))
	for name, f := range builtinFactories {
		factories[name] = f
	}
	return &Loader{factories: factories}
})

// DefaultLoader returns the shared loader holding the built-in checks.
func DefaultLoader() *Loader {
	return defaultLoader()
}

// NewLoader builds a loader over classpath entries, chained to the
// default loader. An empty classpath returns the default loader itself.
//
// Each entry is a rule definition file or a directory of them. Entries
// that do not exist or cannot be read are logged and skipped. A readable
// entry with invalid definitions fails with a *ClasspathError.
func NewLoader(classpath []string, logger *slog.Logger) (*Loader, error) {
	if len(classpath) == 0 {
		return DefaultLoader(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loader{
		parent:    DefaultLoader(),
		factories: make(map[string]Factory),
	}

	for _, entry := range classpath {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		files, err := definitionFiles(entry)
		if err != nil {
			logger.Warn("Skipping classpath entry",
				"entry", entry,
				"error", err,
			)
			continue
		}

		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				logger.Warn("Skipping unreadable rule definition",
					"file", file,
					"error", err,
				)
				continue
			}
			if err := l.define(file, data); err != nil {
				return nil, err
			}
		}
		l.classpath = append(l.classpath, entry)
	}

	return l, nil
}

// definitionFiles lists the rule definition files of one entry.
func definitionFiles(entry string) ([]string, error) {
	info, err := os.Stat(entry)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{entry}, nil
	}

	dirEntries, err := os.ReadDir(entry)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(de.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(entry, de.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ruleFile is the format of a rule definition file.
type ruleFile struct {
	Checks []ruleDefinition `yaml:"checks"`
}

type ruleDefinition struct {
	Name    string `yaml:"name"`
	Format  string `yaml:"format"`
	Message string `yaml:"message"`
	// Scope is "line" (default) or "comment".
	Scope string `yaml:"scope"`
}

func (l *Loader) define(file string, data []byte) error {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return &ClasspathError{Entry: file, Cause: err}
	}

	for i, def := range rf.Checks {
		if def.Name == "" {
			return &ClasspathError{Entry: file, Cause: fmt.Errorf("check %d has no name", i)}
		}
		if def.Format == "" {
			return &ClasspathError{Entry: file, Cause: fmt.Errorf("check %s has no format", def.Name)}
		}
		switch def.Scope {
		case "", "line", "comment":
		default:
			return &ClasspathError{Entry: file, Cause: fmt.Errorf("check %s has unknown scope %q", def.Name, def.Scope)}
		}
		l.factories[def.Name] = definitionFactory(def)
	}
	return nil
}

// definitionFactory builds a pattern check whose defaults come from def;
// module properties still override them.
func definitionFactory(def ruleDefinition) Factory {
	return func(m *Module) (Check, error) {
		props := map[string]string{
			"format":  def.Format,
			"message": def.Message,
		}
		if def.Message == "" {
			delete(props, "message")
		}
		for k, v := range m.Properties {
			props[k] = v
		}
		merged := &Module{Name: m.Name, Properties: props}

		if def.Scope == "comment" {
			return newTodoComment(&Module{Name: m.Name, Properties: map[string]string{"format": props["format"]}})
		}
		return newRegexpSingleline(merged)
	}
}

// Lookup returns the factory registered for name in l or its ancestors.
func (l *Loader) Lookup(name string) (Factory, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if f, ok := cur.factories[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// Parent returns the loader lookups fall back to, or nil for the root.
func (l *Loader) Parent() *Loader {
	return l.parent
}

// Classpath returns the entries the loader was built from, excluding
// skipped ones.
func (l *Loader) Classpath() []string {
	return slices.Clone(l.classpath)
}

// Names returns every module name resolvable through l, sorted.
func (l *Loader) Names() []string {
	seen := make(map[string]struct{})
	for cur := l; cur != nil; cur = cur.parent {
		for name := range cur.factories {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two loaders are the same or were built from the
// same classpath on the same parent.
func (l *Loader) Equal(other *Loader) bool {
	if l == other {
		return true
	}
	if l == nil || other == nil {
		return false
	}
	return l.parent == other.parent && slices.Equal(l.classpath, other.classpath)
}
