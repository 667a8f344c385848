package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/source"
)

func parseFile(t *testing.T, name, content string) *source.File {
	t.Helper()
	f, err := source.Parse(context.Background(), name, []byte(content))
	if err != nil {
		t.Fatalf("source.Parse() error = %v, want nil", err)
	}
	return f
}

func TestDefaultConfiguration(t *testing.T) {
	cfg, err := DefaultConfiguration(Properties{"max.line.length": "40"})
	if err != nil {
		t.Fatalf("DefaultConfiguration() error = %v, want nil", err)
	}
	if cfg.Source != DefaultConfigurationName {
		t.Errorf("Source = %q, want %q", cfg.Source, DefaultConfigurationName)
	}
	if cfg.Root.Name != "Checker" {
		t.Errorf("Root.Name = %q, want Checker", cfg.Root.Name)
	}
	if got := cfg.Root.String("severity", ""); got != "warning" {
		t.Errorf("severity = %q, want default warning", got)
	}

	var lineLength *Module
	for _, child := range cfg.Root.Children {
		if child.Name == "TreeWalker" {
			lineLength = child.Children[0]
		}
	}
	if lineLength == nil || lineLength.String("max", "") != "40" {
		t.Errorf("LineLength max = %v, want 40 from properties", lineLength)
	}
}

func TestParseConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed xml", `<module name="Checker">`},
		{"wrong root", `<config/>`},
		{"unset property", `<module name="Checker"><property name="severity" value="${nope}"/></module>`},
		{"unnamed module", `<module name="Checker"><module/></module>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfiguration(strings.NewReader(tt.doc), "test.xml", nil)
			if err == nil {
				t.Fatal("ParseConfiguration() error = nil, want error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want *ConfigurationError", err)
			}
			if !strings.HasPrefix(err.Error(), parsePrefix) {
				t.Errorf("Error() = %q, want prefix %q", err.Error(), parsePrefix)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	props := Properties{"a": "1", "b": "two"}

	got, err := expand("x${a}-${b}$$", props)
	if err != nil {
		t.Fatalf("expand() error = %v, want nil", err)
	}
	if got != "x1-two$" {
		t.Errorf("expand() = %q, want x1-two$", got)
	}

	if _, err := expand("${missing}", props); !errors.Is(err, ErrUnsetProperty) {
		t.Errorf("expand(missing) error = %v, want ErrUnsetProperty", err)
	}
	if _, err := expand("${a", props); err == nil {
		t.Error("expand(unterminated) error = nil, want error")
	}
}

func TestProperties_Merge(t *testing.T) {
	base := Properties{"a": "base", "b": "base"}
	merged := base.Merge(map[string]string{"b": "file", "c": "file"}, map[string]string{"c": "user"})

	want := map[string]string{"a": "base", "b": "file", "c": "user"}
	for k, v := range want {
		if merged[k] != v {
			t.Errorf("merged[%q] = %q, want %q", k, merged[k], v)
		}
	}
	if base["b"] != "base" {
		t.Error("Merge() modified the receiver")
	}
}

const testConfig = `<module name="Checker">
    <property name="severity" value="warning"/>
    <module name="RegexpSingleline">
        <property name="format" value="System\.out"/>
        <property name="message" value="no stdout"/>
        <property name="severity" value="error"/>
    </module>
    <module name="TreeWalker">
        <module name="LineLength">
            <property name="max" value="10"/>
        </module>
    </module>
</module>`

func newConfiguredChecker(t *testing.T, doc string) *Checker {
	t.Helper()
	cfg, err := ParseConfiguration(strings.NewReader(doc), "test.xml", nil)
	if err != nil {
		t.Fatalf("ParseConfiguration() error = %v, want nil", err)
	}
	c := NewChecker(nil)
	if err := c.Configure(context.Background(), nil, cfg); err != nil {
		t.Fatalf("Configure() error = %v, want nil", err)
	}
	return c
}

func TestChecker_Process(t *testing.T) {
	c := newConfiguredChecker(t, testConfig)
	defer c.Destroy()

	collector := &Collector{}
	c.AddListener(collector)

	f := parseFile(t, "A.txt", "short\nSystem.out.println(x);\n")
	if err := c.Process(context.Background(), f); err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}

	events := collector.Events()
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", events)
	}

	if events[0].Source != "RegexpSingleline" || events[0].Level != diag.LevelError || events[0].Line != 2 {
		t.Errorf("events[0] = %+v, want RegexpSingleline error at line 2", events[0])
	}
	if events[1].Source != "LineLength" || events[1].Level != diag.LevelWarning {
		t.Errorf("events[1] = %+v, want LineLength warning", events[1])
	}

	c.RemoveListener(collector)
	if err := c.Process(context.Background(), f); err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if n := len(collector.Events()); n != 2 {
		t.Errorf("events after RemoveListener = %d, want 2", n)
	}
}

func TestChecker_ProcessCanceled(t *testing.T) {
	c := newConfiguredChecker(t, testConfig)
	defer c.Destroy()

	collector := &Collector{}
	c.AddListener(collector)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := parseFile(t, "A.txt", "System.out.println(x);\n")
	if err := c.Process(ctx, f); err != nil {
		t.Fatalf("Process() error = %v, want nil on cancellation", err)
	}
	if n := len(collector.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestChecker_Lifecycle(t *testing.T) {
	c := NewChecker(nil)
	if err := c.Process(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Process() before Configure error = %v, want ErrNotConfigured", err)
	}

	c.Destroy()
	c.Destroy()
	if !c.Destroyed() {
		t.Error("Destroyed() = false, want true")
	}
	if err := c.Process(context.Background()); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Process() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestChecker_UnknownModule(t *testing.T) {
	cfg, err := ParseConfiguration(strings.NewReader(`<module name="Checker"><module name="Nope"/></module>`), "x.xml", nil)
	if err != nil {
		t.Fatalf("ParseConfiguration() error = %v, want nil", err)
	}

	err = NewChecker(nil).Configure(context.Background(), nil, cfg)
	if !errors.Is(err, ErrUnknownModule) {
		t.Errorf("Configure() error = %v, want ErrUnknownModule", err)
	}
}

func TestNewLoader(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(rules, []byte(`checks:
  - name: NoPrintStackTrace
    format: 'printStackTrace\('
    message: Do not print stack traces.
  - name: NoFixme
    format: 'FIXME'
    scope: comment
`), 0644); err != nil {
		t.Fatal(err)
	}

	loader, err := NewLoader([]string{filepath.Join(dir, "missing.yaml"), dir}, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v, want nil", err)
	}

	if loader.Parent() != DefaultLoader() {
		t.Error("Parent() is not the default loader")
	}
	if got := loader.Classpath(); len(got) != 1 || got[0] != dir {
		t.Errorf("Classpath() = %v, want [%s]", got, dir)
	}
	if _, ok := loader.Lookup("NoPrintStackTrace"); !ok {
		t.Error("Lookup(NoPrintStackTrace) = false, want true")
	}
	if _, ok := loader.Lookup("LineLength"); !ok {
		t.Error("Lookup(LineLength) = false, want true from parent")
	}

	cfg, err := ParseConfiguration(strings.NewReader(`<module name="Checker">
		<module name="NoPrintStackTrace"/>
		<module name="NoFixme"/>
	</module>`), "x.xml", nil)
	if err != nil {
		t.Fatalf("ParseConfiguration() error = %v, want nil", err)
	}

	c := NewChecker(nil)
	defer c.Destroy()
	if err := c.Configure(WithLoader(context.Background(), loader), nil, cfg); err != nil {
		t.Fatalf("Configure() error = %v, want nil", err)
	}
	if c.Loader() != loader {
		t.Error("Configure() did not use the ambient loader")
	}

	collector := &Collector{}
	c.AddListener(collector)
	f := parseFile(t, "A.java", "class A {\n  // FIXME later\n  void f() { e.printStackTrace(); }\n}\n")
	if err := c.Process(context.Background(), f); err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}

	events := collector.Events()
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", events)
	}
	if events[0].Message != "Do not print stack traces." || events[0].Line != 3 {
		t.Errorf("events[0] = %+v, want stack trace finding on line 3", events[0])
	}
	if events[1].Line != 2 {
		t.Errorf("events[1] = %+v, want FIXME finding on line 2", events[1])
	}
}

func TestNewLoader_EmptyClasspathIsDefault(t *testing.T) {
	loader, err := NewLoader(nil, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v, want nil", err)
	}
	if loader != DefaultLoader() {
		t.Error("NewLoader(nil) is not the default loader")
	}
}

func TestNewLoader_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("checks:\n  - format: x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader([]string{path}, nil)
	var cpErr *ClasspathError
	if !errors.As(err, &cpErr) {
		t.Fatalf("NewLoader() error = %v, want *ClasspathError", err)
	}
}

func TestLoader_Equal(t *testing.T) {
	dir := t.TempDir()

	a, err := NewLoader([]string{dir}, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v, want nil", err)
	}
	b, err := NewLoader([]string{dir}, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v, want nil", err)
	}

	if a == b {
		t.Fatal("NewLoader() returned the same instance twice")
	}
	if !a.Equal(b) {
		t.Error("Equal() = false for loaders over the same classpath")
	}
	if a.Equal(DefaultLoader()) {
		t.Error("Equal(default) = true, want false")
	}
}

func TestBuiltinChecks(t *testing.T) {
	doc := `<module name="Checker">
		<module name="FileLength"><property name="max" value="2"/></module>
		<module name="FileTabCharacter"/>
		<module name="NewlineAtEndOfFile"/>
		<module name="TodoComment"/>
	</module>`
	c := newConfiguredChecker(t, doc)
	defer c.Destroy()

	collector := &Collector{}
	c.AddListener(collector)

	f := parseFile(t, "a.go", "package a\n\t// TODO: x\nvar b = 1")
	if err := c.Process(context.Background(), f); err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}

	got := make(map[string]int)
	for _, e := range collector.Events() {
		got[e.Source]++
	}
	for _, name := range []string{"FileLength", "FileTabCharacter", "NewlineAtEndOfFile", "TodoComment"} {
		if got[name] != 1 {
			t.Errorf("%s events = %d, want 1 (all: %v)", name, got[name], collector.Events())
		}
	}
}
