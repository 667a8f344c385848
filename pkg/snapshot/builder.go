package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"mercator-hq/stylecheck/pkg/engine"
	"mercator-hq/stylecheck/pkg/settings"
)

// Builder turns preference values into a Snapshot.
type Builder struct {
	logger   *slog.Logger
	defaults func() engine.Properties
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDefaultProperties replaces the base property source. The default
// is EnvironmentProperties.
func WithDefaultProperties(fn func() engine.Properties) BuilderOption {
	return func(b *Builder) {
		b.defaults = fn
	}
}

// NewBuilder creates a Builder.
func NewBuilder(logger *slog.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		logger:   logger.With("component", "snapshot.builder"),
		defaults: EnvironmentProperties,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnvironmentProperties returns the process environment as properties,
// plus basedir (the working directory) and user.home.
func EnvironmentProperties() engine.Properties {
	props := make(engine.Properties)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			props[k] = v
		}
	}
	if wd, err := os.Getwd(); err == nil {
		props["basedir"] = wd
	}
	if home, err := os.UserHomeDir(); err == nil {
		props["user.home"] = home
	}
	return props
}

// Build resolves v into a new Snapshot with a zero Generation. Properties
// are layered as defaults, then the custom property file, then the custom
// properties, later layers winning key by key. A malformed path pattern
// is logged and ignored. Configuration and classpath failures return a
// *ConfigError and no snapshot.
func (b *Builder) Build(ctx context.Context, v settings.Values) (*Snapshot, error) {
	v = v.Normalize()

	var fileProps map[string]string
	if v.CustomPropertyFile != "" {
		p, err := settings.ReadPropertyFile(v.CustomPropertyFile)
		if err != nil {
			b.logger.InfoContext(ctx, "Could not read property file",
				"path", v.CustomPropertyFile,
				"error", err,
			)
		}
		fileProps = p
	}
	props := b.defaults().Merge(fileProps, v.CustomProperties)

	ignored := b.compilePattern(ctx, settings.PropIgnoredPathsPattern, v.IgnoredPathsPattern)
	checked := b.compilePattern(ctx, settings.PropCheckedPathsPattern, v.CheckedPathsPattern)

	loader, err := engine.NewLoader(v.CustomClasspath, b.logger)
	if err != nil {
		cfgErr := &ConfigError{Op: OpResolveClasspath, Cause: err}
		var cpErr *engine.ClasspathError
		if errors.As(err, &cpErr) {
			cfgErr.Path = cpErr.Entry
		}
		return nil, cfgErr
	}

	var cfg *engine.Configuration
	if v.CustomConfigFile != "" {
		cfg, err = engine.LoadConfiguration(v.CustomConfigFile, props)
	} else {
		cfg, err = engine.DefaultConfiguration(props)
	}
	if err != nil {
		return nil, &ConfigError{Op: OpLoadConfig, Path: v.CustomConfigFile, Cause: err}
	}

	return &Snapshot{
		Policy:       v.Severity,
		EngineConfig: cfg,
		Loader:       loader,
		IgnoredPaths: ignored,
		CheckedPaths: checked,
		Properties:   props,
		Values:       v,
		BuiltAt:      time.Now(),
	}, nil
}

// compilePattern compiles expr for full matching. Empty or malformed
// patterns yield nil.
func (b *Builder) compilePattern(ctx context.Context, name, expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	_, err := regexp.Compile(expr)
	if err != nil {
		b.logger.InfoContext(ctx, "Ignoring malformed path pattern",
			"property", name,
			"pattern", expr,
			"error", err,
		)
		return nil
	}
	return regexp.MustCompile("^(?:" + expr + ")$")
}
