package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/stylecheck/pkg/diag"
	"mercator-hq/stylecheck/pkg/source"
)

// Listener receives every event a checker reports. Listeners are
// compared by identity when removed, so implementations are usually
// pointers.
type Listener interface {
	OnEvent(e diag.Event)
}

// containerModules only group their children.
var containerModules = map[string]bool{
	"Checker":    true,
	"TreeWalker": true,
}

type boundCheck struct {
	name  string
	level diag.Level
	check Check
}

// Checker runs configured checks over files and reports events to its
// listeners. Configure, AddListener and RemoveListener must not race with
// Process; Destroy may be called from any goroutine.
type Checker struct {
	logger *slog.Logger

	mu        sync.Mutex
	loader    *Loader
	config    *Configuration
	checks    []boundCheck
	listeners []Listener
	destroyed bool
}

// NewChecker creates an unconfigured checker.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{logger: logger.With("component", "engine.checker")}
}

// Configure builds the checks of cfg using loader. A nil loader uses the
// loader bound to ctx, falling back to the default loader.
func (c *Checker) Configure(ctx context.Context, loader *Loader, cfg *Configuration) error {
	if cfg == nil || cfg.Root == nil {
		return &ConfigurationError{Cause: fmt.Errorf("empty configuration")}
	}
	if loader == nil {
		loader = LoaderFrom(ctx)
	}

	var checks []boundCheck
	if err := collectChecks(cfg, loader, cfg.Root, diag.LevelError, &checks); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	c.loader = loader
	c.config = cfg
	c.checks = checks

	c.logger.Debug("Checker configured",
		"source", cfg.Source,
		"checks", len(checks),
	)
	return nil
}

func collectChecks(cfg *Configuration, loader *Loader, m *Module, inherited diag.Level, out *[]boundCheck) error {
	level, err := moduleLevel(m, inherited)
	if err != nil {
		return &ConfigurationError{Path: cfg.Source, Module: m.Name, Cause: err}
	}

	if containerModules[m.Name] {
		for _, child := range m.Children {
			if err := collectChecks(cfg, loader, child, level, out); err != nil {
				return err
			}
		}
		return nil
	}

	factory, ok := loader.Lookup(m.Name)
	if !ok {
		return &ConfigurationError{Path: cfg.Source, Module: m.Name, Cause: ErrUnknownModule}
	}
	check, err := factory(m)
	if err != nil {
		return &ConfigurationError{Path: cfg.Source, Module: m.Name, Cause: err}
	}
	*out = append(*out, boundCheck{name: m.Name, level: level, check: check})
	return nil
}

// Configuration returns the configuration applied by Configure.
func (c *Checker) Configuration() *Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Loader returns the loader applied by Configure.
func (c *Checker) Loader() *Loader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loader
}

// AddListener registers l to receive events.
func (c *Checker) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters l.
func (c *Checker) RemoveListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Process runs every check over every file.
//
// ctx is polled before each check. Once it is done, Process stops and
// returns nil: events already reported stay reported and no error is
// raised for the cancellation itself.
func (c *Checker) Process(ctx context.Context, files ...*source.File) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if c.config == nil {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	checks := c.checks
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, f := range files {
		for _, bc := range checks {
			if ctx.Err() != nil {
				c.logger.Debug("Processing canceled", "file", f.Path, "check", bc.name)
				return nil
			}

			report := func(line, column int, message string) {
				e := diag.Event{
					File:    f.Path,
					Line:    line,
					Column:  column,
					Message: message,
					Level:   bc.level,
					Source:  bc.name,
				}
				for _, l := range listeners {
					l.OnEvent(e)
				}
			}

			if err := bc.check.Process(ctx, f, report); err != nil {
				return &ProcessError{File: f.Path, Check: bc.name, Cause: err}
			}
		}
	}
	return nil
}

// Destroy releases the checks and listeners. It is idempotent.
func (c *Checker) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.checks = nil
	c.listeners = nil
}

// Destroyed reports whether Destroy has been called.
func (c *Checker) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Collector is a Listener that keeps every event it receives.
type Collector struct {
	mu     sync.Mutex
	events []diag.Event
}

// OnEvent implements Listener.
func (c *Collector) OnEvent(e diag.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []diag.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]diag.Event(nil), c.events...)
}

type loaderKey struct{}

// WithLoader binds loader to ctx as the ambient loader for checkers
// configured under it.
func WithLoader(ctx context.Context, loader *Loader) context.Context {
	return context.WithValue(ctx, loaderKey{}, loader)
}

// LoaderFrom returns the loader bound to ctx, or the default loader.
func LoaderFrom(ctx context.Context) *Loader {
	if l, ok := ctx.Value(loaderKey{}).(*Loader); ok && l != nil {
		return l
	}
	return DefaultLoader()
}
