package config

import "sync"

// global is the process-wide configuration published by the CLI. Library
// packages take their section explicitly and never read it.
var global struct {
	once sync.Once
	err  error

	mu  sync.RWMutex
	cfg *Config
}

// Initialize loads path with environment overrides and publishes the
// result. Only the first call loads; later calls return the outcome of
// the first, whatever path they pass.
func Initialize(path string) error {
	global.once.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			global.err = err
			return
		}
		SetConfig(cfg)
	})
	return global.err
}

// GetConfig returns the published configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.cfg
}

// SetConfig publishes cfg. Tests use it to run commands against an
// explicit configuration.
func SetConfig(cfg *Config) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.cfg = cfg
}
