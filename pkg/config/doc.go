// Package config provides configuration management for stylecheck.
//
// Configuration is read from a YAML file, decoded on top of the defaults
// and validated. Environment variables named STYLECHECK_SECTION_FIELD
// override file values:
//
//   - STYLECHECK_SETTINGS_PATH overrides settings.path
//   - STYLECHECK_SCAN_WORKERS overrides scan.workers
//   - STYLECHECK_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A minimal configuration file:
//
//	settings:
//	  store: file
//	  path: ~/.config/stylecheck/prefs.yaml
//
//	scan:
//	  reload_delay: 300ms
//	  workers: 10
//
//	tasks:
//	  enabled: true
//	  sqlite:
//	    path: data/tasks.db
//
// This configuration belongs to the daemon and CLI. The preferences that
// decide which checks run (severity, custom configuration file, classpath
// and so on) live in the settings store it points to.
package config
