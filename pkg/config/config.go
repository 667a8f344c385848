package config

import "time"

// Config is the root configuration structure for stylecheck.
// It contains the preference store location, scan tuning, task storage
// and telemetry settings.
type Config struct {
	// Settings locates the user preferences that drive scanning.
	Settings SettingsConfig `yaml:"settings"`

	// Scan contains configuration for snapshot rebuilds, the worker pool
	// and generated region markers.
	Scan ScanConfig `yaml:"scan"`

	// Tasks contains configuration for the persisted task list.
	Tasks TasksConfig `yaml:"tasks"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SettingsConfig selects the preference store.
type SettingsConfig struct {
	// Store is the preference backend.
	// Options: "file", "sqlite", "memory"
	// Default: "file"
	Store string `yaml:"store"`

	// Path is the preferences file (.yaml, .yml or .toml) or database.
	// Default: "stylecheck-prefs.yaml"
	Path string `yaml:"path"`

	// Watch reloads a file store when it is edited on disk.
	// Default: true
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before an edited file is reloaded.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ScanConfig contains configuration for scanning.
type ScanConfig struct {
	// ReloadDelay is the debounce delay between a preference change and
	// the rebuild of the configuration snapshot.
	// Default: 300ms
	ReloadDelay time.Duration `yaml:"reload_delay"`

	// Workers bounds the number of scans executing concurrently.
	// Default: 10
	Workers int `yaml:"workers"`

	// Extensions lists the file extensions considered by batch scans.
	// Default: [".java", ".go"]
	Extensions []string `yaml:"extensions"`

	// FileTimeout bounds a single file scan. Zero disables the limit.
	// Default: 0
	FileTimeout time.Duration `yaml:"file_timeout"`

	// Markers configures generated region detection.
	Markers MarkersConfig `yaml:"markers"`
}

// MarkersConfig contains the generated region comment markers.
// Empty values use the form designer markers.
type MarkersConfig struct {
	// RegionStart is the regex of the comment that starts a generated region.
	// Default: "GEN-BEGIN:"
	RegionStart string `yaml:"region_start"`

	// RegionStop is the regex of the comment that ends a generated region.
	// Default: "GEN-END:"
	RegionStop string `yaml:"region_stop"`

	// SingleLine are regexes of comments that suppress their own line.
	// Default: ["GEN-FIRST:", "GEN-LAST:"]
	SingleLine []string `yaml:"single_line"`
}

// TasksConfig contains configuration for the persisted task list.
type TasksConfig struct {
	// Enabled controls whether scan results are stored.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SQLite contains the task database settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention controls pruning of old task records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite database settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/tasks.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains task retention settings.
type RetentionConfig struct {
	// Days is how long task records are kept. Zero keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored tasks. Zero means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// ListenAddress serves metrics and health endpoints in watch mode.
	// Empty disables the HTTP listener.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "stylecheck"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for scan and rebuild
	// durations (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines where spans are written.
	// Options: "stdout", "otlp", "none"
	// Default: "stdout"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	// Only used when Exporter is "otlp".
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each OTLP export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "stylecheck"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
