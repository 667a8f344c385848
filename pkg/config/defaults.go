package config

import "time"

// Default values for configuration fields.
const (
	// Settings defaults
	DefaultSettingsStore         = "file"
	DefaultSettingsPath          = "stylecheck-prefs.yaml"
	DefaultSettingsWatch         = true
	DefaultSettingsWatchDebounce = 100 * time.Millisecond

	// Scan defaults
	DefaultReloadDelay = 300 * time.Millisecond
	DefaultWorkers     = 10

	// Tasks defaults
	DefaultTasksEnabled           = false
	DefaultTasksSQLitePath        = "data/tasks.db"
	DefaultTasksSQLiteMaxOpen     = 10
	DefaultTasksSQLiteMaxIdle     = 5
	DefaultTasksSQLiteWALMode     = true
	DefaultTasksSQLiteBusyTimeout = 5 * time.Second
	DefaultTasksRetentionDays     = 30
	DefaultTasksRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultListenAddress      = "127.0.0.1:9464"
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "stylecheck"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "stdout"
	DefaultTracingService     = "stylecheck"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultExtensions are the file extensions batch scans consider.
var DefaultExtensions = []string{".java", ".go"}

// DefaultDurationBuckets are histogram buckets for scan durations (seconds).
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// DefaultConfig returns a configuration with every field at its default.
// Booleans that default to true can only be switched off when a file is
// decoded on top of this value, which is how LoadConfig uses it.
func DefaultConfig() *Config {
	cfg := &Config{
		Settings: SettingsConfig{
			Watch: DefaultSettingsWatch,
		},
		Tasks: TasksConfig{
			Enabled: DefaultTasksEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultTasksSQLiteWALMode,
			},
		},
		Telemetry: TelemetryConfig{
			ListenAddress: DefaultListenAddress,
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
			},
			Health: HealthConfig{
				Enabled: DefaultHealthEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Settings defaults
	if cfg.Settings.Store == "" {
		cfg.Settings.Store = DefaultSettingsStore
	}
	if cfg.Settings.Path == "" {
		cfg.Settings.Path = DefaultSettingsPath
	}
	if cfg.Settings.WatchDebounce == 0 {
		cfg.Settings.WatchDebounce = DefaultSettingsWatchDebounce
	}

	// Scan defaults
	if cfg.Scan.ReloadDelay == 0 {
		cfg.Scan.ReloadDelay = DefaultReloadDelay
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = DefaultWorkers
	}
	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = append([]string(nil), DefaultExtensions...)
	}

	// Tasks defaults
	if cfg.Tasks.SQLite.Path == "" {
		cfg.Tasks.SQLite.Path = DefaultTasksSQLitePath
	}
	if cfg.Tasks.SQLite.MaxOpenConns == 0 {
		cfg.Tasks.SQLite.MaxOpenConns = DefaultTasksSQLiteMaxOpen
	}
	if cfg.Tasks.SQLite.MaxIdleConns == 0 {
		cfg.Tasks.SQLite.MaxIdleConns = DefaultTasksSQLiteMaxIdle
	}
	if cfg.Tasks.SQLite.BusyTimeout == 0 {
		cfg.Tasks.SQLite.BusyTimeout = DefaultTasksSQLiteBusyTimeout
	}
	if cfg.Tasks.Retention.Days == 0 {
		cfg.Tasks.Retention.Days = DefaultTasksRetentionDays
	}
	if cfg.Tasks.Retention.PruneSchedule == "" {
		cfg.Tasks.Retention.PruneSchedule = DefaultTasksRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
