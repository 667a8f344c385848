package metrics

import (
	"mercator-hq/stylecheck/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks file scans and the diagnostics they produce.
//
// Metrics:
//   - stylecheck_files_scanned_total: Files scanned by outcome
//   - stylecheck_scan_duration_seconds: Per-file scan duration
//   - stylecheck_events_total: Diagnostics reported by check and level
//   - stylecheck_events_filtered_total: Diagnostics dropped by reason
//   - stylecheck_runs_total: Cancellable runs by terminal state
type ScanMetrics struct {
	filesTotal          *prometheus.CounterVec
	scanDuration        prometheus.Histogram
	eventsTotal         *prometheus.CounterVec
	eventsFilteredTotal *prometheus.CounterVec
	runsTotal           *prometheus.CounterVec
}

// NewScanMetrics creates and registers scan metrics with the provided registry.
func NewScanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "files_scanned_total",
				Help:      "Total number of files scanned",
			},
			[]string{"outcome"},
		),

		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_duration_seconds",
				Help:      "Duration of a single file scan in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_total",
				Help:      "Total number of diagnostics reported",
			},
			[]string{"check", "level"},
		),

		eventsFilteredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_filtered_total",
				Help:      "Total number of diagnostics dropped before reporting",
			},
			[]string{"reason"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of cancellable runs by final state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		sm.filesTotal,
		sm.scanDuration,
		sm.eventsTotal,
		sm.eventsFilteredTotal,
		sm.runsTotal,
	)

	return sm
}
