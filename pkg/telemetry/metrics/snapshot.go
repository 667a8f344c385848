package metrics

import (
	"mercator-hq/stylecheck/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotMetrics tracks configuration snapshot rebuilds.
//
// Metrics:
//   - stylecheck_snapshot_rebuilds_total: Rebuilds by result (published, stale, error)
//   - stylecheck_snapshot_rebuild_duration_seconds: Time spent building a snapshot
//   - stylecheck_snapshot_generation: Generation of the published snapshot
type SnapshotMetrics struct {
	rebuildsTotal   *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	generation      prometheus.Gauge
}

// NewSnapshotMetrics creates and registers snapshot metrics with the provided registry.
func NewSnapshotMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SnapshotMetrics {
	sm := &SnapshotMetrics{
		rebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "snapshot_rebuilds_total",
				Help:      "Total number of configuration snapshot rebuilds",
			},
			[]string{"result"},
		),

		rebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "snapshot_rebuild_duration_seconds",
				Help:      "Configuration snapshot rebuild duration in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "snapshot_generation",
				Help:      "Generation of the currently published configuration snapshot",
			},
		),
	}

	registry.MustRegister(
		sm.rebuildsTotal,
		sm.rebuildDuration,
		sm.generation,
	)

	return sm
}
