package metrics

import (
	"mercator-hq/stylecheck/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolMetrics tracks the engine pool.
//
// Metrics:
//   - stylecheck_engine_pool_hits_total: Acquisitions served by the pooled engine
//   - stylecheck_engine_pool_misses_total: Acquisitions that built a new engine
//   - stylecheck_engine_pool_destroyed_total: Engines destroyed, by reason
//   - stylecheck_engine_pool_in_use: Engines currently lent out
type PoolMetrics struct {
	hitsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	destroyedTotal *prometheus.CounterVec
	inUse          prometheus.Gauge
}

// NewPoolMetrics creates and registers pool metrics with the provided registry.
func NewPoolMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PoolMetrics {
	pm := &PoolMetrics{
		hitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_pool_hits_total",
				Help:      "Total number of engine acquisitions served by the pooled engine",
			},
		),

		missesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_pool_misses_total",
				Help:      "Total number of engine acquisitions that configured a new engine",
			},
		),

		destroyedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_pool_destroyed_total",
				Help:      "Total number of engines destroyed",
			},
			[]string{"reason"},
		),

		inUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_pool_in_use",
				Help:      "Number of engines currently acquired",
			},
		),
	}

	registry.MustRegister(
		pm.hitsTotal,
		pm.missesTotal,
		pm.destroyedTotal,
		pm.inUse,
	)

	return pm
}
