package metrics

import (
	"sync"
	"time"

	"mercator-hq/stylecheck/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// overflowLabel replaces check names once the cardinality limit is reached.
const overflowLabel = "other"

// Collector owns every stylecheck metric. It satisfies the recorder
// interfaces of the pool, snapshot and scan packages, so a single value
// is handed to each of them.
//
// All methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pool     *PoolMetrics
	snapshot *SnapshotMetrics
	scan     *ScanMetrics

	// Check names come from user classpaths, so they are capped.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		pool:               NewPoolMetrics(cfg, registry),
		snapshot:           NewSnapshotMetrics(cfg, registry),
		scan:               NewScanMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(500),
	}
}

// PoolHit records an acquisition served by the pooled engine.
func (c *Collector) PoolHit() {
	if !c.config.Enabled {
		return
	}
	c.pool.hitsTotal.Inc()
}

// PoolMiss records an acquisition that configured a new engine.
func (c *Collector) PoolMiss() {
	if !c.config.Enabled {
		return
	}
	c.pool.missesTotal.Inc()
}

// PoolDestroyed records an engine destroyed for reason ("evicted",
// "released", "cleared").
func (c *Collector) PoolDestroyed(reason string) {
	if !c.config.Enabled {
		return
	}
	c.pool.destroyedTotal.WithLabelValues(reason).Inc()
}

// PoolInUse sets the number of engines currently acquired.
func (c *Collector) PoolInUse(n int) {
	if !c.config.Enabled {
		return
	}
	c.pool.inUse.Set(float64(n))
}

// SnapshotRebuilt records a snapshot rebuild. result is "published",
// "stale" or "error".
func (c *Collector) SnapshotRebuilt(result string, duration time.Duration, generation uint64) {
	if !c.config.Enabled {
		return
	}
	c.snapshot.rebuildsTotal.WithLabelValues(result).Inc()
	c.snapshot.rebuildDuration.Observe(duration.Seconds())
	if result == "published" {
		c.snapshot.generation.Set(float64(generation))
	}
}

// FileScanned records a scanned file. outcome is "checked", "skipped",
// "canceled" or "error".
func (c *Collector) FileScanned(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.scan.filesTotal.WithLabelValues(outcome).Inc()
	if outcome == "checked" {
		c.scan.scanDuration.Observe(duration.Seconds())
	}
}

// EventReported records a diagnostic that reached the listener.
func (c *Collector) EventReported(check, level string) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(check) {
		check = overflowLabel
	}
	c.scan.eventsTotal.WithLabelValues(check, level).Inc()
}

// EventFiltered records a diagnostic dropped for reason ("severity",
// "generated", "line").
func (c *Collector) EventFiltered(reason string) {
	if !c.config.Enabled {
		return
	}
	c.scan.eventsFilteredTotal.WithLabelValues(reason).Inc()
}

// RunFinished records the terminal state of a cancellable run.
func (c *Collector) RunFinished(state string) {
	if !c.config.Enabled {
		return
	}
	c.scan.runsTotal.WithLabelValues(state).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
