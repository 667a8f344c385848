// Package metrics provides Prometheus metrics for stylecheck.
//
// # Metrics Categories
//
//   - Pool metrics: engine reuse, construction and destruction
//   - Snapshot metrics: configuration rebuild results, duration and generation
//   - Scan metrics: files scanned, per-file duration, reported and dropped
//     diagnostics, cancellable run outcomes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engines := pool.New(pool.WithRecorder(collector))
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Check names are user defined, so the check label is capped and further
// names are folded into "other".
package metrics
