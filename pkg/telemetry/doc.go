// Package telemetry bundles the observability components of stylecheck.
//
// # Components
//
//   - logging: structured slog loggers with context fields
//   - metrics: Prometheus metrics for the engine pool, snapshots and scans
//   - tracing: OpenTelemetry spans for rebuilds and scans
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, os.Stderr, info)
//	defer tel.Shutdown(ctx)
//
//	logger := tel.Logger()
//	engines := pool.New(pool.WithRecorder(tel.Metrics()))
//	go tel.Serve(ctx)
//
// Serve exposes metrics and health endpoints on ListenAddress and is only
// started by the watch command.
package telemetry
