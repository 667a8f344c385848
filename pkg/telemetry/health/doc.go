// Package health provides liveness and readiness endpoints for the
// stylecheck watch daemon.
//
// Liveness always succeeds while the process runs. Readiness runs the
// registered component checks concurrently, each bounded by the
// configured timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("snapshot", health.ErrorCheck(store.Err))
//	checker.RegisterCheck("tasks", health.PingCheck(taskStore))
//	health.Mount(mux, checker, cfg.Telemetry.Health, info)
package health
