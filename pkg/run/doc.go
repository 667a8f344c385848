// Package run executes scans on a bounded worker pool with cooperative
// cancellation.
//
// A CancellableRun moves through Idle, Running and one of the terminal
// states Completed, Canceled or Failed. The task receives a context that
// is canceled by Cancel or by the caller's context; the engine polls it
// between checks. A canceled run returns no events and no error.
//
//	r := run.NewCancellableRun(workers)
//	events, err := r.Execute(ctx, func(ctx context.Context) ([]diag.Event, error) {
//		checker, err := pool.Acquire(ctx, nil, snap)
//		if err != nil {
//			return nil, err
//		}
//		defer pool.Release(checker)
//		...
//	})
//
// Execute waits for the task to return even after cancellation, so the
// task's deferred cleanup has always run when Execute returns.
package run
