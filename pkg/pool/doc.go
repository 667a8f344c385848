// Package pool caches one configured engine checker between scans.
//
// Configuring a checker parses the check configuration into bound checks
// and resolves every module through a loader, so a batch scan over many
// files should pay for it once per configuration generation. EnginePool
// holds a single slot keyed by loader and snapshot identity:
//
//	checker, err := pool.Acquire(ctx, snap.Loader, snap)
//	if err != nil {
//		return err
//	}
//	defer pool.Release(checker)
//
// A checker that is not the slot when released is destroyed.
package pool
