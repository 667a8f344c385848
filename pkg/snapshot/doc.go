// Package snapshot turns user preferences into immutable configuration
// snapshots and keeps the current one up to date.
//
// A Builder resolves preference values into a Snapshot: merged engine
// properties, the parsed check configuration, the check loader and the
// path patterns. A Store owns the current Snapshot. It debounces bursts
// of preference changes into a single rebuild, caches a failed build as a
// *ConfigError, and publishes new snapshots atomically.
//
//	store := snapshot.NewStore(prefs, snapshot.WithDelay(300*time.Millisecond))
//	store.Start(ctx)
//	snap, err := store.Get(ctx)
//
// Snapshots compare by identity: the engine pool reuses a checker only for
// the very Snapshot it was configured from.
package snapshot
