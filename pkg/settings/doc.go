// Package settings holds the user preferences that drive scanning and
// notifies subscribers when they change.
//
// Preferences are an immutable Values bundle. Stores replace the whole
// bundle on SetValues and emit one Change per property that differs, so
// consumers can react to any edit without polling. Three stores are
// provided: MemoryStore for embedding and tests, FileStore for a YAML or
// TOML preferences file that may also be edited by hand, and SQLStore for
// a preferences table in an SQLite database.
package settings
