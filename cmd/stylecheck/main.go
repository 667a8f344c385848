// Stylecheck runs configurable style checks over source files.
//
// Preferences (severity, custom engine configuration, properties, rule
// classpath and path filters) are kept in a preference store and turned
// into an immutable configuration snapshot. Scans read the latest
// snapshot; preference edits rebuild it after a short debounce.
//
// Usage:
//
//	# Check a source tree
//	stylecheck check ./src
//
//	# Check only files modified in the git work tree
//	stylecheck check --git-changed
//
//	# Rescan files as they change and serve metrics and health endpoints
//	stylecheck watch ./src
//
//	# Inspect stored results
//	stylecheck tasks list --min-level warning
//
//	# Change a preference
//	stylecheck settings set severity warning
package main

func main() {
	Execute()
}
