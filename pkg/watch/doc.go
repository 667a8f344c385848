// Package watch provides debounced file system notifications.
package watch
