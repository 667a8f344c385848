// Package scan runs configured checks over source files.
//
// Coordinator resolves the current configuration snapshot, applies the
// path filters, runs an engine checker through a cancellable run and
// filters the raw events by severity and by generated regions. It offers
// two entry points:
//
//   - ScanFile for interactive scans of one editor buffer. Each scan gets
//     a private checker that is destroyed afterwards and can be canceled
//     with CancelFile.
//   - ScanPooled for batch scans, sharing the checker cached by the
//     engine pool across files of the same configuration generation.
//
// BatchScanner walks directories and scans every file with a configured
// extension on a bounded errgroup, handing results to a Sink such as the
// task store. ErrorReporter turns configuration errors into one
// notification per distinct message.
package scan
