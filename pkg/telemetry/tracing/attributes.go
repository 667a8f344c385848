package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for stylecheck spans.
const (
	AttrFile       = "stylecheck.file"
	AttrScanID     = "stylecheck.scan_id"
	AttrGeneration = "stylecheck.generation"
	AttrCheck      = "stylecheck.check"
	AttrEvents     = "stylecheck.events"
	AttrFiltered   = "stylecheck.events.filtered"
	AttrFiles      = "stylecheck.files"
	AttrPooled     = "stylecheck.engine.pooled"
	AttrSkipped    = "stylecheck.skipped"
	AttrReason     = "stylecheck.reason"
)

// SetFileAttributes records the file being checked and the snapshot
// generation used for it.
func SetFileAttributes(span trace.Span, path string, generation uint64) {
	span.SetAttributes(
		attribute.String(AttrFile, path),
		attribute.Int64(AttrGeneration, int64(generation)),
	)
}

// SetResultAttributes records how many diagnostics were kept and dropped.
func SetResultAttributes(span trace.Span, events, filtered int) {
	span.SetAttributes(
		attribute.Int(AttrEvents, events),
		attribute.Int(AttrFiltered, filtered),
	)
}

// SetSkipped marks the span as a skipped scan.
func SetSkipped(span trace.Span, reason string) {
	span.SetAttributes(
		attribute.Bool(AttrSkipped, true),
		attribute.String(AttrReason, reason),
	)
}

// SetBatchAttributes records the scan ID and file count of a batch.
func SetBatchAttributes(span trace.Span, scanID string, files int) {
	span.SetAttributes(
		attribute.String(AttrScanID, scanID),
		attribute.Int(AttrFiles, files),
	)
}
