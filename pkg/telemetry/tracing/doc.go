// Package tracing provides OpenTelemetry tracing for stylecheck.
//
// Batch scans open a span per batch and a child span per file, and
// snapshot rebuilds get their own span. Spans are written to stdout as
// JSON or sent to an OTLP gRPC collector:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    insecure: true
//
// A nil *Tracer is valid and produces noop spans, so components can hold
// one unconditionally.
package tracing
