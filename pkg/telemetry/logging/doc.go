// Package logging builds the structured loggers used across stylecheck.
//
// Loggers are plain *slog.Logger values so every package can accept one
// without depending on this package. The handler installed by New adds
// fields carried by the context:
//
//	ctx = logging.WithScanID(ctx, runID)
//	ctx = logging.WithFile(ctx, "src/Foo.java")
//	logger.InfoContext(ctx, "file checked", "events", 3)
//
// Active OpenTelemetry spans contribute trace_id and span_id.
//
// Values under keys that look like credentials (password, token, secret)
// are masked, including inside map[string]string attributes such as the
// custom check properties.
package logging
