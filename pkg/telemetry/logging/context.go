package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// ScanIDKey is the context key for batch scan identifiers.
	ScanIDKey contextKey = "scan_id"

	// FileKey is the context key for the file being checked.
	FileKey contextKey = "file"

	// GenerationKey is the context key for the configuration generation.
	GenerationKey contextKey = "generation"
)

// WithScanID adds a scan ID to the context.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, ScanIDKey, scanID)
}

// GetScanID retrieves the scan ID from the context.
func GetScanID(ctx context.Context) string {
	if scanID, ok := ctx.Value(ScanIDKey).(string); ok {
		return scanID
	}
	return ""
}

// WithFile adds a file path to the context.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, FileKey, path)
}

// GetFile retrieves the file path from the context.
func GetFile(ctx context.Context) string {
	if path, ok := ctx.Value(FileKey).(string); ok {
		return path
	}
	return ""
}

// WithGeneration adds a configuration generation to the context.
func WithGeneration(ctx context.Context, gen uint64) context.Context {
	return context.WithValue(ctx, GenerationKey, gen)
}

// GetGeneration retrieves the configuration generation from the context.
func GetGeneration(ctx context.Context) (uint64, bool) {
	gen, ok := ctx.Value(GenerationKey).(uint64)
	return gen, ok
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var fields []slog.Attr

	if scanID := GetScanID(ctx); scanID != "" {
		fields = append(fields, slog.String("scan_id", scanID))
	}
	if path := GetFile(ctx); path != "" {
		fields = append(fields, slog.String("file", path))
	}
	if gen, ok := GetGeneration(ctx); ok {
		fields = append(fields, slog.Uint64("generation", gen))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return fields
}
