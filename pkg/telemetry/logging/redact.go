package logging

import (
	"log/slog"
	"strings"
)

const redacted = "***"

// sensitiveKeys are substrings of attribute keys whose values are masked.
// Custom check properties commonly carry repository credentials.
var sensitiveKeys = []string{"password", "passwd", "secret", "token", "credential"}

// IsSensitive reports whether values under key should not be logged.
func IsSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// RedactProperties returns a copy of props with sensitive values masked.
func RedactProperties(props map[string]string) map[string]string {
	if props == nil {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		if IsSensitive(k) {
			v = redacted
		}
		out[k] = v
	}
	return out
}

func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if IsSensitive(a.Key) && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindAny {
		if props, ok := a.Value.Any().(map[string]string); ok {
			return slog.Any(a.Key, RedactProperties(props))
		}
	}
	return a
}
