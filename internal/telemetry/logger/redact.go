package logger

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// DefaultTokenPrefix is the prefix of SkillGate bearer tokens.
const DefaultTokenPrefix = "ask_live_"

var (
	prefixMu               sync.RWMutex
	sensitiveValuePrefixes = []string{DefaultTokenPrefix}
)

// Keys whose values are always fully redacted. Matching is on the whole
// key or a "_"-separated suffix, so "token" and "access_token" are caught
// while "token_id" and "token_name" stay readable.
var sensitiveKeys = []string{
	"token",
	"password",
	"secret",
	"authorization",
	"credential",
	"bearer",
	"plaintext",
}

const redactedValue = "***REDACTED***"

// RegisterTokenPrefix adds a value prefix that should be partially masked.
func RegisterTokenPrefix(prefix string) {
	if prefix == "" {
		return
	}
	prefixMu.Lock()
	defer prefixMu.Unlock()
	if !slices.Contains(sensitiveValuePrefixes, prefix) {
		sensitiveValuePrefixes = append(sensitiveValuePrefixes, prefix)
	}
}

func matchPrefix(value string) (string, bool) {
	prefixMu.RLock()
	defer prefixMu.RUnlock()
	for _, p := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, p) {
			return p, true
		}
	}
	return "", false
}

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		// A recognizable token keeps its prefix and a hint; this wins over
		// key-based redaction.
		if p, ok := matchPrefix(v); ok {
			return slog.String(a.Key, maskValue(v, p))
		}
		if v != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskValue keeps the prefix, the first and last three characters of the
// body and hides the rest.
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks value if it carries a known token prefix.
func RedactString(value string) string {
	if p, ok := matchPrefix(value); ok {
		return maskValue(value, p)
	}
	return value
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if k == s || strings.HasSuffix(k, "_"+s) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value carries a known token prefix.
func IsSensitiveValue(value string) bool {
	_, ok := matchPrefix(value)
	return ok
}
