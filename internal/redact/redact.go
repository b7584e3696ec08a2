// Package redact masks key material and credentials before they reach logs
// or printed configuration.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder replaces every masked value.
const Placeholder = "[REDACTED]"

var sensitiveNames = []string{"key", "secret", "token", "password"}

var (
	kvSecretRe = regexp.MustCompile(`(?i)\b((?:key|secret|token|password)\s*[:=]\s*)(['"]?)([^\s'"]+)(['"]?)`)
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9._\-]{10,})`)
	jwtRe      = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`)
)

// Sensitive reports whether a field name holds key material or a credential.
// Names match exactly or as a "_"-separated suffix, so "jwt_secret" is
// sensitive while "key_length" is not.
func Sensitive(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, s := range sensitiveNames {
		if lower == s || strings.HasSuffix(lower, "_"+s) {
			return true
		}
	}
	return false
}

// String masks inline credentials such as "key=..." pairs, bearer tokens
// and JWTs.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := jwtRe.ReplaceAllString(in, Placeholder)
	masked = bearerRe.ReplaceAllString(masked, `$1 `+Placeholder)
	masked = kvSecretRe.ReplaceAllString(masked, `$1$2`+Placeholder+`$4`)
	return masked
}

// Value masks credentials nested inside v.
func Value(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case fmt.Stringer:
		return String(val.String())
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = String(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Value(elem)
		}
		return out
	case map[string]any:
		return Map(val)
	case map[string]string:
		return MapString(val)
	default:
		return v
	}
}

// Map returns a copy of in with sensitive entries replaced by Placeholder.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if Sensitive(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = Value(v)
	}
	return out
}

// MapString is Map for string maps.
func MapString(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if Sensitive(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = String(v)
	}
	return out
}
