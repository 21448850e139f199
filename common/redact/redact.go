// Package redact strips credential material from strings and maps before
// they reach log output or a chat room.
//
// Redaction is best-effort string replacement. It is a backstop, not a
// substitute for keeping tokens out of log call-sites.
package redact

import "strings"

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with the
// redaction placeholder. Values shorter than 4 characters are skipped so
// common substrings are not mangled.
func String(s string, sensitive ...string) string {
	for _, v := range sensitive {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Map returns a shallow copy of m with string values redacted for every key
// whose name suggests credential content. Non-string values pass through.
func Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sensitiveKey(k) {
			if s, ok := v.(string); ok && s != "" {
				out[k] = placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range []string{"password", "token", "secret", "apikey", "api_key", "credential", "auth"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
