// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package logging

import (
	"net/http"
	"strings"
)

// RedactionMarker replaces every value whose key matches the deny-list.
const RedactionMarker = "[REDACTED]"

// denyListSubstrings are matched case-insensitively as substrings of a key,
// so "apiKey", "x-api-key" and "stripe_secret_key" are all caught.
var denyListSubstrings = []string{
	"authorization",
	"cookie",
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"credential",
	"private_key",
}

// SensitiveKey reports whether a field name matches the redaction deny-list.
func SensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range denyListSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactValue returns the redaction marker for sensitive keys, the original
// value otherwise.
func RedactValue(key, value string) string {
	if SensitiveKey(key) {
		return RedactionMarker
	}
	return value
}

// RedactMap returns a deep copy of m with every sensitive field replaced by
// the redaction marker. Redaction applies recursively to nested maps and to
// slices of maps, so structured payloads are safe to log wholesale.
func RedactMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if SensitiveKey(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = redactAny(v)
	}
	return out
}

// redactAny recurses into maps and slices, passing scalars through.
func redactAny(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return RedactMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = redactAny(item)
		}
		return out
	default:
		return v
	}
}

// RedactHeaders returns a flattened, redacted copy of HTTP headers suitable
// for log emission. Multi-valued headers are joined with ", ".
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if SensitiveKey(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

// MaskToken masks a credential for diagnostic output, showing only the first
// and last 4 characters. Use this when a redacted-but-correlatable form is
// needed (e.g. matching a token across log lines).
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
