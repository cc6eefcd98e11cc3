// Package redact removes credential and identifier material from audit
// value snapshots before they are persisted. The field list is explicit so
// it can be tested; matching is by exact, case-insensitive field name.
package redact

import "strings"

// Placeholder replaces redacted values in persisted snapshots.
const Placeholder = "[REDACTED]"

// sensitiveFields never reach the audit store in clear text.
var sensitiveFields = map[string]bool{
	"password":        true,
	"password_hash":   true,
	"token":           true,
	"secret":          true,
	"api_key":         true,
	"ssn":             true,
	"social_security": true,
	"credit_card":     true,
	"cvv":             true,
	"pin":             true,
	"access_token":    true,
	"refresh_token":   true,
	"mfa_secret":      true,
	"recovery_codes":  true,
}

// IsSensitive reports whether a field name is on the redaction list.
func IsSensitive(field string) bool {
	return sensitiveFields[strings.ToLower(field)]
}

// Map returns a copy of the snapshot with sensitive values replaced.
// Nested maps are redacted recursively; the input is never mutated since
// callers may hold the same map the business handler used.
func Map(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if IsSensitive(k) {
			out[k] = Placeholder
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Map(nested)
			continue
		}
		out[k] = v
	}
	return out
}
