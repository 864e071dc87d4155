// Package redact removes sensitive information from strings before they are
// logged. It covers free-form error text (connection strings, credentials,
// tokens, SQL) as well as the structured request parts recorded by the audit
// log: header sets and query strings.
package redact

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type pattern struct {
	re          *regexp.Regexp
	placeholder string
}

// patterns are applied in order. Connection strings and JWTs go first so that
// the broader credential patterns do not split them.
var patterns = []pattern{
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|db|database)://[^@\s]+@`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactedJWTPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(?s)(?:goroutine \d+ \[|panic:).*`),
		RedactedStackPlaceholder,
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		RedactedEmailPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[^;]*`),
		RedactedSQLPlaceholder,
	},
	{
		regexp.MustCompile(`(/[\w.-]+){3,}`),
		RedactedPathPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Header names whose values are always elided. Matching is case-insensitive.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
}

// Any header whose lowercased name contains one of these is elided too,
// which covers X-API-Key, X-Auth-Token, X-Client-Secret and friends.
var sensitiveHeaderFragments = []string{"api-key", "apikey", "token", "secret"}

// IsSensitiveHeader reports whether the value of the named header must not
// be logged.
func IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if _, ok := sensitiveHeaders[lower]; ok {
		return true
	}
	for _, fragment := range sensitiveHeaderFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Headers flattens h into a loggable map keyed by canonical header name.
// Multiple values are joined with ", " and sensitive values are replaced by
// RedactionPlaceholder.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := http.CanonicalHeaderKey(name)
		if IsSensitiveHeader(key) {
			out[key] = RedactionPlaceholder
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// HeaderNames returns the keys of a Headers result in sorted order.
func HeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query parameters whose values are elided from logged query strings.
var sensitiveQueryParams = map[string]struct{}{
	"token":        {},
	"access_token": {},
	"api_key":      {},
	"password":     {},
}

// Query returns rawQuery with the values of sensitive parameters replaced by
// RedactionPlaceholder. Parameter order and all other bytes are preserved.
func Query(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	parts := strings.Split(rawQuery, "&")
	for i, part := range parts {
		key, _, hasValue := strings.Cut(part, "=")
		name, err := url.QueryUnescape(key)
		if err != nil {
			name = key
		}
		if _, ok := sensitiveQueryParams[strings.ToLower(name)]; ok && hasValue {
			parts[i] = key + "=" + RedactionPlaceholder
		}
	}
	return strings.Join(parts, "&")
}
