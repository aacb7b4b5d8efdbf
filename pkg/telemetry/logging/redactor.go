package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// defaultSensitiveKeys are matched as substrings of lower-cased attribute keys.
var defaultSensitiveKeys = []string{
	"password", "passwd",
	"secret", "token", "api_key", "apikey",
	"authorization",
	"dsn",
	"private_key",
}

// dsnPassword matches the password part of a URL-style connection string.
var dsnPassword = regexp.MustCompile(`(://[^:/@\s]+:)([^@\s]+)(@)`)

// Redactor masks sensitive values in log attributes.
type Redactor struct {
	keys []string
}

// NewRedactor creates a Redactor that masks the default sensitive keys plus
// extraKeys.
func NewRedactor(extraKeys []string) *Redactor {
	keys := append([]string{}, defaultSensitiveKeys...)
	for _, k := range extraKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return &Redactor{keys: keys}
}

// IsSensitiveKey reports whether key names sensitive data.
func (r *Redactor) IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range r.keys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Values of sensitive
// keys are replaced and passwords embedded in connection URLs are masked in
// every string value.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); strings.Contains(s, "://") {
			return slog.String(a.Key, RedactURLPassword(s))
		}
	}
	return a
}

// RedactURLPassword masks the password of every user:password@ pair in s.
func RedactURLPassword(s string) string {
	return dsnPassword.ReplaceAllString(s, "${1}***${3}")
}
