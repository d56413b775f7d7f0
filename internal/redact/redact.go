// Package redact strips the blacklist API key out of text that is about to
// leave the process, such as chat replies and error reports.
package redact

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// UnknownError is returned when there is nothing to sanitize.
const UnknownError = "未知错误"

//nolint:gochecknoglobals // Compiled once, read-only.
var queryKeyPattern = regexp.MustCompile(`(?i)api_key=[^&\s"']+`)

// Sanitizer removes an API key from arbitrary error text.
type Sanitizer struct {
	APIKey string
}

// New returns a Sanitizer for the given key. An empty key only scrubs query strings.
func New(apiKey string) Sanitizer {
	return Sanitizer{APIKey: apiKey}
}

// Message renders v as text with every api_key query value and every literal
// occurrence of the key (plain or query-escaped) replaced by Placeholder.
func (s Sanitizer) Message(v any) string {
	msg := toText(v)
	if msg == "" {
		return UnknownError
	}

	msg = queryKeyPattern.ReplaceAllString(msg, "api_key="+Placeholder)

	if s.APIKey != "" {
		msg = strings.ReplaceAll(msg, s.APIKey, Placeholder)
		if escaped := url.QueryEscape(s.APIKey); escaped != s.APIKey {
			msg = strings.ReplaceAll(msg, escaped, Placeholder)
		}
	}

	return msg
}

// Error is shorthand for Message on an error value; nil yields UnknownError.
func (s Sanitizer) Error(err error) string {
	if err == nil {
		return UnknownError
	}
	return s.Message(err)
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
