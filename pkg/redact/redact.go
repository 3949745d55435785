// Package redact scrubs secret-shaped strings out of SQL result values
// before they reach the cache or the LLM. Grounded on the teacher's
// pkg/masking builtin regex set, stripped of its MCP-server-config
// resolution machinery (FACT has one static set of patterns, not
// per-server configurable groups).
package redact

import "regexp"

// pattern pairs a compiled matcher with its redaction label.
type pattern struct {
	name  string
	regex *regexp.Regexp
}

var patterns = []pattern{
	{"api_key", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`)},
	{"password", regexp.MustCompile(`(?i)(?:password|pwd|pass)["']?\s*[:=]\s*["']?([^"'\s]{6,})["']?`)},
	{"private_key_block", regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`)},
	{"bearer_token", regexp.MustCompile(`(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`)},
	{"aws_access_key_id", regexp.MustCompile(`AKIA[A-Z0-9]{16}`)},
	{"aws_secret_access_key", regexp.MustCompile(`(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`)},
	{"github_token", regexp.MustCompile(`gh[ps]_[A-Za-z0-9_]{36,255}`)},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,72}`)},
}

const mask = "[REDACTED]"

// String returns s with any secret-shaped substring replaced by a
// "[REDACTED]" marker named after the pattern that matched.
func String(s string) string {
	out := s
	for _, p := range patterns {
		out = p.regex.ReplaceAllString(out, mask)
	}
	return out
}

// Value redacts v in place when it is a string; other types pass through
// unchanged (redaction only targets free-text column values, not numeric
// or structured data).
func Value(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return String(s)
}
