package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SchemaVersion is embedded in every fingerprint so that a future change to
// the cache's admission or shaping rules can be rolled out without colliding
// with entries computed under the old rules.
const SchemaVersion = "v1.0"

// NormalizeQuery trims surrounding whitespace and collapses internal
// whitespace runs, matching the normalization SQLQuery applies to statement
// text (spec §3, §4.5) so the same convention is used everywhere a query
// string is hashed or compared.
func NormalizeQuery(query string) string {
	fields := strings.Fields(query)
	return strings.Join(fields, " ")
}

// Fingerprint deterministically derives a 256-bit hex identifier from
// (prefixTag, normalized query, SchemaVersion). It is pure — never subject to
// the circuit breaker (spec §4.3) — and must return the same value across
// process restarts for the same inputs.
func Fingerprint(prefixTag, query string) string {
	h := sha256.New()
	h.Write([]byte(prefixTag))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(SchemaVersion))
	return hex.EncodeToString(h.Sum(nil))
}
