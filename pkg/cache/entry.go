package cache

import "time"

// Entry is an immutable cached response, aside from its access counters.
type Entry struct {
	Fingerprint string
	Content     []byte
	TokenCount  int
	ByteSize    int
	CreatedAt   time.Time
	PrefixTag   string

	// Mutated only by Store.Get (access bump).
	LastAccessedAt time.Time
	AccessCount    int64
}

// clone returns a value copy safe to hand to callers without exposing the
// map-internal entry to external mutation.
func (e *Entry) clone() *Entry {
	cp := *e
	cp.Content = append([]byte(nil), e.Content...)
	return &cp
}
