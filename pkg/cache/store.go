// Package cache implements the FACT response cache (spec §4.1, component
// C1): a content-addressed, in-memory store with token-gated admission,
// TTL expiry, and size-bounded LRU eviction.
package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// Store is the in-memory cache of fingerprint -> Entry. All operations are
// atomic under a single mutex; hits are cheap so contention is expected to
// be low (spec §4.1 concurrency note).
type Store struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*list.Element // fingerprint -> element holding *Entry
	lru     *list.List               // front = most recently used

	metrics Metrics

	now func() time.Time
}

// New constructs a Store. cfg must already be valid (see Config.Validate).
func New(cfg Config) *Store {
	if cfg.TokenEstimator == nil {
		cfg.TokenEstimator = EstimateTokens
	}
	return &Store{
		cfg:     cfg,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Store admits content into the cache under fingerprint, or rejects it.
// Returns (entry, nil) on admission, (nil, ErrTooSmall) when the token
// count is below the configured threshold (spec §4.1 admission policy).
func (s *Store) Store(fingerprint string, content []byte) (*Entry, error) {
	tokenCount := s.cfg.TokenEstimator(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if tokenCount < s.cfg.MinTokensThreshold {
		s.metrics.RejectedTooSmall++
		return nil, ErrTooSmall
	}

	now := s.now()
	entry := &Entry{
		Fingerprint:    fingerprint,
		Content:        append([]byte(nil), content...),
		TokenCount:     tokenCount,
		ByteSize:       len(content),
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    0,
		PrefixTag:      s.cfg.PrefixTag,
	}

	if el, ok := s.entries[fingerprint]; ok {
		s.metrics.TotalBytes -= int64(el.Value.(*Entry).ByteSize)
		el.Value = entry
		s.lru.MoveToFront(el)
	} else {
		el := s.lru.PushFront(entry)
		s.entries[fingerprint] = el
	}
	s.metrics.TotalBytes += int64(entry.ByteSize)
	s.metrics.Stores++

	s.evictLocked()

	return entry.clone(), nil
}

// Get looks up fingerprint. Returns (entry, nil) on a live hit, or
// (nil, ErrMiss) when absent or expired (the expired entry is removed and
// counted as an expiration, not a miss-without-cause, per spec §4.1).
func (s *Store) Get(fingerprint string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[fingerprint]
	if !ok {
		s.metrics.Misses++
		return nil, ErrMiss
	}

	entry := el.Value.(*Entry)
	now := s.now()
	if now.Sub(entry.CreatedAt) > s.cfg.TTL {
		s.removeLocked(el)
		s.metrics.Expirations++
		s.metrics.Misses++
		return nil, ErrMiss
	}

	entry.LastAccessedAt = now
	entry.AccessCount++
	s.lru.MoveToFront(el)
	s.metrics.Hits++

	return entry.clone(), nil
}

// Invalidate removes every entry whose PrefixTag matches and returns the
// count removed.
func (s *Store) Invalidate(prefixTag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for _, el := range s.entries {
		if el.Value.(*Entry).PrefixTag == prefixTag {
			s.removeLocked(el)
			removed++
		}
	}
	return removed
}

// SweepExpired removes all entries whose TTL has elapsed and returns the
// count removed. Intended to be called periodically by C7 maintenance.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int
	for _, el := range s.entries {
		entry := el.Value.(*Entry)
		if now.Sub(entry.CreatedAt) > s.cfg.TTL {
			s.removeLocked(el)
			removed++
		}
	}
	s.metrics.Expirations += int64(removed)
	return removed
}

// SnapshotMetrics returns a consistent point-in-time copy of the counters.
func (s *Store) SnapshotMetrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.metrics
	m.EntryCount = len(s.entries)
	return m
}

// Fingerprint computes the deterministic fingerprint for query under this
// store's configured prefix tag. Pure — does not touch store state.
func (s *Store) Fingerprint(query string) string {
	return Fingerprint(s.cfg.PrefixTag, query)
}

// evictLocked evicts least-recently-used entries until total_bytes falls to
// max_bytes * target_fill_ratio, per spec §4.1. Caller must hold s.mu.
func (s *Store) evictLocked() {
	if s.metrics.TotalBytes <= s.cfg.MaxBytes {
		return
	}
	target := int64(float64(s.cfg.MaxBytes) * s.cfg.TargetFillRatio)
	for s.metrics.TotalBytes > target {
		back := s.lru.Back()
		if back == nil {
			break
		}
		s.removeLocked(back)
		s.metrics.Evictions++
	}
}

// removeLocked detaches an element from the LRU list and deducts its bytes
// from the running total. Caller must hold s.mu and remove it from the
// entries map separately (some callers, like Get's expiry path, need to do
// so with the map key already in hand).
func (s *Store) removeLocked(el *list.Element) {
	entry := el.Value.(*Entry)
	s.lru.Remove(el)
	s.metrics.TotalBytes -= int64(entry.ByteSize)
	delete(s.entries, entry.Fingerprint)
	slog.Debug("cache entry removed", "fingerprint", entry.Fingerprint)
}
