// Package rcache implements the FACT resilient cache facade (spec §4.3,
// component C3): the single object exposed to the query pipeline (C6),
// combining the cache store (C1) and circuit breaker (C2) behind one
// contract that distinguishes a true cache Miss from a breaker-induced
// Degraded response.
package rcache

import (
	"errors"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/cache"
)

// ErrDegraded is returned by Get/Store/Invalidate when the breaker
// fast-failed the call. Distinct from cache.ErrMiss: callers (C6) treat both
// as "proceed without cache" but must count them separately (spec §4.3).
var ErrDegraded = errors.New("resilient cache: degraded, breaker is open")

// Store is the subset of *cache.Store the facade depends on. Expressed as an
// interface so tests can substitute a faulty collaborator to exercise
// breaker fault-injection (spec scenario S4) without a real Store.
type Store interface {
	Get(fingerprint string) (*cache.Entry, error)
	Store(fingerprint string, content []byte) (*cache.Entry, error)
	Invalidate(prefixTag string) int
	SnapshotMetrics() cache.Metrics
	Fingerprint(query string) string
}

// Facade wraps a Store behind a breaker.Breaker.
type Facade struct {
	store   Store
	breaker *breaker.Breaker
}

// New constructs a Facade over store, guarded by br.
func New(store Store, br *breaker.Breaker) *Facade {
	return &Facade{store: store, breaker: br}
}

// Get probes the cache for fingerprint. Returns (entry, nil) on a hit,
// (nil, cache.ErrMiss) on a genuine miss/expiry, or (nil, ErrDegraded) when
// the breaker declined to invoke the store.
func (f *Facade) Get(fingerprint string) (*cache.Entry, error) {
	var entry *cache.Entry
	err := f.breaker.Execute("cache.get", classifyErr, func() error {
		e, err := f.store.Get(fingerprint)
		if err != nil {
			if errors.Is(err, cache.ErrMiss) {
				return nil // a miss is not a breaker-tracked failure
			}
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return nil, ErrDegraded
		}
		return nil, err
	}
	if entry == nil {
		return nil, cache.ErrMiss
	}
	return entry, nil
}

// Store admits content under fingerprint. Returns (entry, nil) on success,
// (nil, cache.ErrTooSmall) on admission rejection (NOT a breaker failure —
// spec §4.3: "A Rejected(TooSmall) from C1.store is NOT a failure"), or
// (nil, ErrDegraded) when the breaker declined to invoke the store.
func (f *Facade) Store(fingerprint string, content []byte) (*cache.Entry, error) {
	var entry *cache.Entry
	var rejected error
	err := f.breaker.Execute("cache.store", classifyErr, func() error {
		e, err := f.store.Store(fingerprint, content)
		if err != nil {
			if errors.Is(err, cache.ErrTooSmall) {
				rejected = cache.ErrTooSmall
				return nil
			}
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return nil, ErrDegraded
		}
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	return entry, nil
}

// Invalidate removes every entry under prefixTag. Returns (count, nil) or
// (0, ErrDegraded).
func (f *Facade) Invalidate(prefixTag string) (int, error) {
	var count int
	err := f.breaker.Execute("cache.invalidate", classifyErr, func() error {
		count = f.store.Invalidate(prefixTag)
		return nil
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return 0, ErrDegraded
		}
		return 0, err
	}
	return count, nil
}

// Fingerprint computes the deterministic fingerprint for query. Pure — never
// subject to the breaker (spec §4.3).
func (f *Facade) Fingerprint(query string) string {
	return f.store.Fingerprint(query)
}

// Snapshot combines cache and circuit metrics for the unified C7 view.
type Snapshot struct {
	Cache   cache.Metrics
	Circuit breaker.Metrics
}

// Metrics returns the combined cache + circuit metrics snapshot.
func (f *Facade) Metrics() Snapshot {
	return Snapshot{Cache: f.store.SnapshotMetrics(), Circuit: f.breaker.Metrics()}
}

// classifyErr maps a raw Store error to a breaker failure-kind tag (spec
// §4.3: "timeout", "store_error", "lookup_error", "other").
func classifyErr(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, cache.ErrMiss), errors.Is(err, cache.ErrTooSmall):
		return "other"
	default:
		return "store_error"
	}
}
