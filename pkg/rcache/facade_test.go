package rcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/cache"
)

// faultyStore lets tests force every Store call to fail, modeling spec
// scenario S4 ("cache store operations configured to raise").
type faultyStore struct {
	storeErr error
	getErr   error
	entries  map[string]*cache.Entry
}

func newFaultyStore() *faultyStore {
	return &faultyStore{entries: make(map[string]*cache.Entry)}
}

func (f *faultyStore) Get(fp string) (*cache.Entry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if e, ok := f.entries[fp]; ok {
		return e, nil
	}
	return nil, cache.ErrMiss
}

func (f *faultyStore) Store(fp string, content []byte) (*cache.Entry, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	e := &cache.Entry{Fingerprint: fp, Content: content}
	f.entries[fp] = e
	return e, nil
}

func (f *faultyStore) Invalidate(prefixTag string) int { return 0 }
func (f *faultyStore) SnapshotMetrics() cache.Metrics  { return cache.Metrics{} }
func (f *faultyStore) Fingerprint(q string) string     { return "fp-" + q }

func TestFacade_S4_BreakerOpensThenRecovers(t *testing.T) {
	fs := newFaultyStore()
	fs.storeErr = errors.New("disk full")

	br := breaker.New("cache", breaker.Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      50 * time.Millisecond,
		RecoveryFactor:   1,
		WindowSize:       10,
	})
	f := New(fs, br)

	for i := 0; i < 3; i++ {
		_, err := f.Store("fp1", []byte("x"))
		require.Error(t, err)
	}
	assert.Equal(t, breaker.Open, br.State())

	// Next get within open_timeout: Degraded, store never invoked.
	_, err := f.Get("fp1")
	require.ErrorIs(t, err, ErrDegraded)

	time.Sleep(80 * time.Millisecond)
	fs.storeErr = nil // collaborator recovers

	_, err = f.Get("fp1") // admitted into HALF_OPEN
	require.NoError(t, err)
	assert.Equal(t, breaker.HalfOpen, br.State())

	_, err = f.Get("fp1") // second success closes the breaker
	require.NoError(t, err)
	assert.Equal(t, breaker.Closed, br.State())

	m := br.Metrics()
	assert.EqualValues(t, 3, m.StateChangesCount)
}

func TestFacade_Store_TooSmallIsNotABreakerFailure(t *testing.T) {
	store := cache.New(cache.Config{
		MinTokensThreshold: 100,
		TTL:                time.Minute,
		MaxBytes:           1024,
		TargetFillRatio:    0.8,
		PrefixTag:          "t",
		TokenEstimator:     cache.EstimateTokens,
	})
	br := breaker.New("cache", breaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenTimeout:      time.Second,
		RecoveryFactor:   1,
		WindowSize:       10,
	})
	f := New(store, br)

	for i := 0; i < 5; i++ {
		_, err := f.Store("fp", []byte("too short"))
		require.ErrorIs(t, err, cache.ErrTooSmall)
	}
	assert.Equal(t, breaker.Closed, br.State(), "TooSmall rejections must never trip the breaker")
}

func TestFacade_Fingerprint_BypassesBreaker(t *testing.T) {
	fs := newFaultyStore()
	br := breaker.New("cache", breaker.Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Second,
		RecoveryFactor:   1,
		WindowSize:       10,
	})
	f := New(fs, br)
	// Trip the breaker via Get, then confirm Fingerprint still works.
	fs.getErr = errors.New("boom")
	_, _ = f.Get("x")
	require.Equal(t, breaker.Open, br.State())

	assert.Equal(t, "fp-hello", f.Fingerprint("hello"))
}
