// Package breaker implements the FACT cache circuit breaker (spec §4.2,
// component C2): a CLOSED/OPEN/HALF_OPEN guard around Store operations that
// fast-fails during a fault window instead of invoking a failing collaborator.
//
// The CLOSED/OPEN/HALF_OPEN transition itself is delegated to
// github.com/sony/gobreaker, configured so its ReadyToTrip callback fires on
// consecutive failures (not a rolling failure rate, per spec's Open Question
// resolution) and its half-open trial budget equals success_threshold.
// FACT layers three things gobreaker does not provide: a bounded
// observability ring of recent failures, deterministic (non-random)
// throttled admission during HALF_OPEN, and a background health probe.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Execute when the breaker fast-failed the call —
// either because the underlying state is OPEN, or because HALF_OPEN
// recovery throttling declined to admit this particular call. Callers
// (the resilient cache facade, C3) translate this into their own
// caller-visible Degraded contract.
var ErrOpen = errors.New("circuit breaker: operation not invoked, breaker is open")

// Breaker wraps a protected operation family with the spec §4.2 state
// machine. One Breaker instance guards one logical collaborator (here, the
// cache Store).
type Breaker struct {
	cfg Config
	cb  *gobreaker.CircuitBreaker[any]

	mu            sync.Mutex
	window        []FailureRecord
	stateEnteredAt time.Time
	stateChanges  int64

	totalOps      int64
	totalFailures int64

	halfOpenCounter uint64

	probeCancel context.CancelFunc
	probeWG     sync.WaitGroup
}

// New constructs a Breaker named name (used only in logs/metrics) with cfg,
// which must already be valid (see Config.Validate).
func New(name string, cfg Config) *Breaker {
	b := &Breaker{cfg: cfg, stateEnteredAt: time.Now()}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Interval:    0, // never reset consecutive counters on a timer while closed
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			b.onStateChange(from, to)
		},
	}
	b.cb = gobreaker.NewCircuitBreaker[any](settings)
	return b
}

// Execute invokes fn if the breaker's current state admits it. opName and
// errorKind are recorded only on failure, for the observability ring; passing
// errorKind lets the caller tag e.g. "timeout" vs "store_error" without
// Execute needing to inspect the error itself (spec §4.3 failure
// classification is the caller's responsibility).
func (b *Breaker) Execute(opName string, errorKind func(error) string, fn func() error) error {
	atomic.AddInt64(&b.totalOps, 1)

	if b.currentState() == gobreaker.StateHalfOpen && !b.admitHalfOpen() {
		return ErrOpen
	}

	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}

	// A genuine failure from fn: record it in the observability window.
	kind := "other"
	if errorKind != nil {
		kind = errorKind(err)
	}
	b.recordFailure(opName, kind)
	return err
}

// currentState reports the underlying gobreaker state without side effects.
func (b *Breaker) currentState() gobreaker.State {
	return b.cb.State()
}

// admitHalfOpen applies deterministic (counter-modulo, not random) throttled
// admission per spec §4.2's recovery_factor. A rejected call is never
// attempted against gobreaker, so it does not consume one of the
// MaxRequests half-open trial slots.
func (b *Breaker) admitHalfOpen() bool {
	const denom = uint64(100)
	numer := uint64(b.cfg.RecoveryFactor * float64(denom))
	if numer == 0 {
		numer = 1
	}
	if numer >= denom {
		return true
	}
	n := atomic.AddUint64(&b.halfOpenCounter, 1)
	return (n % denom) < numer
}

func (b *Breaker) recordFailure(opName, kind string) {
	atomic.AddInt64(&b.totalFailures, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = append(b.window, FailureRecord{Timestamp: time.Now(), ErrorKind: kind, Op: opName})
	if len(b.window) > b.cfg.WindowSize {
		b.window = b.window[len(b.window)-b.cfg.WindowSize:]
	}
}

func (b *Breaker) onStateChange(from, to gobreaker.State) {
	b.mu.Lock()
	b.stateChanges++
	b.stateEnteredAt = time.Now()
	b.halfOpenCounter = 0
	b.mu.Unlock()

	slog.Info("circuit breaker state transition",
		"from", gobreakerStateName(from), "to", gobreakerStateName(to))
}

// State reports the current public state.
func (b *Breaker) State() State {
	return translateState(b.cb.State())
}

// Metrics returns a point-in-time snapshot.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := b.cb.Counts()
	recent := make([]FailureRecord, len(b.window))
	copy(recent, b.window)

	return Metrics{
		State:               translateState(b.cb.State()),
		TimeInState:         time.Since(b.stateEnteredAt),
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
		TotalOperations:     atomic.LoadInt64(&b.totalOps),
		TotalFailures:       atomic.LoadInt64(&b.totalFailures),
		StateChangesCount:   b.stateChanges,
		RecentFailures:      recent,
	}
}

// StartHealthProbe runs probe at cfg.OpenTimeout/2 intervals for as long as
// the breaker remains OPEN, following the same admission rules as any other
// call — a successful probe can advance OPEN->HALF_OPEN->CLOSED just like a
// normal caller would (spec §4.2 background health probe). Cancellable via
// the returned function or ctx; calling it twice before cancelling the first
// is a no-op.
func (b *Breaker) StartHealthProbe(ctx context.Context, probe func() error) func() {
	if b.probeCancel != nil {
		return func() {}
	}
	probeCtx, cancel := context.WithCancel(ctx)
	b.probeCancel = cancel
	b.probeWG.Add(1)

	go func() {
		defer b.probeWG.Done()
		ticker := time.NewTicker(b.cfg.OpenTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
				if b.State() != Open {
					continue
				}
				_ = b.Execute("health_probe", func(error) string { return "probe_failure" }, probe)
			}
		}
	}()

	return func() {
		cancel()
		b.probeWG.Wait()
		b.probeCancel = nil
	}
}

func translateState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return Closed
	case gobreaker.StateHalfOpen:
		return HalfOpen
	case gobreaker.StateOpen:
		return Open
	default:
		return Closed
	}
}

func gobreakerStateName(s gobreaker.State) string {
	return string(translateState(s))
}
