package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fact-run/fact/pkg/cache"
	"github.com/fact-run/fact/pkg/sqltool"
)

// SchedulerConfig bounds the background maintenance worker (spec §4.7,
// §6.5).
type SchedulerConfig struct {
	SweepInterval time.Duration
	DrainTimeout  time.Duration
}

// DefaultSchedulerConfig matches the spec's 300s sweep and 10s drain
// defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{SweepInterval: 300 * time.Second, DrainTimeout: 10 * time.Second}
}

// Scheduler owns the single background worker that runs the expiry
// sweep and (optionally) the breaker health probe (spec §4.7: "scheduled
// on a single background worker").
type Scheduler struct {
	cfg   SchedulerConfig
	store *cache.Store
	pool  *sqltool.Pool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewScheduler builds a Scheduler over the cache store and SQL pool it
// owns lifecycle responsibility for.
func NewScheduler(cfg SchedulerConfig, store *cache.Store, pool *sqltool.Pool) *Scheduler {
	return &Scheduler{cfg: cfg, store: store, pool: pool, stopCh: make(chan struct{})}
}

// Start spawns the background sweep loop. Safe to call once; subsequent
// calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	if s.started {
		slog.Warn("maintenance: scheduler already started, ignoring duplicate Start call")
		return
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSweepLoop(ctx)
	}()
}

func (s *Scheduler) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			n := s.store.SweepExpired()
			if n > 0 {
				slog.Info("maintenance: expiry sweep removed entries", "count", n)
			}
		}
	}
}

// Shutdown cancels the background worker, waits up to DrainTimeout for it
// to finish, then closes the SQL pool (spec §4.7: "shutdown() cancels
// background tasks, drains in-flight requests up to a configurable drain
// timeout ... closes the SQL pool").
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.DrainTimeout):
		slog.Warn("maintenance: drain timeout exceeded, proceeding with shutdown")
	}

	if s.pool != nil {
		s.pool.CloseAll()
	}
}
