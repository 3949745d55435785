package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fact-run/fact/pkg/cache"
)

func TestScheduler_SweepRemovesExpiredEntries(t *testing.T) {
	store := cache.New(cache.Config{
		MinTokensThreshold: 1,
		TTL:                10 * time.Millisecond,
		MaxBytes:           1 << 20,
		TargetFillRatio:    0.8,
		PrefixTag:          "t",
		TokenEstimator:     cache.EstimateTokens,
	})
	_, err := store.Store("fp1", []byte("content"))
	require.NoError(t, err)

	cfg := DefaultSchedulerConfig()
	cfg.SweepInterval = 20 * time.Millisecond
	cfg.DrainTimeout = 200 * time.Millisecond
	sched := NewScheduler(cfg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	sched.Shutdown()

	_, err = store.Get("fp1")
	assert.Error(t, err)
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	store := cache.New(cache.Config{
		MinTokensThreshold: 1, TTL: time.Hour, MaxBytes: 1 << 20, TargetFillRatio: 0.8,
		PrefixTag: "t", TokenEstimator: cache.EstimateTokens,
	})
	sched := NewScheduler(DefaultSchedulerConfig(), store, nil)
	ctx := context.Background()
	sched.Start(ctx)
	sched.Start(ctx) // must not panic or double-spawn
	sched.Shutdown()
}
