// Package corefact is the composition root: it wires the cache (C1),
// circuit breaker (C2), resilient facade (C3), tool registry (C4), SQL
// executor (C5), query pipeline (C6), and maintenance scheduler (C7) into
// one Core object built once at startup from a factconfig.Config and
// handed explicitly to request handlers.
package corefact

import (
	"context"
	"fmt"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/cache"
	"github.com/fact-run/fact/pkg/factconfig"
	"github.com/fact-run/fact/pkg/llmapi"
	"github.com/fact-run/fact/pkg/maintenance"
	"github.com/fact-run/fact/pkg/pipeline"
	"github.com/fact-run/fact/pkg/rcache"
	"github.com/fact-run/fact/pkg/sqltool"
	"github.com/fact-run/fact/pkg/tools"
)

// Core owns every long-lived component and is the only object request
// handlers need a reference to.
type Core struct {
	Config factconfig.Config

	Cache     *cache.Store
	Breaker   *breaker.Breaker
	Resilient *rcache.Facade

	Tools *tools.Registry

	SQLPool     *sqltool.Pool
	SQLExecutor *sqltool.Executor
	SQLToolset  *sqltool.Toolset

	Pipeline *pipeline.Pipeline
	Counters *maintenance.PipelineCounters
	Sched    *maintenance.Scheduler
	Metrics  *maintenance.Collector
}

// Options carries the pieces that have no config-derived default: the LLM
// client, the SQL DSN/known-table set, and the system prompt fed to the
// pipeline.
type Options struct {
	LLM           llmapi.Client
	SQLDSN        string
	KnownTables   []string
	SampleQueries []sqltool.SampleQuery
	SystemPrompt  string
}

// Build wires every component from cfg and opts. The returned Core has not
// been started (see Core.Start) and is safe to inspect before that.
func Build(cfg factconfig.Config, opts Options) (*Core, error) {
	if err := factconfig.NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("corefact: invalid configuration: %w", err)
	}

	cacheStore := cache.New(cache.Config{
		MinTokensThreshold: cfg.CacheMinTokens,
		TTL:                cfg.CacheTTL(),
		MaxBytes:           cfg.CacheMaxSize,
		TargetFillRatio:    0.8,
		PrefixTag:          cfg.CachePrefix,
		TokenEstimator:     cache.EstimateTokens,
	})

	br := breaker.New("fact-cache", breaker.Config{
		FailureThreshold: cfg.CircuitFailureThreshold,
		SuccessThreshold: cfg.CircuitSuccessThreshold,
		OpenTimeout:      cfg.CircuitOpenTimeout(),
		RecoveryFactor:   cfg.CircuitRecoveryFactor,
		WindowSize:       50,
	})

	resilient := rcache.New(cacheStore, br)

	registry := tools.NewRegistry(cfg.ToolRateLimitPerMinute,
		tools.WithDefaultTimeout(cfg.ToolExecutionTimeout()))

	poolCfg := sqltool.DefaultPoolConfig(opts.SQLDSN)
	poolCfg.MaxConnections = cfg.SQLPoolMaxConnections
	sqlPool := sqltool.NewPool(poolCfg)

	knownTables := make(map[string]bool, len(opts.KnownTables))
	for _, t := range opts.KnownTables {
		knownTables[t] = true
	}
	sqlExecutor := sqltool.NewExecutor(sqlPool, sqltool.ExecutorConfig{
		QueryTimeout: cfg.SQLQueryTimeout(),
		MaxRows:      cfg.SQLMaxRows,
	}, knownTables)

	toolset := sqltool.NewToolset(sqlExecutor, sqlPool, opts.KnownTables, opts.SampleQueries)
	if err := toolset.Register(registry); err != nil {
		return nil, fmt.Errorf("corefact: registering sql toolset: %w", err)
	}

	pipelineCfg := pipeline.DefaultConfig(opts.SystemPrompt)
	pipelineCfg.MaxToolIterations = cfg.PipelineMaxToolIterations
	pipelineCfg.MaxLLMRetries = cfg.LLMMaxRetries
	pipelineCfg.RequestDeadline = cfg.PipelineRequestTimeout()

	p := pipeline.New(resilient, registry, opts.LLM, pipelineCfg)

	counters := maintenance.NewPipelineCounters()
	sched := maintenance.NewScheduler(maintenance.DefaultSchedulerConfig(), cacheStore, sqlPool)
	collector := maintenance.NewCollector(resilient, registry, sqlPool, counters)

	return &Core{
		Config:      cfg,
		Cache:       cacheStore,
		Breaker:     br,
		Resilient:   resilient,
		Tools:       registry,
		SQLPool:     sqlPool,
		SQLExecutor: sqlExecutor,
		SQLToolset:  toolset,
		Pipeline:    p,
		Counters:    counters,
		Sched:       sched,
		Metrics:     collector,
	}, nil
}

// Start begins the background maintenance loop (cache sweeps, breaker
// health probes). Call once, after Build, before serving traffic.
func (c *Core) Start(ctx context.Context) {
	c.Sched.Start(ctx)
	c.Sched.AttachHealthProbe(ctx, c.Breaker, c.probeCacheHealth)
}

// probeCacheHealth is the breaker's half-open recovery probe: a cheap,
// side-effect-free call into the same dependency the breaker guards.
func (c *Core) probeCacheHealth() error {
	_, err := c.Cache.Get("__health_probe__")
	if err != nil && err != cache.ErrMiss {
		return err
	}
	return nil
}

// Ask runs one query through the pipeline and records the outcome in the
// maintenance counters (spec §4.7: "C6 reports cache_status and latency to
// C7 on every completed run").
func (c *Core) Ask(ctx context.Context, rawQuery, userID string) *pipeline.Result {
	result := c.Pipeline.Run(ctx, rawQuery, userID)
	c.Counters.Record(string(result.CacheStatus), result.LatencyMS)
	return result
}

// Snapshot returns a point-in-time view of every component's metrics.
func (c *Core) Snapshot() maintenance.Snapshot {
	return maintenance.BuildSnapshot(c.Resilient, c.Tools, c.SQLPool, c.Counters)
}

// Shutdown drains the maintenance scheduler and closes the SQL pool.
func (c *Core) Shutdown() {
	c.Sched.Shutdown()
}
