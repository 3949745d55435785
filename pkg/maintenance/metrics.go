package maintenance

import (
	"sync"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/cache"
	"github.com/fact-run/fact/pkg/sqltool"
	"github.com/fact-run/fact/pkg/tools"
)

// PipelineCounters tracks the C6 counters named in spec §4.7: "queries
// processed, cache_status distribution, mean latency, p95 latency".
type PipelineCounters struct {
	mu        sync.Mutex
	processed int64
	byStatus  map[string]int64
	reservoir *Reservoir
}

// NewPipelineCounters builds an empty counter set.
func NewPipelineCounters() *PipelineCounters {
	return &PipelineCounters{byStatus: make(map[string]int64), reservoir: NewReservoir()}
}

// Record accounts for one completed pipeline run.
func (c *PipelineCounters) Record(cacheStatus string, latencyMS float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
	c.byStatus[cacheStatus]++
	c.reservoir.Add(latencyMS)
}

// PipelineSnapshot is a point-in-time view of PipelineCounters.
type PipelineSnapshot struct {
	QueriesProcessed  int64
	CacheStatusCounts map[string]int64
	MeanLatencyMS     float64
	P95LatencyMS      float64
}

// Snapshot returns a consistent copy of the current counters (spec §5:
// "snapshots are point-in-time consistent under the owning component's
// lock").
func (c *PipelineCounters) Snapshot() PipelineSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int64, len(c.byStatus))
	for k, v := range c.byStatus {
		counts[k] = v
	}
	return PipelineSnapshot{
		QueriesProcessed:  c.processed,
		CacheStatusCounts: counts,
		MeanLatencyMS:     c.reservoir.Mean(),
		P95LatencyMS:      c.reservoir.P95(),
	}
}

// Snapshot aggregates counters across C1, C2, C4, C5, C6 into the single
// metrics endpoint described by spec §4.7.
type Snapshot struct {
	Cache    cache.Metrics
	Circuit  breaker.Metrics
	Tools    map[string]tools.ToolStats
	SQLPool  sqltool.Stats
	Pipeline PipelineSnapshot
}
