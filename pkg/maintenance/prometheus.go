package maintenance

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/rcache"
	"github.com/fact-run/fact/pkg/sqltool"
	"github.com/fact-run/fact/pkg/tools"
)

// Collector exposes a Snapshot as Prometheus metrics. The core does not run
// an HTTP surface itself (spec: out of scope); embedding applications
// register Collector with their own prometheus.Registerer and serve
// /metrics however they see fit.
type Collector struct {
	cache    *rcache.Facade
	registry *tools.Registry
	pool     *sqltool.Pool
	counters *PipelineCounters

	cacheHits       *prometheus.Desc
	cacheMisses     *prometheus.Desc
	cacheEvictions  *prometheus.Desc
	circuitState    *prometheus.Desc
	toolInvocations *prometheus.Desc
	toolFailures    *prometheus.Desc
	sqlPoolBusy     *prometheus.Desc
	sqlPoolFree     *prometheus.Desc
	queriesTotal    *prometheus.Desc
	latencyP95      *prometheus.Desc
	latencyMean     *prometheus.Desc
}

// NewCollector builds a Collector over the live components that back a
// Snapshot (see BuildSnapshot).
func NewCollector(cache *rcache.Facade, registry *tools.Registry, pool *sqltool.Pool, counters *PipelineCounters) *Collector {
	ns := "fact"
	return &Collector{
		cache:    cache,
		registry: registry,
		pool:     pool,
		counters: counters,

		cacheHits:       prometheus.NewDesc(ns+"_cache_hits_total", "Cache hits since start.", nil, nil),
		cacheMisses:     prometheus.NewDesc(ns+"_cache_misses_total", "Cache misses since start.", nil, nil),
		cacheEvictions:  prometheus.NewDesc(ns+"_cache_evictions_total", "Cache evictions since start.", nil, nil),
		circuitState:    prometheus.NewDesc(ns+"_circuit_state", "Circuit breaker state (0=closed,1=half_open,2=open).", nil, nil),
		toolInvocations: prometheus.NewDesc(ns+"_tool_invocations_total", "Tool invocations by tool.", []string{"tool"}, nil),
		toolFailures:    prometheus.NewDesc(ns+"_tool_failures_total", "Tool invocation failures by tool.", []string{"tool"}, nil),
		sqlPoolBusy:     prometheus.NewDesc(ns+"_sql_pool_busy", "Busy SQL pool connections.", nil, nil),
		sqlPoolFree:     prometheus.NewDesc(ns+"_sql_pool_free", "Free SQL pool connections.", nil, nil),
		queriesTotal:    prometheus.NewDesc(ns+"_pipeline_queries_total", "Pipeline queries processed.", nil, nil),
		latencyP95:      prometheus.NewDesc(ns+"_pipeline_latency_ms_p95", "Pipeline latency p95 in milliseconds.", nil, nil),
		latencyMean:     prometheus.NewDesc(ns+"_pipeline_latency_ms_mean", "Pipeline latency mean in milliseconds.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.cacheEvictions
	ch <- c.circuitState
	ch <- c.toolInvocations
	ch <- c.toolFailures
	ch <- c.sqlPoolBusy
	ch <- c.sqlPoolFree
	ch <- c.queriesTotal
	ch <- c.latencyP95
	ch <- c.latencyMean
}

// Collect implements prometheus.Collector, sampling a fresh Snapshot on
// every scrape rather than caching state between calls.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := BuildSnapshot(c.cache, c.registry, c.pool, c.counters)

	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(snap.Cache.Hits))
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(snap.Cache.Misses))
	ch <- prometheus.MustNewConstMetric(c.cacheEvictions, prometheus.CounterValue, float64(snap.Cache.Evictions))
	ch <- prometheus.MustNewConstMetric(c.circuitState, prometheus.GaugeValue, circuitStateValue(snap.Circuit.State))

	for name, stats := range snap.Tools {
		ch <- prometheus.MustNewConstMetric(c.toolInvocations, prometheus.CounterValue, float64(stats.Invocations), name)
		ch <- prometheus.MustNewConstMetric(c.toolFailures, prometheus.CounterValue, float64(stats.Failures), name)
	}

	ch <- prometheus.MustNewConstMetric(c.sqlPoolBusy, prometheus.GaugeValue, float64(snap.SQLPool.Busy))
	ch <- prometheus.MustNewConstMetric(c.sqlPoolFree, prometheus.GaugeValue, float64(snap.SQLPool.Free))

	ch <- prometheus.MustNewConstMetric(c.queriesTotal, prometheus.CounterValue, float64(snap.Pipeline.QueriesProcessed))
	ch <- prometheus.MustNewConstMetric(c.latencyP95, prometheus.GaugeValue, snap.Pipeline.P95LatencyMS)
	ch <- prometheus.MustNewConstMetric(c.latencyMean, prometheus.GaugeValue, snap.Pipeline.MeanLatencyMS)
}

func circuitStateValue(s breaker.State) float64 {
	switch s {
	case breaker.Closed:
		return 0
	case breaker.HalfOpen:
		return 1
	case breaker.Open:
		return 2
	default:
		return -1
	}
}
