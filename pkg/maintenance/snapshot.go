package maintenance

import (
	"github.com/fact-run/fact/pkg/rcache"
	"github.com/fact-run/fact/pkg/sqltool"
	"github.com/fact-run/fact/pkg/tools"
)

// BuildSnapshot assembles the cross-component metrics endpoint described
// by spec §4.7 ("aggregated counters from C1, C2, C4 ..., C5 ..., and
// C6").
func BuildSnapshot(cacheFacade *rcache.Facade, registry *tools.Registry, pool *sqltool.Pool, counters *PipelineCounters) Snapshot {
	rc := cacheFacade.Metrics()
	return Snapshot{
		Cache:    rc.Cache,
		Circuit:  rc.Circuit,
		Tools:    registry.Stats(),
		SQLPool:  pool.Stats(),
		Pipeline: counters.Snapshot(),
	}
}
