package featcache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// storeCounters are the monotonic counters behind Stats. They are exported
// to Prometheus through function collectors so a store without a registerer
// pays nothing beyond the atomic adds.
type storeCounters struct {
	inserts           atomic.Uint64
	deletes           atomic.Uint64
	queries           atomic.Uint64
	teardowns         atomic.Uint64
	recomputeFailures atomic.Uint64
}

// registerMetrics exports the store counters to reg. A collector that cannot
// be registered, such as a second store on the same registerer, is logged
// and skipped.
func registerMetrics(reg prometheus.Registerer, s *Store) {
	if reg == nil {
		return
	}
	register := func(c prometheus.Collector, name string) {
		if err := reg.Register(c); err != nil {
			s.logger.Warn("featcache: metric not registered", "metric", name, "err", err)
		}
	}
	counter := func(name, help string, fn func() float64) {
		register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "featcache",
			Name:      name,
			Help:      help,
		}, fn), name)
	}
	gauge := func(name, help string, fn func() float64) {
		register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "featcache",
			Name:      name,
			Help:      help,
		}, fn), name)
	}
	load := func(v *atomic.Uint64) func() float64 {
		return func() float64 { return float64(v.Load()) }
	}

	counter("inserts_total", "Display objects inserted into the store.", load(&s.counters.inserts))
	counter("deletes_total", "Display objects deleted from the store.", load(&s.counters.deletes))
	counter("queries_total", "Queries started against the store.", load(&s.counters.queries))
	counter("teardowns_total", "Records whose observation was torn down.", load(&s.counters.teardowns))
	counter("recompute_failures_total", "Feature recomputations that failed and kept stale features.", load(&s.counters.recomputeFailures))
	counter("dispatches_total", "Content changed signals sent to the renderer.", func() float64 {
		return float64(s.machine.Dispatches())
	})

	gauge("live_records", "Records currently visible to queries.", func() float64 {
		return float64(s.records.Size())
	})
	gauge("reserved_ids", "Feature identifiers currently reserved.", func() float64 {
		return float64(s.ids.len())
	})
	gauge("executing_queries", "Queries currently holding an open cursor.", func() float64 {
		_, n := s.machine.Load()
		return float64(n)
	})
}
