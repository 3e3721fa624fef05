// Package cachemetrics exposes Prometheus collectors for the cache
// coordinator and pruning engine, grounded on
// scttfrdmn-objectfs/internal/metrics/collector.go's use of
// github.com/prometheus/client_golang.
package cachemetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every metric the cache emits. A nil *Collector is
// valid everywhere it's used: every method is a no-op on a nil receiver,
// so wiring metrics is opt-in.
type Collector struct {
	registry *prometheus.Registry

	hits        prometheus.Counter
	misses      prometheus.Counter
	computes    *prometheus.CounterVec // label "outcome": success|producer_failed
	evictions   *prometheus.CounterVec // label "reason": space|threshold
	repairs     prometheus.Counter
	orphans     prometheus.Counter
	residentB   prometheus.Gauge
	computeTime prometheus.Histogram
	utilityHist prometheus.Histogram
}

// NewCollector builds and registers a fresh set of collectors under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "hits_total", Help: "Resident get_object calls served without recompute.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "misses_total", Help: "get_object calls that required a compute.",
		}),
		computes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "computes_total", Help: "Producer compute invocations by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total", Help: "Items evicted during prune, by reason.",
		}, []string{"reason"}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "repairs_total", Help: "Resident items repaired to non-resident during prune.",
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orphans_total", Help: "Blobs deleted during prune's orphan sweep.",
		}),
		residentB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "resident_bytes", Help: "Total bytes resident across all items.",
		}),
		computeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "compute_seconds", Help: "Wall-clock duration of producer computes.",
			Buckets: prometheus.DefBuckets,
		}),
		utilityHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "utility", Help: "Distribution of computed utility scores during prune.",
			Buckets: []float64{-10, -1, -0.1, 0, 0.1, 1, 10},
		}),
	}
	reg.MustRegister(c.hits, c.misses, c.computes, c.evictions, c.repairs, c.orphans, c.residentB, c.computeTime, c.utilityHist)
	return c
}

// Registry exposes the underlying Prometheus registry for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Hit() {
	if c == nil {
		return
	}
	c.hits.Inc()
}

func (c *Collector) Miss() {
	if c == nil {
		return
	}
	c.misses.Inc()
}

func (c *Collector) Compute(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.computes.WithLabelValues(outcome).Inc()
	c.computeTime.Observe(d.Seconds())
}

func (c *Collector) Eviction(reason string) {
	if c == nil {
		return
	}
	c.evictions.WithLabelValues(reason).Inc()
}

func (c *Collector) Repair() {
	if c == nil {
		return
	}
	c.repairs.Inc()
}

func (c *Collector) Orphan() {
	if c == nil {
		return
	}
	c.orphans.Inc()
}

func (c *Collector) SetResidentBytes(n uint64) {
	if c == nil {
		return
	}
	c.residentB.Set(float64(n))
}

func (c *Collector) ObserveUtility(u float64) {
	if c == nil {
		return
	}
	c.utilityHist.Observe(u)
}
