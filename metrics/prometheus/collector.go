// Package prometheus exports index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, _ := spatialprom.NewCollector(reg)
//	idx, _ := spatialknn.New(ctx, 2, spatialknn.WithMetricsCollector(c))
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/spatialknn"
	"github.com/hupe1980/spatialknn/query"
)

const namespace = "spatialknn"

var _ spatialknn.MetricsCollector = (*Collector)(nil)

// Collector implements spatialknn.MetricsCollector and prometheus.Collector.
type Collector struct {
	opLatency      *prom.HistogramVec
	writes         *prom.CounterVec
	distances      prom.Counter
	nodeVisits     prom.Counter
	prunedChildren prom.Counter
	cacheUpdates   *prom.CounterVec
	cacheLists     prom.Counter
}

// NewCollector creates a Collector and registers it with reg unless reg is nil.
func NewCollector(reg prom.Registerer) (*Collector, error) {
	c := &Collector{
		opLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations.",
			Buckets:   prom.DefBuckets,
		}, []string{"op", "status"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "objects_written_total",
			Help:      "Objects inserted or deleted.",
		}, []string{"type"}),
		distances: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "distance_computations_total",
			Help:      "Point and box distance evaluations performed by queries.",
		}),
		nodeVisits: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Tree nodes read by queries.",
		}),
		prunedChildren: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_children_total",
			Help:      "Subtrees skipped by their distance bound.",
		}),
		cacheUpdates: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "knn_cache_updates_total",
			Help:      "KNN cache maintenance runs.",
		}, []string{"op"}),
		cacheLists: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "knn_cache_updated_lists_total",
			Help:      "Neighbor lists changed by cache maintenance.",
		}),
	}
	if reg != nil {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) collectors() []prom.Collector {
	return []prom.Collector{
		c.opLatency, c.writes, c.distances, c.nodeVisits,
		c.prunedChildren, c.cacheUpdates, c.cacheLists,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.opLatency.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

func (c *Collector) addStats(s query.Stats) {
	c.distances.Add(float64(s.DistanceComputations))
	c.nodeVisits.Add(float64(s.NodeVisits))
	c.prunedChildren.Add(float64(s.PrunedChildren))
}

// RecordInsert implements spatialknn.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, err)
	if err == nil {
		c.writes.WithLabelValues("insert").Inc()
	}
}

// RecordBulkLoad implements spatialknn.MetricsCollector.
func (c *Collector) RecordBulkLoad(count int, d time.Duration, err error) {
	c.observe("insert_batch", d, err)
	if err == nil {
		c.writes.WithLabelValues("insert").Add(float64(count))
	}
}

// RecordDelete implements spatialknn.MetricsCollector.
func (c *Collector) RecordDelete(d time.Duration, err error) {
	c.observe("delete", d, err)
	if err == nil {
		c.writes.WithLabelValues("delete").Inc()
	}
}

// RecordKNN implements spatialknn.MetricsCollector.
func (c *Collector) RecordKNN(_ int, stats query.Stats, d time.Duration, err error) {
	c.observe("knn", d, err)
	c.addStats(stats)
}

// RecordRange implements spatialknn.MetricsCollector.
func (c *Collector) RecordRange(stats query.Stats, d time.Duration, err error) {
	c.observe("range", d, err)
	c.addStats(stats)
}

// RecordCacheUpdate implements spatialknn.MetricsCollector.
func (c *Collector) RecordCacheUpdate(op string, updated int, _ time.Duration) {
	c.cacheUpdates.WithLabelValues(op).Inc()
	c.cacheLists.Add(float64(updated))
}
