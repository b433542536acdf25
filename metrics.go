package spatialknn

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/spatialknn/query"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// metrics/prometheus provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each single insert.
	RecordInsert(duration time.Duration, err error)

	// RecordBulkLoad is called after each batch insert. count is the number of
	// objects in the batch.
	RecordBulkLoad(count int, duration time.Duration, err error)

	// RecordDelete is called after each delete.
	RecordDelete(duration time.Duration, err error)

	// RecordKNN is called after each KNN query, and once per batch query with
	// the summed stats.
	RecordKNN(k int, stats query.Stats, duration time.Duration, err error)

	// RecordRange is called after each range query.
	RecordRange(stats query.Stats, duration time.Duration, err error)

	// RecordCacheUpdate is called after KNN cache maintenance. updated is the
	// number of other objects whose lists changed.
	RecordCacheUpdate(op string, updated int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                {}
func (NoopMetricsCollector) RecordBulkLoad(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)                {}
func (NoopMetricsCollector) RecordKNN(int, query.Stats, time.Duration, error) {}
func (NoopMetricsCollector) RecordRange(query.Stats, time.Duration, error)    {}
func (NoopMetricsCollector) RecordCacheUpdate(string, int, time.Duration)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount          atomic.Int64
	InsertErrors         atomic.Int64
	BulkLoadCount        atomic.Int64
	BulkLoadItems        atomic.Int64
	BulkLoadErrors       atomic.Int64
	DeleteCount          atomic.Int64
	DeleteErrors         atomic.Int64
	KNNCount             atomic.Int64
	KNNErrors            atomic.Int64
	KNNTotalNanos        atomic.Int64
	RangeCount           atomic.Int64
	RangeErrors          atomic.Int64
	DistanceComputations atomic.Int64
	NodeVisits           atomic.Int64
	PrunedChildren       atomic.Int64
	CacheUpdates         atomic.Int64
	CacheUpdatedLists    atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBulkLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBulkLoad(count int, _ time.Duration, err error) {
	b.BulkLoadCount.Add(1)
	if err != nil {
		b.BulkLoadErrors.Add(1)
		return
	}
	b.BulkLoadItems.Add(int64(count))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordKNN implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKNN(_ int, stats query.Stats, duration time.Duration, err error) {
	b.KNNCount.Add(1)
	b.KNNTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.KNNErrors.Add(1)
	}
	b.addStats(stats)
}

// RecordRange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRange(stats query.Stats, _ time.Duration, err error) {
	b.RangeCount.Add(1)
	if err != nil {
		b.RangeErrors.Add(1)
	}
	b.addStats(stats)
}

// RecordCacheUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheUpdate(_ string, updated int, _ time.Duration) {
	b.CacheUpdates.Add(1)
	b.CacheUpdatedLists.Add(int64(updated))
}

func (b *BasicMetricsCollector) addStats(s query.Stats) {
	b.DistanceComputations.Add(s.DistanceComputations)
	b.NodeVisits.Add(s.NodeVisits)
	b.PrunedChildren.Add(s.PrunedChildren)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:          b.InsertCount.Load(),
		InsertErrors:         b.InsertErrors.Load(),
		BulkLoadCount:        b.BulkLoadCount.Load(),
		BulkLoadItems:        b.BulkLoadItems.Load(),
		BulkLoadErrors:       b.BulkLoadErrors.Load(),
		DeleteCount:          b.DeleteCount.Load(),
		DeleteErrors:         b.DeleteErrors.Load(),
		KNNCount:             b.KNNCount.Load(),
		KNNErrors:            b.KNNErrors.Load(),
		KNNAvgNanos:          b.getAvgKNNNanos(),
		RangeCount:           b.RangeCount.Load(),
		RangeErrors:          b.RangeErrors.Load(),
		DistanceComputations: b.DistanceComputations.Load(),
		NodeVisits:           b.NodeVisits.Load(),
		PrunedChildren:       b.PrunedChildren.Load(),
		CacheUpdates:         b.CacheUpdates.Load(),
		CacheUpdatedLists:    b.CacheUpdatedLists.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgKNNNanos() int64 {
	count := b.KNNCount.Load()
	if count == 0 {
		return 0
	}
	return b.KNNTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount          int64
	InsertErrors         int64
	BulkLoadCount        int64
	BulkLoadItems        int64
	BulkLoadErrors       int64
	DeleteCount          int64
	DeleteErrors         int64
	KNNCount             int64
	KNNErrors            int64
	KNNAvgNanos          int64
	RangeCount           int64
	RangeErrors          int64
	DistanceComputations int64
	NodeVisits           int64
	PrunedChildren       int64
	CacheUpdates         int64
	CacheUpdatedLists    int64
}
