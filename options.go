package spatialknn

import (
	"github.com/hupe1980/spatialknn/blobstore"
	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/pagestore"
	"github.com/hupe1980/spatialknn/relation"
)

type options struct {
	fn               distance.Func[float64]
	relation         relation.Mutable
	treeOptions      []func(*rtree.Options)
	cacheK           int
	blobs            blobstore.BlobStore
	pageOptions      []func(*pagestore.Options)
	queryWorkers     int
	queryChunkSize   int
	metricsCollector MetricsCollector
	logger           *Logger
	err              error
}

// Option configures New.
type Option func(*options)

// WithMetric selects one of the built-in distance functions.
// The default is distance.MetricEuclidean.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		fn, err := distance.Provider(m)
		if err != nil {
			o.err = err
			return
		}
		o.fn = fn
	}
}

// WithDistance configures a custom distance function. Functions that do not
// implement distance.Spatial are answered by linear scans.
func WithDistance(fn distance.Func[float64]) Option {
	return func(o *options) {
		if fn != nil {
			o.fn = fn
		}
	}
}

// WithRelation stores objects in rel instead of an in-memory relation.
// Pair a persistent relation such as relation.SQLite with WithPageStore to make
// the whole index durable.
func WithRelation(rel relation.Mutable) Option {
	return func(o *options) {
		o.relation = rel
	}
}

// WithTreeOptions configures node capacities and fill of the R-tree.
func WithTreeOptions(optFns ...func(*rtree.Options)) Option {
	return func(o *options) {
		o.treeOptions = append(o.treeOptions, optFns...)
	}
}

// WithKNNCache enables the incremental KNN cache with k neighbors per object.
// The cache is materialized on the first Neighbors call and kept up to date
// by Insert and Delete afterwards.
func WithKNNCache(k int) Option {
	return func(o *options) {
		o.cacheK = k
	}
}

// WithPageStore keeps tree pages in blobs instead of memory.
// New reopens the tree when blobs already hold one.
func WithPageStore(blobs blobstore.BlobStore, optFns ...func(*pagestore.Options)) Option {
	return func(o *options) {
		o.blobs = blobs
		o.pageOptions = append(o.pageOptions, optFns...)
	}
}

// WithQueryWorkers spreads BatchKNN across workers goroutines, chunkSize
// queries at a time. workers <= 1 disables fan-out.
func WithQueryWorkers(workers, chunkSize int) Option {
	return func(o *options) {
		o.queryWorkers = workers
		o.queryChunkSize = chunkSize
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example:
//
//	metrics := &spatialknn.BasicMetricsCollector{}
//	idx, _ := spatialknn.New(ctx, 2, spatialknn.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. The logger is also handed to the
// tree, the page store and the KNN cache.
//
// Example:
//
//	logger := spatialknn.NewJSONLogger(slog.LevelDebug)
//	idx, _ := spatialknn.New(ctx, 2, spatialknn.WithLogger(logger))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
