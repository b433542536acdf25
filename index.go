package spatialknn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/knncache"
	"github.com/hupe1980/spatialknn/model"
	"github.com/hupe1980/spatialknn/pagestore"
	"github.com/hupe1980/spatialknn/query"
	"github.com/hupe1980/spatialknn/relation"
)

// Index keeps a relation, an R-tree over its vectors and an optional KNN cache
// in sync.
//
// Mutations take an exclusive lock; queries run concurrently with each other.
type Index struct {
	mu sync.RWMutex

	rel      relation.Mutable
	tree     *rtree.Tree[*rtree.SpatialEntry]
	pages    *pagestore.Store[*rtree.SpatialEntry]
	fn       distance.Func[float64]
	searcher query.Searcher[float64]
	cache    *knncache.Cache[float64]

	queryWorkers   int
	queryChunkSize int
	metrics        MetricsCollector
	logger         *Logger
	closed         bool
}

// Stats describes the current shape of an Index.
type Stats struct {
	Objects     int
	Tree        rtree.Stats
	CacheState  knncache.State
	CachedLists int
	// PageIO is only populated for indexes created WithPageStore.
	PageIO pagestore.IOStats
}

// New creates an index for vectors of dimension dim (0 infers it from the first
// insert).
//
// When the relation already holds objects, the tree is bulk loaded from it.
// With WithPageStore, a tree previously written by Flush is reopened instead and
// must hold exactly the relation's objects.
func New(ctx context.Context, dim int, opts ...Option) (*Index, error) {
	o := options{
		fn:               distance.Euclidean{},
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.relation == nil {
		o.relation = relation.NewMemory(dim)
	}
	if rd := o.relation.Dimension(); dim != 0 && rd != 0 && rd != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: rd}
	}
	if dim == 0 {
		dim = o.relation.Dimension()
	}

	treeOpts := append([]func(*rtree.Options){func(to *rtree.Options) {
		to.Dimension = dim
		to.Logger = o.logger.Logger
	}}, o.treeOptions...)

	idx := &Index{
		rel:            o.relation,
		fn:             o.fn,
		queryWorkers:   o.queryWorkers,
		queryChunkSize: o.queryChunkSize,
		metrics:        o.metricsCollector,
		logger:         o.logger,
	}

	reopened := false
	if o.blobs != nil {
		pageOpts := append([]func(*pagestore.Options){func(po *pagestore.Options) {
			po.Logger = o.logger.Logger
		}}, o.pageOptions...)

		pages, meta, err := pagestore.Open[*rtree.SpatialEntry](ctx, o.blobs, pageOpts...)
		switch {
		case err == nil:
			tree, err := rtree.Open[*rtree.SpatialEntry](rtree.SpatialKind{}, pages, meta, treeOpts...)
			if err != nil {
				_ = pages.Close()
				return nil, translateError(err)
			}
			idx.pages, idx.tree = pages, tree
			reopened = true
		case errors.Is(err, pagestore.ErrNoMeta):
			pages, err := pagestore.New[*rtree.SpatialEntry](o.blobs, pageOpts...)
			if err != nil {
				return nil, err
			}
			idx.pages = pages
		default:
			return nil, err
		}
	}

	if idx.tree == nil {
		var store rtree.PageStore[*rtree.SpatialEntry]
		if idx.pages != nil {
			store = idx.pages
		}
		tree, err := rtree.New[*rtree.SpatialEntry](rtree.SpatialKind{}, store, treeOpts...)
		if err != nil {
			idx.closePages()
			return nil, translateError(err)
		}
		idx.tree = tree
	}

	n, err := idx.rel.Len()
	if err != nil {
		idx.closePages()
		return nil, err
	}
	switch {
	case reopened && n != idx.tree.Len():
		idx.closePages()
		return nil, fmt.Errorf("%w: relation holds %d objects, tree %d", ErrCorrupt, n, idx.tree.Len())
	case !reopened && n > 0:
		if err := idx.loadRelation(ctx); err != nil {
			idx.closePages()
			return nil, err
		}
	}

	idx.searcher = query.NewSearcher[*rtree.SpatialEntry, float64](idx.tree, idx.rel, idx.fn)

	if o.cacheK != 0 {
		cache, err := knncache.New(idx.rel, idx.searcher, idx.fn, func(co *knncache.Options) {
			co.K = o.cacheK
			co.Logger = o.logger.Logger
		})
		if err != nil {
			idx.closePages()
			return nil, translateError(err)
		}
		idx.cache = cache
	}

	return idx, nil
}

func (idx *Index) loadRelation(ctx context.Context) error {
	var (
		ids  []model.ObjectID
		vecs []model.Vector
	)
	err := idx.rel.Scan(func(id model.ObjectID, v model.Vector) error {
		ids = append(ids, id)
		vecs = append(vecs, v)
		return nil
	})
	if err == nil {
		err = idx.tree.BulkLoad(ids, vecs)
	}
	idx.logger.LogBulkLoad(ctx, len(ids), true, err)
	return translateError(err)
}

func (idx *Index) closePages() {
	if idx.pages != nil {
		_ = idx.pages.Close()
	}
}

func (idx *Index) dimension() int {
	if d := idx.tree.Dimension(); d != 0 {
		return d
	}
	return idx.rel.Dimension()
}

func (idx *Index) checkDim(v model.Vector) error {
	dim := idx.dimension()
	if len(v) == 0 {
		return &ErrDimensionMismatch{Expected: max(dim, 1), Actual: 0}
	}
	if dim != 0 && len(v) != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
	}
	return nil
}

func (idx *Index) check(ctx context.Context) error {
	if idx.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Insert stores v under id and indexes it.
func (idx *Index) Insert(ctx context.Context, id model.ObjectID, v model.Vector) error {
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	err := idx.insert(ctx, id, v)
	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, err)
	return err
}

func (idx *Index) insert(ctx context.Context, id model.ObjectID, v model.Vector) error {
	if err := idx.check(ctx); err != nil {
		return err
	}
	if err := idx.checkDim(v); err != nil {
		return err
	}
	if err := idx.rel.Insert(id, v); err != nil {
		return translateError(err)
	}
	if err := idx.tree.Insert(id, v); err != nil {
		_, _ = idx.rel.Delete(id)
		return translateError(err)
	}
	return idx.updateCache(ctx, "insert", []model.ObjectID{id}, idx.cache.Insert)
}

// InsertBatch stores and indexes a batch of objects. An empty tree is bulk
// loaded; otherwise the objects are inserted one by one. On failure nothing of
// the batch remains stored.
func (idx *Index) InsertBatch(ctx context.Context, ids []model.ObjectID, vecs []model.Vector) error {
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	bulk, err := idx.insertBatch(ctx, ids, vecs)
	idx.metrics.RecordBulkLoad(len(ids), time.Since(start), err)
	idx.logger.LogBulkLoad(ctx, len(ids), bulk, err)
	return err
}

func (idx *Index) insertBatch(ctx context.Context, ids []model.ObjectID, vecs []model.Vector) (bool, error) {
	if err := idx.check(ctx); err != nil {
		return false, err
	}
	if len(ids) != len(vecs) {
		return false, fmt.Errorf("%w: %d ids for %d vectors", ErrInvalidOperation, len(ids), len(vecs))
	}
	if len(ids) == 0 {
		return false, nil
	}

	dim := idx.dimension()
	for _, v := range vecs {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return false, &ErrDimensionMismatch{Expected: max(dim, 1), Actual: len(v)}
		}
	}

	for i, id := range ids {
		if err := idx.rel.Insert(id, vecs[i]); err != nil {
			idx.rollbackRelation(ids[:i])
			return false, translateError(err)
		}
	}

	bulk := idx.tree.Len() == 0
	if bulk {
		if err := idx.tree.BulkLoad(ids, vecs); err != nil {
			idx.rollbackRelation(ids)
			return bulk, translateError(err)
		}
	} else {
		for i, id := range ids {
			if err := idx.tree.Insert(id, vecs[i]); err != nil {
				for j := range i {
					_ = idx.tree.Delete(ids[j], vecs[j])
				}
				idx.rollbackRelation(ids)
				return bulk, translateError(err)
			}
		}
	}
	return bulk, idx.updateCache(ctx, "insert", ids, idx.cache.Insert)
}

func (idx *Index) rollbackRelation(ids []model.ObjectID) {
	for _, id := range ids {
		_, _ = idx.rel.Delete(id)
	}
}

// Delete removes id from the tree, the relation and the KNN cache.
func (idx *Index) Delete(ctx context.Context, id model.ObjectID) error {
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	err := idx.delete(ctx, id)
	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(ctx, id, err)
	return err
}

func (idx *Index) delete(ctx context.Context, id model.ObjectID) error {
	if err := idx.check(ctx); err != nil {
		return err
	}
	v, err := idx.rel.Get(id)
	if err != nil {
		return translateError(err)
	}
	v = v.Clone()
	if err := idx.tree.Delete(id, v); err != nil {
		return translateError(err)
	}
	if _, err := idx.rel.Delete(id); err != nil {
		_ = idx.tree.Insert(id, v)
		return translateError(err)
	}
	return idx.updateCache(ctx, "delete", []model.ObjectID{id}, idx.cache.Delete)
}

func (idx *Index) updateCache(ctx context.Context, op string, ids []model.ObjectID, update func([]model.ObjectID) (*roaring64.Bitmap, error)) error {
	if idx.cache == nil || idx.cache.State() == knncache.Uninitialized {
		return nil
	}
	start := time.Now()
	changed, err := update(ids)
	n := int(changed.GetCardinality())
	idx.metrics.RecordCacheUpdate(op, n, time.Since(start))
	idx.logger.LogCacheUpdate(ctx, op, len(ids), n, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

// Get returns a copy of the vector stored under id.
func (idx *Index) Get(ctx context.Context, id model.ObjectID) (model.Vector, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.check(ctx); err != nil {
		return nil, err
	}
	v, err := idx.rel.Get(id)
	if err != nil {
		return nil, translateError(err)
	}
	return v.Clone(), nil
}

// KNN returns the k nearest neighbors of q together with every object tied
// with the k-th distance.
func (idx *Index) KNN(ctx context.Context, q model.Vector, k int) (knn.List[float64], error) {
	start := time.Now()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list, stats, err := idx.knn(ctx, q, k)
	idx.metrics.RecordKNN(k, stats, time.Since(start), err)
	idx.logger.LogSearch(ctx, "knn", list.Len(), err)
	return list, err
}

func (idx *Index) knn(ctx context.Context, q model.Vector, k int) (knn.List[float64], query.Stats, error) {
	if err := idx.check(ctx); err != nil {
		return knn.List[float64]{}, query.Stats{}, err
	}
	if err := idx.checkDim(q); err != nil {
		return knn.List[float64]{}, query.Stats{}, err
	}
	list, stats, err := idx.searcher.KNN(q, k)
	return list, stats, translateError(err)
}

// Range returns every object within eps of q, ascending by distance.
func (idx *Index) Range(ctx context.Context, q model.Vector, eps float64) (knn.List[float64], error) {
	start := time.Now()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list, stats, err := idx.rangeQuery(ctx, q, eps)
	idx.metrics.RecordRange(stats, time.Since(start), err)
	idx.logger.LogSearch(ctx, "range", list.Len(), err)
	return list, err
}

func (idx *Index) rangeQuery(ctx context.Context, q model.Vector, eps float64) (knn.List[float64], query.Stats, error) {
	if err := idx.check(ctx); err != nil {
		return knn.List[float64]{}, query.Stats{}, err
	}
	if err := idx.checkDim(q); err != nil {
		return knn.List[float64]{}, query.Stats{}, err
	}
	list, stats, err := idx.searcher.Range(q, eps)
	return list, stats, translateError(err)
}

// BatchKNN answers KNN for every query point. It shares tree traversals between
// queries and, WithQueryWorkers, fans out across goroutines.
func (idx *Index) BatchKNN(ctx context.Context, qs []model.Vector, k int) ([]knn.List[float64], error) {
	start := time.Now()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	lists, stats, err := idx.batchKNN(ctx, qs, k)
	idx.metrics.RecordKNN(k, stats, time.Since(start), err)
	idx.logger.LogSearch(ctx, "batch_knn", len(lists), err)
	return lists, err
}

func (idx *Index) batchKNN(ctx context.Context, qs []model.Vector, k int) ([]knn.List[float64], query.Stats, error) {
	if err := idx.check(ctx); err != nil {
		return nil, query.Stats{}, err
	}
	for _, q := range qs {
		if err := idx.checkDim(q); err != nil {
			return nil, query.Stats{}, err
		}
	}

	var (
		lists []knn.List[float64]
		stats query.Stats
		err   error
	)
	if idx.queryWorkers > 1 {
		lists, stats, err = query.ParallelBatchKNN(ctx, idx.searcher, qs, k, idx.queryChunkSize, idx.queryWorkers)
	} else {
		lists, stats, err = idx.searcher.BatchKNN(qs, k)
	}
	return lists, stats, translateError(err)
}

// Neighbors returns the cached neighbor list of a stored object. The first call
// materializes the cache.
func (idx *Index) Neighbors(ctx context.Context, id model.ObjectID) (knn.List[float64], error) {
	// Lazy materialization mutates the cache.
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.check(ctx); err != nil {
		return knn.List[float64]{}, err
	}
	if idx.cache == nil {
		return knn.List[float64]{}, fmt.Errorf("%w: knn cache disabled", ErrInvalidOperation)
	}
	list, err := idx.cache.Get(id)
	return list, translateError(err)
}

// OnNeighborsChanged registers l for KNN cache change events.
func (idx *Index) OnNeighborsChanged(l knncache.Listener) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cache == nil {
		return fmt.Errorf("%w: knn cache disabled", ErrInvalidOperation)
	}
	idx.cache.AddListener(l)
	return nil
}

// Len returns the number of stored objects.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// Dimension returns the vector dimension, or 0 while unknown.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension()
}

// Validate checks the tree invariants and that the tree and relation agree.
func (idx *Index) Validate() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.tree.Validate(); err != nil {
		return translateError(err)
	}
	n, err := idx.rel.Len()
	if err != nil {
		return err
	}
	if n != idx.tree.Len() {
		return fmt.Errorf("%w: relation holds %d objects, tree %d", ErrCorrupt, n, idx.tree.Len())
	}
	return nil
}

// Stats returns tree, cache and page store statistics.
func (idx *Index) Stats() (Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ts, err := idx.tree.Stats()
	if err != nil {
		return Stats{}, translateError(err)
	}
	s := Stats{
		Objects: idx.tree.Len(),
		Tree:    ts,
	}
	if idx.cache != nil {
		s.CacheState = idx.cache.State()
		s.CachedLists = idx.cache.Len()
	}
	if idx.pages != nil {
		s.PageIO = idx.pages.IOStats()
	}
	return s, nil
}

// Flush persists dirty tree pages. It is a no-op for in-memory indexes.
func (idx *Index) Flush(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.check(ctx); err != nil {
		return err
	}
	return idx.flush(ctx)
}

func (idx *Index) flush(ctx context.Context) error {
	if idx.pages == nil {
		return nil
	}
	dirty := idx.pages.Dirty()
	err := idx.pages.Flush(ctx, idx.tree.Meta())
	idx.logger.LogFlush(ctx, dirty, err)
	return err
}

// Close flushes the page store and releases it. The relation is owned by the
// caller and stays open.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	if idx.pages == nil {
		return nil
	}
	return errors.Join(idx.flush(context.Background()), idx.pages.Close())
}
