package knncache

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
	"github.com/hupe1980/spatialknn/query"
	"github.com/hupe1980/spatialknn/relation"
)

var (
	// ErrAlreadyMaterialized is returned when materializing a materialized cache.
	ErrAlreadyMaterialized = errors.New("knn cache already materialized")

	// ErrRelationMismatch is returned when reported changes disagree with the
	// relation, e.g. inserting an id the relation does not hold.
	ErrRelationMismatch = errors.New("knn cache out of sync with relation")
)

// State is the lifecycle state of a Cache.
type State int

const (
	Uninitialized State = iota
	Materialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Materialized:
		return "Materialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options contains configuration options for the cache.
type Options struct {
	// K is the number of neighbors cached per object.
	K int

	// Logger receives materialization and maintenance events.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the cache.
var DefaultOptions = Options{
	K: 10,
}

// Cache holds one neighbor list per object.
//
// Cache is not safe for concurrent use.
type Cache[D cmp.Ordered] struct {
	rel      relation.Relation
	searcher query.Searcher[D]
	fn       distance.Func[D]
	k        int
	logger   *slog.Logger

	state     State
	lists     map[model.ObjectID]knn.List[D]
	reverse   map[model.ObjectID]*roaring64.Bitmap // object -> objects listing it
	listeners []Listener
}

// New creates an uninitialized cache over rel. searcher must answer queries
// over an index holding exactly the objects of rel, using fn.
func New[D cmp.Ordered](rel relation.Relation, searcher query.Searcher[D], fn distance.Func[D], optFns ...func(o *Options)) (*Cache[D], error) {
	opts := DefaultOptions
	for _, f := range optFns {
		f(&opts)
	}
	if opts.K < 1 {
		return nil, fmt.Errorf("%w: %d", query.ErrInvalidK, opts.K)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache[D]{
		rel:      rel,
		searcher: searcher,
		fn:       fn,
		k:        opts.K,
		logger:   logger,
		lists:    make(map[model.ObjectID]knn.List[D]),
		reverse:  make(map[model.ObjectID]*roaring64.Bitmap),
	}, nil
}

// K returns the number of neighbors per object.
func (c *Cache[D]) K() int { return c.k }

// State returns the lifecycle state.
func (c *Cache[D]) State() State { return c.state }

// Len returns the number of cached lists.
func (c *Cache[D]) Len() int { return len(c.lists) }

// Materialize computes the lists of all objects in the relation.
func (c *Cache[D]) Materialize() error {
	if c.state == Materialized {
		return ErrAlreadyMaterialized
	}
	ids, err := relation.IDs(c.rel)
	if err != nil {
		return err
	}
	if err := c.compute(ids); err != nil {
		return err
	}
	c.state = Materialized
	c.logger.Debug("knn cache materialized", "objects", len(ids), "k", c.k)
	return nil
}

// Get returns the neighbors of id, materializing the cache on first use.
func (c *Cache[D]) Get(id model.ObjectID) (knn.List[D], error) {
	if c.state == Uninitialized {
		if err := c.Materialize(); err != nil {
			return knn.List[D]{}, err
		}
	}
	l, ok := c.lists[id]
	if !ok {
		return knn.List[D]{}, fmt.Errorf("knn cache: %w: %d", relation.ErrNotFound, id)
	}
	return l, nil
}

// Insert updates the cache for objects newly added to the relation and index.
// It returns the previously cached objects whose lists changed. On an
// uninitialized cache it does nothing and returns an empty set.
func (c *Cache[D]) Insert(ids []model.ObjectID) (*roaring64.Bitmap, error) {
	touched := roaring64.New()
	if c.state == Uninitialized || len(ids) == 0 {
		return touched, nil
	}

	added := roaring64.New()
	vecs := make([]model.Vector, len(ids))
	for i, id := range ids {
		if _, ok := c.lists[id]; ok || added.Contains(uint64(id)) {
			return touched, fmt.Errorf("%w: %d is already cached", ErrRelationMismatch, id)
		}
		v, err := c.rel.Get(id)
		if err != nil {
			return touched, fmt.Errorf("%w: %w", ErrRelationMismatch, err)
		}
		added.Add(uint64(id))
		vecs[i] = v
	}

	// A new object can only shrink an existing k-th distance, so the new
	// candidates within it plus the old list hold the complete new list.
	merged := make(map[model.ObjectID]knn.List[D])
	err := c.rel.Scan(func(id model.ObjectID, v model.Vector) error {
		if added.Contains(uint64(id)) {
			return nil
		}
		old, ok := c.lists[id]
		if !ok {
			return fmt.Errorf("%w: %d is not cached", ErrRelationMismatch, id)
		}
		cutoff := old.KNNDistance()

		var heap *knn.Heap[D]
		for i, nv := range vecs {
			d := c.fn.Distance(v, nv)
			if d > cutoff {
				continue
			}
			if heap == nil {
				heap = knn.NewHeap(c.k, c.fn.Infinity())
				for oid, od := range old.All() {
					heap.Insert(od, oid)
				}
			}
			heap.Insert(d, ids[i])
		}
		if heap != nil {
			merged[id] = heap.ToList()
		}
		return nil
	})
	if err != nil {
		return touched, err
	}

	if err := c.compute(ids); err != nil {
		return touched, err
	}
	for id, l := range merged {
		c.setList(id, l)
		touched.Add(uint64(id))
	}

	c.notify(ChangeEvent{Kind: Inserted, Objects: ids, Updated: touched})
	c.logger.Debug("knn cache insert", "objects", len(ids), "touched", touched.GetCardinality())
	return touched, nil
}

// Delete updates the cache for objects removed from the relation and index.
// It returns the remaining objects whose lists were recomputed. On an
// uninitialized cache it does nothing and returns an empty set.
func (c *Cache[D]) Delete(ids []model.ObjectID) (*roaring64.Bitmap, error) {
	affected := roaring64.New()
	if c.state == Uninitialized || len(ids) == 0 {
		return affected, nil
	}

	removed := roaring64.New()
	for _, id := range ids {
		if _, ok := c.lists[id]; !ok {
			return affected, fmt.Errorf("%w: %d is not cached", ErrRelationMismatch, id)
		}
		removed.Add(uint64(id))
	}

	for _, id := range ids {
		if rev, ok := c.reverse[id]; ok {
			affected.Or(rev)
		}
	}
	affected.AndNot(removed)

	for _, id := range ids {
		c.dropList(id)
		delete(c.reverse, id)
	}

	// Removal can only grow a neighborhood; the lists are rebuilt from scratch.
	recompute := make([]model.ObjectID, 0, affected.GetCardinality())
	it := affected.Iterator()
	for it.HasNext() {
		recompute = append(recompute, model.ObjectID(it.Next()))
	}
	if err := c.compute(recompute); err != nil {
		return affected, err
	}

	c.notify(ChangeEvent{Kind: Deleted, Objects: ids, Updated: affected})
	c.logger.Debug("knn cache delete", "objects", len(ids), "recomputed", len(recompute))
	return affected, nil
}

// compute replaces the lists of ids with fresh query results.
func (c *Cache[D]) compute(ids []model.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	vecs, err := relation.Vectors(c.rel, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRelationMismatch, err)
	}
	lists, _, err := c.searcher.BatchKNN(vecs, c.k)
	if err != nil {
		return err
	}
	for i, id := range ids {
		c.setList(id, lists[i])
	}
	return nil
}

func (c *Cache[D]) setList(id model.ObjectID, l knn.List[D]) {
	c.dropList(id)
	for _, n := range l.AsIDs() {
		rev, ok := c.reverse[n]
		if !ok {
			rev = roaring64.New()
			c.reverse[n] = rev
		}
		rev.Add(uint64(id))
	}
	c.lists[id] = l
}

func (c *Cache[D]) dropList(id model.ObjectID) {
	old, ok := c.lists[id]
	if !ok {
		return
	}
	for _, n := range old.AsIDs() {
		if rev, ok := c.reverse[n]; ok {
			rev.Remove(uint64(id))
			if rev.IsEmpty() {
				delete(c.reverse, n)
			}
		}
	}
	delete(c.lists, id)
}
