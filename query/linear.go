package query

import (
	"cmp"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
	"github.com/hupe1980/spatialknn/relation"
)

// LinearScan answers queries by scanning a relation. It accepts any distance
// function and uses the same tie-retaining heap as TreeKNN.
type LinearScan[D cmp.Ordered] struct {
	rel relation.Relation
	fn  distance.Func[D]
}

var _ Searcher[float64] = (*LinearScan[float64])(nil)

// NewLinearScan returns a scanning engine over rel.
func NewLinearScan[D cmp.Ordered](rel relation.Relation, fn distance.Func[D]) *LinearScan[D] {
	return &LinearScan[D]{rel: rel, fn: fn}
}

func (s *LinearScan[D]) KNN(q model.Vector, k int) (knn.List[D], Stats, error) {
	lists, stats, err := s.BatchKNN([]model.Vector{q}, k)
	if err != nil {
		return knn.EmptyList(k, s.fn.Infinity()), stats, err
	}
	return lists[0], stats, nil
}

func (s *LinearScan[D]) Range(q model.Vector, eps D) (knn.List[D], Stats, error) {
	var stats Stats
	inf := s.fn.Infinity()
	if eps < s.fn.Zero() {
		return knn.EmptyList(0, inf), stats, ErrInvalidEpsilon
	}
	if err := checkDim(s.rel.Dimension(), q); err != nil {
		return knn.EmptyList(0, inf), stats, err
	}

	var out []knn.Neighbor[D]
	err := s.rel.Scan(func(id model.ObjectID, v model.Vector) error {
		stats.DistanceComputations++
		if d := s.fn.Distance(q, v); d <= eps {
			out = append(out, knn.Neighbor[D]{ID: id, Distance: d})
		}
		return nil
	})
	if err != nil {
		return knn.EmptyList(0, inf), stats, err
	}
	return knn.NewList(out, 0, inf), stats, nil
}

// BatchKNN scans the relation once, offering every object to every query.
func (s *LinearScan[D]) BatchKNN(qs []model.Vector, k int) ([]knn.List[D], Stats, error) {
	var stats Stats
	inf := s.fn.Infinity()
	if err := checkK(k); err != nil {
		return nil, stats, err
	}
	for _, q := range qs {
		if err := checkDim(s.rel.Dimension(), q); err != nil {
			return nil, stats, err
		}
	}

	heaps := make([]*knn.Heap[D], len(qs))
	for i := range heaps {
		heaps[i] = knn.NewHeap(k, inf)
	}
	err := s.rel.Scan(func(id model.ObjectID, v model.Vector) error {
		for i, q := range qs {
			stats.DistanceComputations++
			heaps[i].Insert(s.fn.Distance(q, v), id)
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	out := make([]knn.List[D], len(qs))
	for i, h := range heaps {
		out[i] = h.ToList()
	}
	return out, stats, nil
}

// NewSearcher returns the tree engine when fn can bound boxes, and a linear
// scan over rel otherwise.
func NewSearcher[E rtree.Entry, D cmp.Ordered](tree Tree[E], rel relation.Relation, fn distance.Func[D]) Searcher[D] {
	if s := NewTreeKNN(tree, fn); s != nil {
		return s
	}
	return NewLinearScan(rel, fn)
}
