package query

import (
	"cmp"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/internal/queue"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
)

// TreeKNN runs branch-and-bound queries over an R-tree.
//
// It is safe for concurrent use as long as the tree is not mutated.
type TreeKNN[E rtree.Entry, D cmp.Ordered] struct {
	tree Tree[E]
	fn   distance.Spatial[D]
}

var _ Searcher[float64] = (*TreeKNN[*rtree.SpatialEntry, float64])(nil)

// NewTreeKNN returns a tree engine, or nil when fn provides no box lower bound.
func NewTreeKNN[E rtree.Entry, D cmp.Ordered](tree Tree[E], fn distance.Func[D]) *TreeKNN[E, D] {
	s := distance.AsSpatial(fn)
	if s == nil {
		return nil
	}
	return &TreeKNN[E, D]{tree: tree, fn: s}
}

// KNN runs a best-first search: pages are visited in ascending order of their
// box distance to q, and the search stops once the nearest unvisited page is
// farther than the current k-th distance.
func (s *TreeKNN[E, D]) KNN(q model.Vector, k int) (knn.List[D], Stats, error) {
	var stats Stats
	inf := s.fn.Infinity()
	if err := checkK(k); err != nil {
		return knn.EmptyList(k, inf), stats, err
	}
	if s.tree.Len() == 0 {
		return knn.EmptyList(k, inf), stats, nil
	}
	if err := checkDim(s.tree.Dimension(), q); err != nil {
		return knn.EmptyList(k, inf), stats, err
	}

	root, err := s.tree.RootNode()
	if err != nil {
		return knn.EmptyList(k, inf), stats, err
	}

	heap := knn.NewHeap(k, inf)
	pq := queue.NewMin[D, model.PageID](64)
	if err := s.expand(root, q, heap, pq, &stats); err != nil {
		return knn.EmptyList(k, inf), stats, err
	}
	for {
		item, ok := pq.Pop()
		if !ok {
			break
		}
		if item.Priority > heap.KNNDistance() {
			stats.PrunedChildren += int64(pq.Len()) + 1
			break
		}
		node, err := s.tree.Node(item.Value)
		if err != nil {
			return knn.EmptyList(k, inf), stats, err
		}
		if err := s.expand(node, q, heap, pq, &stats); err != nil {
			return knn.EmptyList(k, inf), stats, err
		}
	}
	return heap.ToList(), stats, nil
}

// expand offers the points of a leaf to heap, or queues the children of a
// directory node. Children whose box contains q are descended immediately.
func (s *TreeKNN[E, D]) expand(node *rtree.Node[E], q model.Vector, heap *knn.Heap[D], pq *queue.PriorityQueue[D, model.PageID], stats *Stats) error {
	stats.NodeVisits++
	if node.Leaf {
		for _, e := range node.Entries {
			stats.DistanceComputations++
			heap.Insert(s.fn.Distance(q, e.Point()), e.ObjectID())
		}
		return nil
	}

	zero := s.fn.Zero()
	for _, e := range node.Entries {
		stats.DistanceComputations++
		bound := s.fn.MinDist(e.Bounds(), q)
		switch {
		case bound <= zero:
			child, err := s.tree.Node(e.ChildID())
			if err != nil {
				return err
			}
			if err := s.expand(child, q, heap, pq, stats); err != nil {
				return err
			}
		case bound <= heap.KNNDistance():
			pq.Push(e.ChildID(), bound)
		default:
			stats.PrunedChildren++
		}
	}
	return nil
}

// Range returns every object within eps of q.
func (s *TreeKNN[E, D]) Range(q model.Vector, eps D) (knn.List[D], Stats, error) {
	var stats Stats
	inf := s.fn.Infinity()
	if eps < s.fn.Zero() {
		return knn.EmptyList(0, inf), stats, ErrInvalidEpsilon
	}
	if s.tree.Len() == 0 {
		return knn.EmptyList(0, inf), stats, nil
	}
	if err := checkDim(s.tree.Dimension(), q); err != nil {
		return knn.EmptyList(0, inf), stats, err
	}

	root, err := s.tree.RootNode()
	if err != nil {
		return knn.EmptyList(0, inf), stats, err
	}

	var out []knn.Neighbor[D]
	stack := []model.PageID{root.ID}
	for len(stack) > 0 {
		node, err := s.tree.Node(stack[len(stack)-1])
		if err != nil {
			return knn.EmptyList(0, inf), stats, err
		}
		stack = stack[:len(stack)-1]
		stats.NodeVisits++

		for _, e := range node.Entries {
			stats.DistanceComputations++
			if node.Leaf {
				if d := s.fn.Distance(q, e.Point()); d <= eps {
					out = append(out, knn.Neighbor[D]{ID: e.ObjectID(), Distance: d})
				}
				continue
			}
			if s.fn.MinDist(e.Bounds(), q) <= eps {
				stack = append(stack, e.ChildID())
			} else {
				stats.PrunedChildren++
			}
		}
	}
	return knn.NewList(out, 0, inf), stats, nil
}

// BatchKNN answers KNN for all qs in one traversal. At every directory node the
// children are ordered once by their distance to the closest live query, and a
// child is entered only by the queries whose current k-th distance still
// admits it.
func (s *TreeKNN[E, D]) BatchKNN(qs []model.Vector, k int) ([]knn.List[D], Stats, error) {
	var stats Stats
	inf := s.fn.Infinity()
	if err := checkK(k); err != nil {
		return nil, stats, err
	}
	for _, q := range qs {
		if err := checkDim(s.tree.Dimension(), q); err != nil {
			return nil, stats, err
		}
	}

	heaps := make([]*knn.Heap[D], len(qs))
	for i := range heaps {
		heaps[i] = knn.NewHeap(k, inf)
	}

	if s.tree.Len() > 0 && len(qs) > 0 {
		root, err := s.tree.RootNode()
		if err != nil {
			return nil, stats, err
		}
		live := bitset.New(uint(len(qs)))
		for i := range qs {
			live.Set(uint(i))
		}
		if err := s.batchVisit(root, qs, heaps, live, &stats); err != nil {
			return nil, stats, err
		}
	}

	out := make([]knn.List[D], len(qs))
	for i, h := range heaps {
		out[i] = h.ToList()
	}
	return out, stats, nil
}

type batchChild[D cmp.Ordered] struct {
	index int
	bound D
}

func (s *TreeKNN[E, D]) batchVisit(node *rtree.Node[E], qs []model.Vector, heaps []*knn.Heap[D], live *bitset.BitSet, stats *Stats) error {
	stats.NodeVisits++
	if node.Leaf {
		for i, ok := live.NextSet(0); ok; i, ok = live.NextSet(i + 1) {
			for _, e := range node.Entries {
				stats.DistanceComputations++
				heaps[i].Insert(s.fn.Distance(qs[i], e.Point()), e.ObjectID())
			}
		}
		return nil
	}

	n := len(qs)
	inf := s.fn.Infinity()
	bounds := make([]D, len(node.Entries)*n)
	children := make([]batchChild[D], len(node.Entries))
	for c, e := range node.Entries {
		closest := inf
		box := e.Bounds()
		for i, ok := live.NextSet(0); ok; i, ok = live.NextSet(i + 1) {
			stats.DistanceComputations++
			b := s.fn.MinDist(box, qs[i])
			bounds[c*n+int(i)] = b
			closest = min(closest, b)
		}
		children[c] = batchChild[D]{index: c, bound: closest}
	}
	slices.SortStableFunc(children, func(a, b batchChild[D]) int {
		return cmp.Compare(a.bound, b.bound)
	})

	for _, c := range children {
		mask := bitset.New(uint(n))
		for i, ok := live.NextSet(0); ok; i, ok = live.NextSet(i + 1) {
			if bounds[c.index*n+int(i)] <= heaps[i].KNNDistance() {
				mask.Set(i)
			}
		}
		if mask.None() {
			stats.PrunedChildren++
			continue
		}
		child, err := s.tree.Node(node.Entries[c.index].ChildID())
		if err != nil {
			return err
		}
		if err := s.batchVisit(child, qs, heaps, mask, stats); err != nil {
			return err
		}
	}
	return nil
}
