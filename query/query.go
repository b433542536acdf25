package query

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
)

var (
	// ErrInvalidK is returned when k is less than 1.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrInvalidEpsilon is returned for a negative range radius.
	ErrInvalidEpsilon = errors.New("epsilon must not be negative")

	// ErrDimensionMismatch is returned when a query point does not match the
	// dimension of the indexed data.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Stats counts the work done by one query.
type Stats struct {
	// DistanceComputations counts point and box distance evaluations.
	DistanceComputations int64
	// NodeVisits counts nodes read from the page store.
	NodeVisits int64
	// PrunedChildren counts subtrees skipped by their distance bound.
	PrunedChildren int64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.DistanceComputations += o.DistanceComputations
	s.NodeVisits += o.NodeVisits
	s.PrunedChildren += o.PrunedChildren
}

// Searcher answers neighbor queries with distances of type D.
type Searcher[D cmp.Ordered] interface {
	// KNN returns the k nearest neighbors of q, plus every neighbor tied with
	// the k-th distance.
	KNN(q model.Vector, k int) (knn.List[D], Stats, error)
	// Range returns every object within eps of q, ascending by distance.
	Range(q model.Vector, eps D) (knn.List[D], Stats, error)
	// BatchKNN answers KNN for every query point, sharing work between them.
	BatchKNN(qs []model.Vector, k int) ([]knn.List[D], Stats, error)
}

// Tree is the read-only view of an R-tree the engines need.
// *rtree.Tree and *dlink.Tree satisfy it.
type Tree[E rtree.Entry] interface {
	RootNode() (*rtree.Node[E], error)
	Node(id model.PageID) (*rtree.Node[E], error)
	Len() int
	Dimension() int
}

func checkK(k int) error {
	if k < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	return nil
}

func checkDim(dim int, q model.Vector) error {
	if dim != 0 && len(q) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(q))
	}
	return nil
}
