package knn

import (
	"cmp"
	"iter"
	"slices"

	"github.com/hupe1980/spatialknn/model"
)

// List is an immutable, ascending-by-distance neighbor list.
//
// IDs and distances are stored column-wise so that AsIDs and AsDistances are
// zero-copy projections. Neighbors at equal distance are ordered by id.
type List[D cmp.Ordered] struct {
	ids   []model.ObjectID
	dists []D
	k     int
	inf   D
}

// NewList builds a list from unordered neighbors. k is the requested neighbor
// count (0 for range results); inf is the infinity sentinel of the distance type.
func NewList[D cmp.Ordered](neighbors []Neighbor[D], k int, inf D) List[D] {
	return newList(slices.Clone(neighbors), k, inf)
}

// EmptyList returns a list without neighbors.
func EmptyList[D cmp.Ordered](k int, inf D) List[D] {
	return List[D]{k: k, inf: inf}
}

func newList[D cmp.Ordered](ns []Neighbor[D], k int, inf D) List[D] {
	slices.SortFunc(ns, compareNeighbors[D])
	l := List[D]{
		ids:   make([]model.ObjectID, len(ns)),
		dists: make([]D, len(ns)),
		k:     k,
		inf:   inf,
	}
	for i, n := range ns {
		l.ids[i] = n.ID
		l.dists[i] = n.Distance
	}
	return l
}

func compareNeighbors[D cmp.Ordered](a, b Neighbor[D]) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Len returns the number of neighbors.
func (l List[D]) Len() int { return len(l.ids) }

// K returns the requested neighbor count, or 0 for range results.
func (l List[D]) K() int { return l.k }

// At returns the i-th nearest neighbor.
func (l List[D]) At(i int) Neighbor[D] {
	return Neighbor[D]{ID: l.ids[i], Distance: l.dists[i]}
}

// AsIDs returns the neighbor ids in ascending distance order.
// The returned slice must not be modified.
func (l List[D]) AsIDs() []model.ObjectID { return l.ids }

// AsDistances returns the neighbor distances in ascending order.
// The returned slice must not be modified.
func (l List[D]) AsDistances() []D { return l.dists }

// KNNDistance returns the k-th distance, or infinity when the list holds fewer
// than k neighbors. Range results report their largest distance.
func (l List[D]) KNNDistance() D {
	if len(l.dists) == 0 || len(l.dists) < l.k {
		return l.inf
	}
	return l.dists[len(l.dists)-1]
}

// Contains reports whether id is a neighbor.
func (l List[D]) Contains(id model.ObjectID) bool {
	return slices.Contains(l.ids, id)
}

// All iterates neighbors in ascending order.
func (l List[D]) All() iter.Seq2[model.ObjectID, D] {
	return func(yield func(model.ObjectID, D) bool) {
		for i := range l.ids {
			if !yield(l.ids[i], l.dists[i]) {
				return
			}
		}
	}
}

// Neighbors returns a copy of the list as pairs.
func (l List[D]) Neighbors() []Neighbor[D] {
	out := make([]Neighbor[D], len(l.ids))
	for i := range l.ids {
		out[i] = Neighbor[D]{ID: l.ids[i], Distance: l.dists[i]}
	}
	return out
}

// Equal reports whether both lists hold the same neighbors at the same distances.
func (l List[D]) Equal(o List[D]) bool {
	return slices.Equal(l.ids, o.ids) && slices.Equal(l.dists, o.dists)
}
