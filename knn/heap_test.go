package knn

import (
	"math"
	"testing"

	"github.com/hupe1980/spatialknn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inf = math.Inf(1)

func TestHeap(t *testing.T) {
	t.Run("KeepsSmallest", func(t *testing.T) {
		h := NewHeap(3, inf)
		for i, d := range []float64{5, 1, 4, 2, 3} {
			h.Insert(d, model.ObjectID(i))
		}
		l := h.ToList()
		assert.Equal(t, []float64{1, 2, 3}, l.AsDistances())
		assert.Equal(t, []model.ObjectID{1, 3, 4}, l.AsIDs())
		assert.Equal(t, 3.0, l.KNNDistance())
	})

	t.Run("KNNDistanceInfinityBelowK", func(t *testing.T) {
		h := NewHeap(3, inf)
		assert.True(t, math.IsInf(h.KNNDistance(), 1))
		h.Insert(1, 1)
		h.Insert(2, 2)
		assert.True(t, math.IsInf(h.KNNDistance(), 1))
		h.Insert(7, 3)
		assert.Equal(t, 7.0, h.KNNDistance())

		l := NewHeap(5, inf).ToList()
		assert.Equal(t, 0, l.Len())
		assert.True(t, math.IsInf(l.KNNDistance(), 1))
	})

	t.Run("RetainsTiesAtBoundary", func(t *testing.T) {
		h := NewHeap(1, inf)
		assert.True(t, h.Insert(1, 10))
		assert.True(t, h.Insert(1, 11))
		assert.False(t, h.Insert(2, 12))

		l := h.ToList()
		require.Equal(t, 2, l.Len())
		assert.Equal(t, []model.ObjectID{10, 11}, l.AsIDs())
		assert.Equal(t, 1.0, l.KNNDistance())
	})

	t.Run("TiesDroppedWhenBoundaryShrinks", func(t *testing.T) {
		h := NewHeap(2, inf)
		h.Insert(3, 1)
		h.Insert(5, 2)
		h.Insert(5, 3)
		h.Insert(5, 4)
		assert.Equal(t, 4, h.Len())

		h.Insert(4, 5)
		assert.Equal(t, 2, h.Len())
		assert.Equal(t, 4.0, h.KNNDistance())
	})

	t.Run("EvictedBecomesTie", func(t *testing.T) {
		h := NewHeap(3, inf)
		h.Insert(5, 1)
		h.Insert(5, 2)
		h.Insert(3, 3)
		h.Insert(5, 4) // tie
		h.Insert(1, 5) // evicts one 5, which stays as a tie

		l := h.ToList()
		assert.Equal(t, []float64{1, 3, 5, 5, 5}, l.AsDistances())
		assert.Equal(t, []model.ObjectID{5, 3, 1, 2, 4}, l.AsIDs())
	})

	t.Run("MatchesSortedPrefixWithTies", func(t *testing.T) {
		dists := []float64{4, 2, 2, 9, 2, 7, 1, 4, 4, 3}
		for k := 1; k <= len(dists); k++ {
			h := NewHeap(k, inf)
			for i, d := range dists {
				h.Insert(d, model.ObjectID(i))
			}
			l := h.ToList()

			sorted := NewList(toNeighbors(dists), 0, inf).AsDistances()
			boundary := sorted[k-1]
			want := 0
			for _, d := range sorted {
				if d <= boundary {
					want++
				}
			}
			assert.Equal(t, want, l.Len(), "k=%d", k)
			assert.Equal(t, boundary, l.KNNDistance(), "k=%d", k)
		}
	})

	t.Run("RejectsKBelowOne", func(t *testing.T) {
		assert.Panics(t, func() { NewHeap(0, inf) })
		assert.Panics(t, func() { NewHeap(-3, inf) })
	})
}

func TestList(t *testing.T) {
	l := NewList([]Neighbor[float64]{{ID: 3, Distance: 2}, {ID: 1, Distance: 1}, {ID: 2, Distance: 2}}, 2, inf)
	assert.Equal(t, []model.ObjectID{1, 2, 3}, l.AsIDs())
	assert.True(t, l.Contains(2))
	assert.False(t, l.Contains(9))
	assert.Equal(t, Neighbor[float64]{ID: 1, Distance: 1}, l.At(0))

	var seen []model.ObjectID
	for id := range l.All() {
		seen = append(seen, id)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []model.ObjectID{1, 2}, seen)

	other := NewList(l.Neighbors(), 2, inf)
	assert.True(t, l.Equal(other))
}

func toNeighbors(dists []float64) []Neighbor[float64] {
	out := make([]Neighbor[float64], len(dists))
	for i, d := range dists {
		out[i] = Neighbor[float64]{ID: model.ObjectID(i), Distance: d}
	}
	return out
}
