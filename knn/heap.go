package knn

import (
	"cmp"

	"github.com/hupe1980/spatialknn/model"
)

// Neighbor is a (distance, id) pair.
type Neighbor[D cmp.Ordered] struct {
	ID       model.ObjectID
	Distance D
}

// Heap retains the k nearest candidates plus all ties at the k-th distance.
//
// Heap is not safe for concurrent use.
type Heap[D cmp.Ordered] struct {
	k     int
	inf   D
	items []Neighbor[D] // max-heap on Distance
	ties  []Neighbor[D] // all at items[0].Distance
}

// NewHeap creates a heap for k neighbors. inf is the distance reported by
// KNNDistance while fewer than k candidates are retained.
// It panics if k < 1.
func NewHeap[D cmp.Ordered](k int, inf D) *Heap[D] {
	if k < 1 {
		panic("knn: NewHeap called with k < 1")
	}
	return &Heap[D]{
		k:     k,
		inf:   inf,
		items: make([]Neighbor[D], 0, k+1),
	}
}

// K returns the requested neighbor count.
func (h *Heap[D]) K() int { return h.k }

// Len returns the number of retained candidates, ties included.
func (h *Heap[D]) Len() int { return len(h.items) + len(h.ties) }

// KNNDistance returns the current k-th distance, or the infinity sentinel while
// fewer than k candidates are retained. It never grows between inserts.
func (h *Heap[D]) KNNDistance() D {
	if len(h.items) < h.k {
		return h.inf
	}
	return h.items[0].Distance
}

// Peek returns the worst retained candidate.
func (h *Heap[D]) Peek() (Neighbor[D], bool) {
	if len(h.items) == 0 {
		return Neighbor[D]{}, false
	}
	return h.items[0], true
}

// Insert offers a candidate. It reports whether the candidate was retained.
func (h *Heap[D]) Insert(d D, id model.ObjectID) bool {
	n := Neighbor[D]{ID: id, Distance: d}
	if len(h.items) < h.k {
		h.push(n)
		return true
	}
	top := h.items[0].Distance
	if d > top {
		return false
	}
	if d == top {
		h.ties = append(h.ties, n)
		return true
	}

	h.push(n)
	evicted := h.pop()
	if h.items[0].Distance == evicted.Distance {
		h.ties = append(h.ties, evicted)
	} else {
		h.ties = h.ties[:0]
	}
	return true
}

// ToList drains the heap into an ascending result list. The heap is empty afterwards.
func (h *Heap[D]) ToList() List[D] {
	out := make([]Neighbor[D], 0, h.Len())
	out = append(out, h.items...)
	out = append(out, h.ties...)
	h.items = h.items[:0]
	h.ties = h.ties[:0]
	return newList(out, h.k, h.inf)
}

// Reset clears the heap for reuse.
func (h *Heap[D]) Reset() {
	h.items = h.items[:0]
	h.ties = h.ties[:0]
}

func (h *Heap[D]) push(n Neighbor[D]) {
	h.items = append(h.items, n)
	i := len(h.items) - 1
	for i > 0 {
		p := (i - 1) / 2
		if h.items[i].Distance <= h.items[p].Distance {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *Heap[D]) pop() Neighbor[D] {
	n := len(h.items)
	root := h.items[0]
	h.items[0] = h.items[n-1]
	h.items[n-1] = Neighbor[D]{}
	h.items = h.items[:n-1]

	i := 0
	n--
	for {
		l := 2*i + 1
		if l >= n {
			break
		}
		best := l
		if r := l + 1; r < n && h.items[r].Distance > h.items[l].Distance {
			best = r
		}
		if h.items[best].Distance <= h.items[i].Distance {
			break
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
	return root
}
