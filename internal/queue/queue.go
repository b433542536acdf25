// Package queue provides the priority queue driving best-first tree searches.
package queue

import "cmp"

// Item is a queued value with its priority.
type Item[P cmp.Ordered, V any] struct {
	Value    V // Value is the queued payload (typically a page id).
	Priority P // Priority orders the queue (typically a distance lower bound).
}

// PriorityQueue is a binary heap holding Items.
// Optimized: value-based storage for better cache locality and zero allocations.
// It does NOT implement container/heap to avoid interface overhead.
type PriorityQueue[P cmp.Ordered, V any] struct {
	isMaxHeap bool         // true = max heap, false = min heap
	items     []Item[P, V] // Value-based storage
}

// NewMin initializes a new priority queue with minimum priority on top.
func NewMin[P cmp.Ordered, V any](capacity int) *PriorityQueue[P, V] {
	return &PriorityQueue[P, V]{
		isMaxHeap: false,
		items:     make([]Item[P, V], 0, capacity),
	}
}

// NewMax initializes a new priority queue with maximum priority on top.
func NewMax[P cmp.Ordered, V any](capacity int) *PriorityQueue[P, V] {
	return &PriorityQueue[P, V]{
		isMaxHeap: true,
		items:     make([]Item[P, V], 0, capacity),
	}
}

// Len returns the number of elements in the queue.
func (pq *PriorityQueue[P, V]) Len() int { return len(pq.items) }

// Reset clears the queue for reuse.
func (pq *PriorityQueue[P, V]) Reset() {
	clear(pq.items)
	pq.items = pq.items[:0]
}

// Top returns the top element of the heap.
func (pq *PriorityQueue[P, V]) Top() (Item[P, V], bool) {
	if len(pq.items) == 0 {
		return Item[P, V]{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue[P, V]) Push(v V, priority P) {
	pq.items = append(pq.items, Item[P, V]{Value: v, Priority: priority})
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue[P, V]) Pop() (Item[P, V], bool) {
	n := len(pq.items)
	if n == 0 {
		return Item[P, V]{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = Item[P, V]{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

func (pq *PriorityQueue[P, V]) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[i].Priority > pq.items[j].Priority
	}
	return pq.items[i].Priority < pq.items[j].Priority
}

func (pq *PriorityQueue[P, V]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue[P, V]) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
