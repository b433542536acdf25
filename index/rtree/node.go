package rtree

import (
	"slices"

	"github.com/hupe1980/spatialknn/model"
)

// Node is a fixed-capacity ordered container of entries.
//
// Whether a node is a leaf is fixed when it is created.
type Node[E Entry] struct {
	ID       model.PageID `json:"id"`
	Leaf     bool         `json:"leaf"`
	Capacity int          `json:"capacity"`
	MinFill  int          `json:"min_fill"`
	Entries  []E          `json:"entries"`
}

// NewNode returns an empty node.
func NewNode[E Entry](id model.PageID, leaf bool, capacity, minFill int) *Node[E] {
	return &Node[E]{
		ID:       id,
		Leaf:     leaf,
		Capacity: capacity,
		MinFill:  minFill,
		Entries:  make([]E, 0, capacity+1),
	}
}

// IsLeaf reports whether n holds leaf entries.
func (n *Node[E]) IsLeaf() bool { return n.Leaf }

// Len returns the number of entries.
func (n *Node[E]) Len() int { return len(n.Entries) }

// Overflows reports whether n holds more entries than its capacity.
func (n *Node[E]) Overflows() bool { return len(n.Entries) > n.Capacity }

// Underflows reports whether n holds fewer entries than its minimum fill.
func (n *Node[E]) Underflows() bool { return len(n.Entries) < n.MinFill }

// Add appends e.
func (n *Node[E]) Add(e E) {
	n.Entries = append(n.Entries, e)
}

// RemoveAt deletes the entry at i, keeping order.
func (n *Node[E]) RemoveAt(i int) E {
	e := n.Entries[i]
	n.Entries = slices.Delete(n.Entries, i, i+1)
	return e
}

// IndexOfChild returns the position of the directory entry for child, or -1.
func (n *Node[E]) IndexOfChild(child model.PageID) int {
	for i, e := range n.Entries {
		if !e.IsLeaf() && e.ChildID() == child {
			return i
		}
	}
	return -1
}

// BoundingBox returns the minimal box covering all entries of n.
func (n *Node[E]) BoundingBox() model.Box {
	return ComputeBoundingBox(n)
}

// ComputeBoundingBox returns the minimal box covering all entries of n: the
// children's boxes for a directory node, the contained points for a leaf node.
func ComputeBoundingBox[E Entry](n *Node[E]) model.Box {
	var box model.Box
	for _, e := range n.Entries {
		box.Extend(e.Bounds())
	}
	return box
}

func boundsOf[E Entry](entries []E) model.Box {
	var box model.Box
	for _, e := range entries {
		box.Extend(e.Bounds())
	}
	return box
}
