package rtree

import "github.com/hupe1980/spatialknn/model"

// PathElement is one step of a root-to-node path: the visited page and the index
// of the entry followed inside it (for the last step of an object path, the index
// of the leaf entry).
type PathElement struct {
	Page  model.PageID
	Index int
}

// Path is an immutable root-to-node stack. Push never modifies the receiver's
// backing array, so sub-paths can be shared safely.
type Path []PathElement

// Push returns a new path extended by one step.
func (p Path) Push(page model.PageID, index int) Path {
	return append(p[:len(p):len(p)], PathElement{Page: page, Index: index})
}

// Len returns the number of steps.
func (p Path) Len() int { return len(p) }

// Last returns the deepest step.
func (p Path) Last() PathElement { return p[len(p)-1] }

// Parent returns the path without its deepest step.
func (p Path) Parent() Path { return p[: len(p)-1 : len(p)-1] }

// Pages returns the visited page ids from root to leaf.
func (p Path) Pages() []model.PageID {
	out := make([]model.PageID, len(p))
	for i, e := range p {
		out[i] = e.Page
	}
	return out
}
