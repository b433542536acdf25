package model

import (
	"fmt"
	"slices"
)

// ObjectID identifies a stored object. It is assigned by the caller and never
// interpreted by the index.
type ObjectID uint64

// PageID identifies a node inside a page store.
type PageID uint64

// InvalidPage is the zero PageID. Page stores never hand it out.
const InvalidPage PageID = 0

// String returns a string representation of the PageID.
func (p PageID) String() string {
	return fmt.Sprintf("Page(%d)", uint64(p))
}

// Vector is a fixed-dimension point.
type Vector []float64

// Dim returns the dimensionality of v.
func (v Vector) Dim() int { return len(v) }

// Equal reports whether v and o have the same coordinates.
func (v Vector) Equal(o Vector) bool {
	return slices.Equal(v, o)
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	return slices.Clone(v)
}
