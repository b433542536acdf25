package rtree

import "github.com/hupe1980/spatialknn/model"

// Entry is the capability set every tree entry provides.
type Entry interface {
	// IsLeaf reports whether the entry references an object (true) or a child page.
	IsLeaf() bool
	// ObjectID returns the referenced object. Only valid for leaf entries.
	ObjectID() model.ObjectID
	// ChildID returns the referenced child page. Only valid for directory entries.
	ChildID() model.PageID
	// Point returns the object's point. Only valid for leaf entries.
	Point() model.Vector
	// Bounds returns the entry's bounding box (the degenerate point box for leaves).
	Bounds() model.Box
}

// Kind creates entries of type E and keeps directory entries consistent with
// their children.
type Kind[E Entry] interface {
	// NewLeaf wraps an object as a leaf entry.
	NewLeaf(id model.ObjectID, p model.Vector) E
	// NewDirectory returns an unadjusted directory entry for child.
	NewDirectory(child model.PageID) E
	// Adjust recomputes e from the current contents of its child node and reports
	// whether anything changed.
	Adjust(e E, child *Node[E]) bool
	// Verify checks that e is consistent with child.
	Verify(e E, child *Node[E]) error
}

// SpatialEntry is the plain R-tree entry.
type SpatialEntry struct {
	Leaf  bool           `json:"leaf"`
	ID    model.ObjectID `json:"id,omitempty"`
	Child model.PageID   `json:"child,omitempty"`
	Vec   model.Vector   `json:"vec,omitempty"`
	Box   model.Box      `json:"box"`
}

// NewLeafEntry returns a leaf entry for id at p.
func NewLeafEntry(id model.ObjectID, p model.Vector) SpatialEntry {
	return SpatialEntry{Leaf: true, ID: id, Vec: p}
}

// NewDirectoryEntry returns a directory entry for child with the given box.
func NewDirectoryEntry(child model.PageID, box model.Box) SpatialEntry {
	return SpatialEntry{Child: child, Box: box}
}

func (e *SpatialEntry) IsLeaf() bool             { return e.Leaf }
func (e *SpatialEntry) ObjectID() model.ObjectID { return e.ID }
func (e *SpatialEntry) ChildID() model.PageID    { return e.Child }
func (e *SpatialEntry) Point() model.Vector      { return e.Vec }

func (e *SpatialEntry) Bounds() model.Box {
	if e.Leaf {
		return model.PointBox(e.Vec)
	}
	return e.Box
}

// AdjustBox recomputes the box of a directory entry from child.
func (e *SpatialEntry) AdjustBox(child Boxer) bool {
	box := child.BoundingBox()
	if box.Equal(e.Box) {
		return false
	}
	e.Box = box
	return true
}

// VerifyBox checks that the directory box is the minimal box covering child.
func (e *SpatialEntry) VerifyBox(child Boxer) error {
	if want := child.BoundingBox(); !want.Equal(e.Box) {
		return corruptf("entry for %v has box %v, want %v", e.Child, e.Box, want)
	}
	return nil
}

// Boxer is anything with a minimal bounding box.
type Boxer interface {
	BoundingBox() model.Box
}

// SpatialKind is the Kind of plain R-tree entries.
type SpatialKind struct{}

var _ Kind[*SpatialEntry] = SpatialKind{}

func (SpatialKind) NewLeaf(id model.ObjectID, p model.Vector) *SpatialEntry {
	e := NewLeafEntry(id, p)
	return &e
}

func (SpatialKind) NewDirectory(child model.PageID) *SpatialEntry {
	return &SpatialEntry{Child: child}
}

func (SpatialKind) Adjust(e *SpatialEntry, child *Node[*SpatialEntry]) bool {
	return e.AdjustBox(child)
}

func (SpatialKind) Verify(e *SpatialEntry, child *Node[*SpatialEntry]) error {
	return e.VerifyBox(child)
}
