package dlink

import (
	"fmt"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/model"
)

// Entry decorates an R-tree entry with handled/unhandled flags.
type Entry struct {
	rtree.SpatialEntry

	HasHandled   bool `json:"handled,omitempty"`
	HasUnhandled bool `json:"unhandled,omitempty"`
}

// Kind is the rtree.Kind of join-extension entries.
type Kind struct{}

var _ rtree.Kind[*Entry] = Kind{}

// NewLeaf returns an unhandled leaf entry.
func (Kind) NewLeaf(id model.ObjectID, p model.Vector) *Entry {
	return &Entry{SpatialEntry: rtree.NewLeafEntry(id, p), HasUnhandled: true}
}

func (Kind) NewDirectory(child model.PageID) *Entry {
	return &Entry{SpatialEntry: rtree.NewDirectoryEntry(child, model.Box{})}
}

// Adjust recomputes the box and both flags of e from child.
func (Kind) Adjust(e *Entry, child *rtree.Node[*Entry]) bool {
	changed := e.AdjustBox(child)
	handled, unhandled := flagsOf(child)
	if e.HasHandled != handled || e.HasUnhandled != unhandled {
		e.HasHandled, e.HasUnhandled = handled, unhandled
		changed = true
	}
	return changed
}

func (Kind) Verify(e *Entry, child *rtree.Node[*Entry]) error {
	if err := e.VerifyBox(child); err != nil {
		return err
	}
	handled, unhandled := flagsOf(child)
	if e.HasHandled != handled || e.HasUnhandled != unhandled {
		return fmt.Errorf("%w: entry for %v has flags handled=%t unhandled=%t, want %t/%t",
			rtree.ErrCorrupt, e.Child, e.HasHandled, e.HasUnhandled, handled, unhandled)
	}
	return nil
}

func flagsOf(n *rtree.Node[*Entry]) (handled, unhandled bool) {
	for _, c := range n.Entries {
		handled = handled || c.HasHandled
		unhandled = unhandled || c.HasUnhandled
		if handled && unhandled {
			break
		}
	}
	return handled, unhandled
}
