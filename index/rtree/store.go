package rtree

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/spatialknn/model"
)

// PageStore resolves page ids to nodes. It is the tree's authoritative node storage;
// the tree keeps no node cache of its own.
type PageStore[E Entry] interface {
	// Allocate reserves a fresh page id.
	Allocate() (model.PageID, error)
	// Get returns the node stored under id.
	Get(id model.PageID) (*Node[E], error)
	// Put writes n back under n.ID.
	Put(n *Node[E]) error
	// Free releases the page id.
	Free(id model.PageID) error
	// Stats returns page access counters.
	Stats() StoreStats
}

// StoreStats counts page accesses.
type StoreStats struct {
	Reads  int64 // Reads is the number of Get calls.
	Writes int64 // Writes is the number of Put calls.
	Pages  int64 // Pages is the number of live pages.
}

// MemoryStore keeps nodes in a slice indexed by page id.
//
// Freed ids are reused. Page 0 is never handed out.
type MemoryStore[E Entry] struct {
	nodes    []*Node[E]
	freeList []model.PageID
	live     int64

	reads  atomic.Int64
	writes atomic.Int64
}

var _ PageStore[*SpatialEntry] = (*MemoryStore[*SpatialEntry])(nil)

// NewMemoryStore returns an empty in-memory page store.
func NewMemoryStore[E Entry]() *MemoryStore[E] {
	return &MemoryStore[E]{nodes: make([]*Node[E], 1, 64)}
}

// Allocate reserves a new id from the free list or by extending the node slice.
// The reserved slot stays empty until Put is called.
func (s *MemoryStore[E]) Allocate() (model.PageID, error) {
	s.live++
	if n := len(s.freeList); n > 0 {
		id := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		return id, nil
	}
	s.nodes = append(s.nodes, nil)
	return model.PageID(len(s.nodes) - 1), nil
}

// Get returns the node stored under id.
func (s *MemoryStore[E]) Get(id model.PageID) (*Node[E], error) {
	s.reads.Add(1)
	if id == model.InvalidPage || int(id) >= len(s.nodes) || s.nodes[id] == nil {
		return nil, fmt.Errorf("%w: %v", ErrPageNotFound, id)
	}
	return s.nodes[id], nil
}

// Put stores n under n.ID.
func (s *MemoryStore[E]) Put(n *Node[E]) error {
	s.writes.Add(1)
	if n.ID == model.InvalidPage || int(n.ID) >= len(s.nodes) {
		return fmt.Errorf("%w: %v", ErrPageNotFound, n.ID)
	}
	s.nodes[n.ID] = n
	return nil
}

// Free releases id for reuse.
func (s *MemoryStore[E]) Free(id model.PageID) error {
	if id == model.InvalidPage || int(id) >= len(s.nodes) {
		return fmt.Errorf("%w: %v", ErrPageNotFound, id)
	}
	s.nodes[id] = nil
	s.freeList = append(s.freeList, id)
	s.live--
	return nil
}

// Stats returns page access counters.
func (s *MemoryStore[E]) Stats() StoreStats {
	return StoreStats{
		Reads:  s.reads.Load(),
		Writes: s.writes.Load(),
		Pages:  s.live,
	}
}
