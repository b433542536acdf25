package rtree

import (
	"github.com/hupe1980/spatialknn/model"
)

// Validate checks the structural invariants of the tree:
//
//   - all leaves are at the same depth;
//   - non-root nodes hold between MinFill and Capacity entries;
//   - a directory root holds at least two entries;
//   - every directory entry is consistent with its child (Kind.Verify), which for
//     plain entries means its box is the minimal box covering the child;
//   - the number of leaf entries equals Len and all points share one dimension.
func (t *Tree[E]) Validate() error {
	count, err := t.validateNode(t.root, 0)
	if err != nil {
		return err
	}
	if count != t.size {
		return corruptf("tree holds %d objects, size is %d", count, t.size)
	}
	return nil
}

func (t *Tree[E]) validateNode(id model.PageID, depth int) (int, error) {
	node, err := t.store.Get(id)
	if err != nil {
		return 0, err
	}
	isRoot := depth == 0
	wantLeaf := depth == t.height-1
	if node.Leaf != wantLeaf {
		return 0, corruptf("%v at depth %d: leaf=%t, height %d", id, depth, node.Leaf, t.height)
	}
	if node.Overflows() {
		return 0, corruptf("%v overflows: %d > %d", id, len(node.Entries), node.Capacity)
	}
	if !isRoot && node.Underflows() {
		return 0, corruptf("%v underflows: %d < %d", id, len(node.Entries), node.MinFill)
	}
	if isRoot && !node.Leaf && len(node.Entries) < 2 {
		return 0, corruptf("directory root %v has %d entries", id, len(node.Entries))
	}

	if node.Leaf {
		for _, e := range node.Entries {
			if !e.IsLeaf() {
				return 0, corruptf("directory entry in leaf %v", id)
			}
			if t.dim != 0 && len(e.Point()) != t.dim {
				return 0, corruptf("object %d has dimension %d, want %d", e.ObjectID(), len(e.Point()), t.dim)
			}
		}
		return len(node.Entries), nil
	}

	total := 0
	for _, e := range node.Entries {
		if e.IsLeaf() {
			return 0, corruptf("leaf entry in directory %v", id)
		}
		child, err := t.store.Get(e.ChildID())
		if err != nil {
			return 0, err
		}
		if err := t.kind.Verify(e, child); err != nil {
			return 0, err
		}
		n, err := t.validateNode(child.ID, depth+1)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Stats describes the shape of the tree.
type Stats struct {
	Height    int
	Objects   int
	LeafNodes int
	DirNodes  int
	Store     StoreStats
}

// Stats walks the tree and returns its shape statistics.
func (t *Tree[E]) Stats() (Stats, error) {
	s := Stats{Height: t.height, Objects: t.size}
	if err := t.countNodes(t.root, &s); err != nil {
		return Stats{}, err
	}
	s.Store = t.store.Stats()
	return s, nil
}

func (t *Tree[E]) countNodes(id model.PageID, s *Stats) error {
	node, err := t.store.Get(id)
	if err != nil {
		return err
	}
	if node.Leaf {
		s.LeafNodes++
		return nil
	}
	s.DirNodes++
	for _, e := range node.Entries {
		if err := t.countNodes(e.ChildID(), s); err != nil {
			return err
		}
	}
	return nil
}
