package rtree

import (
	"fmt"

	"github.com/hupe1980/spatialknn/model"
)

// Insert adds object id at point p.
//
// The point is copied; later changes to p do not affect the tree.
func (t *Tree[E]) Insert(id model.ObjectID, p model.Vector) error {
	if err := t.checkDim(p); err != nil {
		return err
	}
	if err := t.insertEntry(t.kind.NewLeaf(id, p.Clone()), 0); err != nil {
		return fmt.Errorf("insert %d: %w", id, err)
	}
	if t.dim == 0 {
		t.dim = len(p)
	}
	t.size++
	return nil
}

// insertEntry places e into a node at the given level (0 = leaf level) and
// resolves overflow up to the root.
func (t *Tree[E]) insertEntry(e E, level int) error {
	path, err := t.choosePath(e.Bounds(), level)
	if err != nil {
		return err
	}
	node, err := t.store.Get(path.Last().Page)
	if err != nil {
		return err
	}
	node.Add(e)
	if err := t.store.Put(node); err != nil {
		return err
	}
	return t.adjustPath(path)
}

// choosePath descends from the root to a node at level, choosing at every
// directory the child needing least enlargement to include box.
func (t *Tree[E]) choosePath(box model.Box, level int) (Path, error) {
	var path Path
	id := t.root
	for depth := 0; ; depth++ {
		if t.levelOf(depth) == level {
			return path.Push(id, -1), nil
		}
		node, err := t.store.Get(id)
		if err != nil {
			return nil, err
		}
		if node.Leaf || len(node.Entries) == 0 {
			return nil, corruptf("descent to level %d stopped at %v (depth %d)", level, id, depth)
		}
		i := chooseSubtree(node, box)
		path = path.Push(id, i)
		id = node.Entries[i].ChildID()
	}
}

// chooseSubtree returns the entry needing least volume enlargement to include box.
// Ties are broken by least overlap increase with the siblings, then by least volume.
func chooseSubtree[E Entry](n *Node[E], box model.Box) int {
	best := -1
	var bestEnl float64
	var tied []int
	for i, e := range n.Entries {
		enl := e.Bounds().Enlargement(box)
		switch {
		case best < 0 || enl < bestEnl:
			best, bestEnl = i, enl
			tied = tied[:0]
			tied = append(tied, i)
		case enl == bestEnl:
			tied = append(tied, i)
		}
	}
	if len(tied) <= 1 {
		return best
	}

	best = -1
	var bestOvl, bestVol float64
	for _, i := range tied {
		eb := n.Entries[i].Bounds()
		ovl := overlapIncrease(n, i, eb, box)
		vol := eb.Volume()
		if best < 0 || ovl < bestOvl || (ovl == bestOvl && vol < bestVol) {
			best, bestOvl, bestVol = i, ovl, vol
		}
	}
	return best
}

func overlapIncrease[E Entry](n *Node[E], i int, eb, box model.Box) float64 {
	grown := eb.Union(box)
	var delta float64
	for j, other := range n.Entries {
		if j == i {
			continue
		}
		ob := other.Bounds()
		delta += grown.Overlap(ob) - eb.Overlap(ob)
	}
	return delta
}

// adjustPath walks path bottom-up, splitting overflowing nodes and recomputing
// the parent entries. It stops as soon as a level neither split nor changed.
func (t *Tree[E]) adjustPath(path Path) error {
	for i := len(path) - 1; i >= 0; i-- {
		node, err := t.store.Get(path[i].Page)
		if err != nil {
			return err
		}

		var sibling *Node[E]
		if node.Overflows() {
			if sibling, err = t.split(node); err != nil {
				return err
			}
		}

		if i == 0 {
			if sibling != nil {
				return t.growRoot(node, sibling)
			}
			return nil
		}

		parent, err := t.store.Get(path[i-1].Page)
		if err != nil {
			return err
		}
		changed := t.kind.Adjust(parent.Entries[path[i-1].Index], node)
		if sibling != nil {
			parent.Add(t.newDirectoryEntry(sibling))
			changed = true
		}
		if !changed {
			return nil
		}
		if err := t.store.Put(parent); err != nil {
			return err
		}
	}
	return nil
}

// growRoot installs a new root above the split halves; height grows by one.
func (t *Tree[E]) growRoot(left, right *Node[E]) error {
	root, err := t.newNode(false)
	if err != nil {
		return err
	}
	root.Add(t.newDirectoryEntry(left))
	root.Add(t.newDirectoryEntry(right))
	if err := t.store.Put(root); err != nil {
		return err
	}
	t.root = root.ID
	t.height++
	t.logger.Debug("root split", "root", root.ID, "height", t.height)
	return nil
}
