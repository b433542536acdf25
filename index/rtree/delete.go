package rtree

import (
	"fmt"

	"github.com/hupe1980/spatialknn/model"
)

// FindPathToObject returns the path from the root to the leaf entry of object id
// at point p. Only directory entries whose box contains p are descended.
//
// A missing object yields an *ObjectNotFoundError (errors.Is ErrObjectNotFound).
func (t *Tree[E]) FindPathToObject(p model.Vector, id model.ObjectID) (Path, error) {
	path, err := t.findPath(nil, t.root, p, id)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, &ObjectNotFoundError{ID: id, Point: p}
	}
	return path, nil
}

func (t *Tree[E]) findPath(prefix Path, page model.PageID, p model.Vector, id model.ObjectID) (Path, error) {
	node, err := t.store.Get(page)
	if err != nil {
		return nil, err
	}
	for i, e := range node.Entries {
		if node.Leaf {
			if e.ObjectID() == id && e.Point().Equal(p) {
				return prefix.Push(page, i), nil
			}
			continue
		}
		if !e.Bounds().Contains(p) {
			continue
		}
		found, err := t.findPath(prefix.Push(page, i), e.ChildID(), p, id)
		if err != nil || found != nil {
			return found, err
		}
	}
	return nil, nil
}

type orphan[E Entry] struct {
	entry E
	level int
}

// Delete removes object id stored at point p.
//
// Underfull nodes on the path are dissolved and their remaining entries are
// reinserted at their original level; a directory root left with a single child
// is replaced by that child.
func (t *Tree[E]) Delete(id model.ObjectID, p model.Vector) error {
	path, err := t.FindPathToObject(p, id)
	if err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	leaf, err := t.store.Get(path.Last().Page)
	if err != nil {
		return err
	}
	leaf.RemoveAt(path.Last().Index)
	if err := t.store.Put(leaf); err != nil {
		return err
	}

	orphans, err := t.condense(path)
	if err != nil {
		return err
	}
	for _, o := range orphans {
		if err := t.insertEntry(o.entry, o.level); err != nil {
			return fmt.Errorf("reinsert: %w", err)
		}
	}
	if err := t.shrinkRoot(); err != nil {
		return err
	}
	t.size--
	return nil
}

// condense walks path bottom-up, dissolving underfull nodes and collecting their
// entries for reinsertion.
func (t *Tree[E]) condense(path Path) ([]orphan[E], error) {
	var orphans []orphan[E]
	for i := len(path) - 1; i > 0; i-- {
		node, err := t.store.Get(path[i].Page)
		if err != nil {
			return nil, err
		}
		parent, err := t.store.Get(path[i-1].Page)
		if err != nil {
			return nil, err
		}
		idx := path[i-1].Index

		if node.Underflows() {
			parent.RemoveAt(idx)
			level := t.levelOf(i)
			for _, e := range node.Entries {
				orphans = append(orphans, orphan[E]{entry: e, level: level})
			}
			if err := t.store.Free(node.ID); err != nil {
				return nil, err
			}
			if err := t.store.Put(parent); err != nil {
				return nil, err
			}
			continue
		}

		if !t.kind.Adjust(parent.Entries[idx], node) {
			break
		}
		if err := t.store.Put(parent); err != nil {
			return nil, err
		}
	}
	return orphans, nil
}

// shrinkRoot replaces a directory root holding a single child by that child.
func (t *Tree[E]) shrinkRoot() error {
	for t.height > 1 {
		root, err := t.store.Get(t.root)
		if err != nil {
			return err
		}
		if len(root.Entries) != 1 {
			return nil
		}
		child := root.Entries[0].ChildID()
		if err := t.store.Free(root.ID); err != nil {
			return err
		}
		t.root = child
		t.height--
		t.logger.Debug("root shrunk", "root", child, "height", t.height)
	}
	return nil
}
