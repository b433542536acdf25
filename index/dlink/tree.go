package dlink

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/model"
)

// Tree is an R-tree over join-extension entries.
//
// Insert, Delete and BulkLoad keep the flags consistent through Kind.Adjust.
// Tree is not safe for concurrent use.
type Tree struct {
	*rtree.Tree[*Entry]

	handled  *roaring64.Bitmap
	expanded map[model.PageID]map[model.PageID]struct{}
	logger   *slog.Logger
}

// New creates an empty tree. A nil store selects an rtree.MemoryStore.
func New(store rtree.PageStore[*Entry], optFns ...func(o *rtree.Options)) (*Tree, error) {
	inner, err := rtree.New[*Entry](Kind{}, store, optFns...)
	if err != nil {
		return nil, err
	}

	opts := rtree.DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Tree{
		Tree:     inner,
		handled:  roaring64.New(),
		expanded: make(map[model.PageID]map[model.PageID]struct{}),
		logger:   logger,
	}, nil
}

// Insert adds an unhandled object.
func (t *Tree) Insert(id model.ObjectID, p model.Vector) error {
	if err := t.Tree.Insert(id, p); err != nil {
		return err
	}
	t.handled.Remove(uint64(id))
	t.ResetExpanded()
	return nil
}

// Delete removes an object and forgets whether it was handled.
func (t *Tree) Delete(id model.ObjectID, p model.Vector) error {
	if err := t.Tree.Delete(id, p); err != nil {
		return err
	}
	t.handled.Remove(uint64(id))
	t.ResetExpanded()
	return nil
}

// BulkLoad packs an empty tree with unhandled objects.
func (t *Tree) BulkLoad(ids []model.ObjectID, points []model.Vector) error {
	if err := t.Tree.BulkLoad(ids, points); err != nil {
		return err
	}
	for _, id := range ids {
		t.handled.Remove(uint64(id))
	}
	t.ResetExpanded()
	return nil
}

// SetHandled marks the object id at point p as handled and recomputes the flags
// of every ancestor entry. It returns the root-to-leaf path of the object so a
// caller can resume from it.
//
// A missing object yields an error wrapping rtree.ErrObjectNotFound.
func (t *Tree) SetHandled(id model.ObjectID, p model.Vector) (rtree.Path, error) {
	path, err := t.FindPathToObject(p, id)
	if err != nil {
		return nil, fmt.Errorf("set handled: %w", err)
	}

	last := path.Last()
	child, err := t.Node(last.Page)
	if err != nil {
		return nil, err
	}
	e := child.Entries[last.Index]
	if e.HasHandled && !e.HasUnhandled {
		return path, nil
	}
	e.HasHandled, e.HasUnhandled = true, false
	if err := t.Store().Put(child); err != nil {
		return nil, err
	}
	t.handled.Add(uint64(id))

	for i := len(path) - 2; i >= 0; i-- {
		parent, err := t.Node(path[i].Page)
		if err != nil {
			return nil, err
		}
		if !t.AdjustEntry(child, parent.Entries[path[i].Index]) {
			break
		}
		if err := t.Store().Put(parent); err != nil {
			return nil, err
		}
		child = parent
	}
	return path, nil
}

// IsHandled reports whether SetHandled was called for id.
func (t *Tree) IsHandled(id model.ObjectID) bool {
	return t.handled.Contains(uint64(id))
}

// Handled returns the set of handled object ids. The bitmap must not be modified.
func (t *Tree) Handled() *roaring64.Bitmap {
	return t.handled
}

// HasUnhandled reports whether any object is still unhandled.
func (t *Tree) HasUnhandled() (bool, error) {
	root, err := t.RootNode()
	if err != nil {
		return false, err
	}
	_, unhandled := flagsOf(root)
	return unhandled, nil
}

// NextUnhandled returns some unhandled object, descending only into subtrees
// whose HasUnhandled flag is set. ok is false when every object is handled.
func (t *Tree) NextUnhandled() (id model.ObjectID, p model.Vector, ok bool, err error) {
	node, err := t.RootNode()
	if err != nil {
		return 0, nil, false, err
	}
	for {
		i := slices.IndexFunc(node.Entries, func(e *Entry) bool { return e.HasUnhandled })
		if i < 0 {
			return 0, nil, false, nil
		}
		e := node.Entries[i]
		if node.Leaf {
			return e.ID, e.Vec, true, nil
		}
		if node, err = t.Node(e.Child); err != nil {
			return 0, nil, false, err
		}
	}
}

// SetExpanded records that the directory nodes a and b were expanded against
// each other. The relation is symmetric.
func (t *Tree) SetExpanded(a, b model.PageID) {
	t.link(a, b)
	t.link(b, a)
}

func (t *Tree) link(a, b model.PageID) {
	set, ok := t.expanded[a]
	if !ok {
		set = make(map[model.PageID]struct{})
		t.expanded[a] = set
	}
	set[b] = struct{}{}
}

// Expanded returns the pages a was expanded against, in ascending order.
func (t *Tree) Expanded(a model.PageID) []model.PageID {
	set := t.expanded[a]
	out := make([]model.PageID, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// IsExpanded reports whether a and b were expanded against each other.
func (t *Tree) IsExpanded(a, b model.PageID) bool {
	_, ok := t.expanded[a][b]
	return ok
}

// ResetExpanded forgets all expansions. Insert, Delete and BulkLoad call it
// because page ids of dissolved nodes are reused.
func (t *Tree) ResetExpanded() {
	clear(t.expanded)
}

// Pair is a pair of entries taken from two expanded nodes.
type Pair struct {
	A, B *Entry
}

// ExpandPair returns the entry pairs of nodes a and b that a self-join still
// has to visit: one side has handled and the other unhandled objects, and
// within(A.Bounds(), B.Bounds()) holds (nil accepts every pair). Pairs of
// directory children already expanded against each other are skipped. For a
// equal to b each unordered pair is produced once. Afterwards a and b are
// recorded as expanded.
func (t *Tree) ExpandPair(a, b model.PageID, within func(x, y model.Box) bool) ([]Pair, error) {
	na, err := t.Node(a)
	if err != nil {
		return nil, err
	}
	nb, err := t.Node(b)
	if err != nil {
		return nil, err
	}
	if na.Leaf != nb.Leaf {
		return nil, fmt.Errorf("expand %v with %v: nodes on different levels", a, b)
	}

	var pairs []Pair
	for i, x := range na.Entries {
		start := 0
		if a == b {
			start = i
		}
		for _, y := range nb.Entries[start:] {
			if !(x.HasHandled && y.HasUnhandled) && !(x.HasUnhandled && y.HasHandled) {
				continue
			}
			if !x.Leaf && t.IsExpanded(x.Child, y.Child) {
				continue
			}
			if within != nil && !within(x.Bounds(), y.Bounds()) {
				continue
			}
			pairs = append(pairs, Pair{A: x, B: y})
		}
	}
	t.SetExpanded(a, b)
	t.logger.Debug("expanded node pair", "a", a, "b", b, "pairs", len(pairs))
	return pairs, nil
}
