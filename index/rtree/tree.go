package rtree

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/spatialknn/model"
)

// Tree is a paged R*-tree over entries of type E.
type Tree[E Entry] struct {
	kind   Kind[E]
	store  PageStore[E]
	opts   Options
	logger *slog.Logger

	root   model.PageID
	height int // number of levels; 1 means the root is a leaf
	size   int
	dim    int

	leafMin int
	dirMin  int
}

// Meta is the state needed to reopen a tree over a persistent page store.
type Meta struct {
	Root      model.PageID `json:"root"`
	Height    int          `json:"height"`
	Size      int          `json:"size"`
	Dimension int          `json:"dimension"`
}

// New creates an empty tree. A nil store selects a MemoryStore.
func New[E Entry](kind Kind[E], store PageStore[E], optFns ...func(o *Options)) (*Tree[E], error) {
	t, err := newTree(kind, store, optFns...)
	if err != nil {
		return nil, err
	}
	root, err := t.newNode(true)
	if err != nil {
		return nil, err
	}
	t.root = root.ID
	t.height = 1
	return t, nil
}

// NewSpatial creates an empty plain R-tree backed by a MemoryStore.
func NewSpatial(optFns ...func(o *Options)) (*Tree[*SpatialEntry], error) {
	return New[*SpatialEntry](SpatialKind{}, nil, optFns...)
}

// Open attaches a tree to a store that already holds its pages.
func Open[E Entry](kind Kind[E], store PageStore[E], meta Meta, optFns ...func(o *Options)) (*Tree[E], error) {
	t, err := newTree(kind, store, optFns...)
	if err != nil {
		return nil, err
	}
	if _, err := store.Get(meta.Root); err != nil {
		return nil, fmt.Errorf("open tree: %w", err)
	}
	t.root = meta.Root
	t.height = meta.Height
	t.size = meta.Size
	t.dim = meta.Dimension
	return t, nil
}

func newTree[E Entry](kind Kind[E], store PageStore[E], optFns ...func(o *Options)) (*Tree[E], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemoryStore[E]()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tree[E]{
		kind:    kind,
		store:   store,
		opts:    opts,
		logger:  logger,
		dim:     opts.Dimension,
		leafMin: minFill(opts.LeafCapacity, opts.MinFillRatio),
		dirMin:  minFill(opts.DirCapacity, opts.MinFillRatio),
	}, nil
}

// Root returns the root page id.
func (t *Tree[E]) Root() model.PageID { return t.root }

// Height returns the number of levels (1 for a single leaf root).
func (t *Tree[E]) Height() int { return t.height }

// Len returns the number of stored objects.
func (t *Tree[E]) Len() int { return t.size }

// Dimension returns the point dimensionality, or 0 while unknown.
func (t *Tree[E]) Dimension() int { return t.dim }

// Kind returns the entry kind.
func (t *Tree[E]) Kind() Kind[E] { return t.kind }

// Store returns the page store.
func (t *Tree[E]) Store() PageStore[E] { return t.store }

// Meta returns the state needed to Open the tree again.
func (t *Tree[E]) Meta() Meta {
	return Meta{Root: t.root, Height: t.height, Size: t.size, Dimension: t.dim}
}

// Node resolves a page id through the page store.
func (t *Tree[E]) Node(id model.PageID) (*Node[E], error) {
	return t.store.Get(id)
}

// RootNode returns the root node.
func (t *Tree[E]) RootNode() (*Node[E], error) {
	return t.store.Get(t.root)
}

// AdjustEntry recomputes e from the current contents of child and reports
// whether anything changed.
func (t *Tree[E]) AdjustEntry(child *Node[E], e E) bool {
	return t.kind.Adjust(e, child)
}

// RootEntry returns a directory entry describing the whole tree.
func (t *Tree[E]) RootEntry() (E, error) {
	var zero E
	root, err := t.RootNode()
	if err != nil {
		return zero, err
	}
	e := t.kind.NewDirectory(root.ID)
	t.kind.Adjust(e, root)
	return e, nil
}

func (t *Tree[E]) newNode(leaf bool) (*Node[E], error) {
	id, err := t.store.Allocate()
	if err != nil {
		return nil, err
	}
	var n *Node[E]
	if leaf {
		n = NewNode[E](id, true, t.opts.LeafCapacity, t.leafMin)
	} else {
		n = NewNode[E](id, false, t.opts.DirCapacity, t.dirMin)
	}
	if err := t.store.Put(n); err != nil {
		return nil, err
	}
	return n, nil
}

// newDirectoryEntry returns an adjusted directory entry for child.
func (t *Tree[E]) newDirectoryEntry(child *Node[E]) E {
	e := t.kind.NewDirectory(child.ID)
	t.kind.Adjust(e, child)
	return e
}

func (t *Tree[E]) checkDim(p model.Vector) error {
	if t.dim == 0 {
		if len(p) == 0 {
			return &ErrDimensionMismatch{Expected: 1, Actual: 0}
		}
		return nil
	}
	if len(p) != t.dim {
		return &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
	}
	return nil
}

// levelOf returns the level of the node at path depth d (0 = leaves).
func (t *Tree[E]) levelOf(depth int) int {
	return t.height - 1 - depth
}
