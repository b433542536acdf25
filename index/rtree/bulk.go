package rtree

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/spatialknn/model"
)

// BulkLoad builds the tree bottom-up from the given objects using
// Sort-Tile-Recursive packing. The tree must be empty.
//
// Every level is cut into the minimal number of nodes with sizes differing by at
// most one, so all nodes satisfy the same fill bounds as after incremental inserts.
func (t *Tree[E]) BulkLoad(ids []model.ObjectID, points []model.Vector) error {
	if t.size > 0 {
		return ErrNotEmpty
	}
	if len(ids) != len(points) {
		return fmt.Errorf("bulk load: %d ids for %d points", len(ids), len(points))
	}
	if len(ids) == 0 {
		return nil
	}
	dim := t.dim
	if dim == 0 {
		dim = len(points[0])
	}
	entries := make([]E, len(ids))
	for i, p := range points {
		if len(p) != dim || dim == 0 {
			return &ErrDimensionMismatch{Expected: dim, Actual: len(p)}
		}
		entries[i] = t.kind.NewLeaf(ids[i], p.Clone())
	}

	if err := t.store.Free(t.root); err != nil {
		return err
	}

	leaf := true
	height := 1
	for {
		capacity := t.opts.DirCapacity
		if leaf {
			capacity = t.opts.LeafCapacity
		}
		groups := packGroups(entries, capacity, dim)

		parents := make([]E, 0, len(groups))
		var last *Node[E]
		for _, g := range groups {
			n, err := t.newNode(leaf)
			if err != nil {
				return err
			}
			n.Entries = append(n.Entries, g...)
			if err := t.store.Put(n); err != nil {
				return err
			}
			parents = append(parents, t.newDirectoryEntry(n))
			last = n
		}

		if len(groups) == 1 {
			t.root = last.ID
			break
		}
		entries = parents
		leaf = false
		height++
	}

	t.height = height
	t.size = len(ids)
	t.dim = dim
	t.logger.Debug("bulk load", "objects", len(ids), "height", height)
	return nil
}

// packGroups orders entries by Sort-Tile-Recursive and cuts them into the
// minimal number of groups of at most capacity entries.
func packGroups[E Entry](entries []E, capacity, dim int) [][]E {
	n := len(entries)
	groups := (n + capacity - 1) / capacity

	bounds := make([]int, groups+1)
	base, extra := n/groups, n%groups
	for g := 0; g < groups; g++ {
		size := base
		if g < extra {
			size++
		}
		bounds[g+1] = bounds[g] + size
	}
	strSort(entries, 0, dim, bounds)

	out := make([][]E, groups)
	for g := range out {
		out[g] = entries[bounds[g]:bounds[g+1]]
	}
	return out
}

// strSort sorts entries by center along axis, cuts them into slabs of whole
// groups and recurses into each slab along the next axis. bounds holds the
// group boundaries relative to entries.
func strSort[E Entry](entries []E, axis, dim int, bounds []int) {
	slices.SortStableFunc(entries, func(a, b E) int {
		return cmp.Compare(a.Bounds().Center(axis), b.Bounds().Center(axis))
	})
	groups := len(bounds) - 1
	if axis >= dim-1 || groups <= 1 {
		return
	}
	slabs := int(math.Ceil(math.Pow(float64(groups), 1/float64(dim-axis))))
	perSlab := (groups + slabs - 1) / slabs
	for g := 0; g < groups; g += perSlab {
		end := min(g+perSlab, groups)
		sub := make([]int, end-g+1)
		for i := range sub {
			sub[i] = bounds[g+i] - bounds[g]
		}
		strSort(entries[bounds[g]:bounds[end]], axis+1, dim, sub)
	}
}
