package dlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/model"
	"github.com/hupe1980/spatialknn/testutil"
)

func newTree(t *testing.T, capacity int) *Tree {
	t.Helper()
	tree, err := New(nil, func(o *rtree.Options) {
		o.LeafCapacity = capacity
		o.DirCapacity = capacity
	})
	require.NoError(t, err)
	return tree
}

func rootHasUnhandled(t *testing.T, tree *Tree) bool {
	t.Helper()
	e, err := tree.RootEntry()
	require.NoError(t, err)
	return e.HasUnhandled
}

func TestSetHandledPropagatesToRoot(t *testing.T) {
	tree := newTree(t, 3)
	points := []model.Vector{{0, 0}, {0, 1}, {10, 0}, {10, 1}}
	ids := testutil.SequentialIDs(4)
	require.NoError(t, tree.BulkLoad(ids, points))
	require.Equal(t, 2, tree.Height())

	root, err := tree.RootNode()
	require.NoError(t, err)
	require.Equal(t, 2, root.Len())

	for i := range 3 {
		path, err := tree.SetHandled(ids[i], points[i])
		require.NoError(t, err)
		assert.Equal(t, 2, path.Len())
		assert.True(t, rootHasUnhandled(t, tree), "after %d calls", i+1)
		require.NoError(t, tree.Validate())
	}

	_, err = tree.SetHandled(ids[3], points[3])
	require.NoError(t, err)
	assert.False(t, rootHasUnhandled(t, tree))
	require.NoError(t, tree.Validate())

	unhandled, err := tree.HasUnhandled()
	require.NoError(t, err)
	assert.False(t, unhandled)
	assert.Equal(t, uint64(4), tree.Handled().GetCardinality())
}

func TestSetHandledNotFound(t *testing.T) {
	tree := newTree(t, 3)
	require.NoError(t, tree.Insert(1, model.Vector{0}))

	_, err := tree.SetHandled(2, model.Vector{0})
	assert.ErrorIs(t, err, rtree.ErrObjectNotFound)
	assert.False(t, tree.IsHandled(2))
}

func TestFlagsSurviveRestructuring(t *testing.T) {
	rng := testutil.NewRNG(99)
	tree := newTree(t, 4)
	points := rng.UniformPoints(200, 2)
	for i, p := range points {
		require.NoError(t, tree.Insert(model.ObjectID(i+1), p))
	}
	for i := 0; i < 200; i += 2 {
		_, err := tree.SetHandled(model.ObjectID(i+1), points[i])
		require.NoError(t, err)
	}
	require.NoError(t, tree.Validate())

	for i := 1; i < 200; i += 4 {
		require.NoError(t, tree.Delete(model.ObjectID(i+1), points[i]))
	}
	require.NoError(t, tree.Validate())

	for i, p := range rng.UniformPoints(50, 2) {
		require.NoError(t, tree.Insert(model.ObjectID(1000+i), p))
	}
	require.NoError(t, tree.Validate())

	seen := 0
	for {
		id, p, ok, err := tree.NextUnhandled()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.False(t, tree.IsHandled(id))
		_, err = tree.SetHandled(id, p)
		require.NoError(t, err)
		seen++
	}
	assert.Equal(t, 50+50, seen)
	require.NoError(t, tree.Validate())
}

func TestExpanded(t *testing.T) {
	tree := newTree(t, 3)

	tree.SetExpanded(1, 2)
	tree.SetExpanded(3, 1)

	assert.True(t, tree.IsExpanded(2, 1))
	assert.True(t, tree.IsExpanded(1, 3))
	assert.False(t, tree.IsExpanded(2, 3))
	assert.Equal(t, []model.PageID{2, 3}, tree.Expanded(1))
	assert.Empty(t, tree.Expanded(9))

	tree.ResetExpanded()
	assert.False(t, tree.IsExpanded(1, 2))
}

func TestExpandedClearedOnRestructure(t *testing.T) {
	points := []model.Vector{{0, 0}, {0, 1}, {10, 0}, {10, 1}}
	ids := testutil.SequentialIDs(4)

	t.Run("reused page ids", func(t *testing.T) {
		tree := newTree(t, 3)
		require.NoError(t, tree.BulkLoad(ids, points))
		root, err := tree.RootNode()
		require.NoError(t, err)
		a, b := root.Entries[0].Child, root.Entries[1].Child
		tree.SetExpanded(a, b)

		for i, id := range ids {
			require.NoError(t, tree.Delete(id, points[i]))
		}
		for i := range points {
			require.NoError(t, tree.Insert(model.ObjectID(10+i), points[i]))
		}
		require.NoError(t, tree.Validate())

		root, err = tree.RootNode()
		require.NoError(t, err)
		require.Equal(t, 2, root.Len())
		assert.False(t, tree.IsExpanded(a, b))
		assert.False(t, tree.IsExpanded(root.Entries[0].Child, root.Entries[1].Child))
		assert.Empty(t, tree.Expanded(a))
	})

	t.Run("insert", func(t *testing.T) {
		tree := newTree(t, 3)
		require.NoError(t, tree.BulkLoad(ids, points))
		tree.SetExpanded(1, 2)
		require.NoError(t, tree.Insert(9, model.Vector{5, 5}))
		assert.False(t, tree.IsExpanded(1, 2))
	})

	t.Run("bulk load", func(t *testing.T) {
		tree := newTree(t, 3)
		tree.SetExpanded(1, 2)
		require.NoError(t, tree.BulkLoad(ids, points))
		assert.False(t, tree.IsExpanded(1, 2))
	})

	t.Run("failed delete keeps memo", func(t *testing.T) {
		tree := newTree(t, 3)
		require.NoError(t, tree.BulkLoad(ids, points))
		tree.SetExpanded(1, 2)
		require.Error(t, tree.Delete(99, model.Vector{3, 3}))
		assert.True(t, tree.IsExpanded(1, 2))
	})
}

func TestExpandPair(t *testing.T) {
	tree := newTree(t, 3)
	points := []model.Vector{{0, 0}, {0, 1}, {10, 0}, {10, 1}}
	ids := testutil.SequentialIDs(4)
	require.NoError(t, tree.BulkLoad(ids, points))
	root, err := tree.RootNode()
	require.NoError(t, err)

	t.Run("nothing handled", func(t *testing.T) {
		pairs, err := tree.ExpandPair(root.ID, root.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, pairs)
	})

	_, err = tree.SetHandled(ids[0], points[0])
	require.NoError(t, err)
	tree.ResetExpanded()

	t.Run("mixed flags", func(t *testing.T) {
		pairs, err := tree.ExpandPair(root.ID, root.ID, nil)
		require.NoError(t, err)
		// the first leaf has handled and unhandled objects: pairs with itself and
		// with the second leaf qualify
		assert.Len(t, pairs, 2)
		assert.True(t, tree.IsExpanded(root.ID, root.ID))
	})

	t.Run("skips expanded children", func(t *testing.T) {
		tree.SetExpanded(root.Entries[0].Child, root.Entries[1].Child)
		pairs, err := tree.ExpandPair(root.ID, root.ID, nil)
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	})

	t.Run("distance predicate", func(t *testing.T) {
		tree.ResetExpanded()
		near := func(x, y model.Box) bool { return x.Overlap(y) > 0 || x.Equal(y) }
		pairs, err := tree.ExpandPair(root.ID, root.ID, near)
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	})

	t.Run("leaf pair", func(t *testing.T) {
		leaf := root.Entries[0].Child
		pairs, err := tree.ExpandPair(leaf, leaf, nil)
		require.NoError(t, err)
		// object 1 is handled, object 2 is not
		assert.Len(t, pairs, 1)
	})
}
