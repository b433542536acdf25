package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/index/dlink"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
	"github.com/hupe1980/spatialknn/relation"
	"github.com/hupe1980/spatialknn/testutil"
)

type fixture struct {
	ids    []model.ObjectID
	points []model.Vector
	tree   *rtree.Tree[*rtree.SpatialEntry]
	rel    *relation.Memory
}

func newFixture(t *testing.T, points []model.Vector, capacity int, bulk bool) *fixture {
	t.Helper()
	tree, err := rtree.NewSpatial(func(o *rtree.Options) {
		o.LeafCapacity = capacity
		o.DirCapacity = capacity
	})
	require.NoError(t, err)

	ids := testutil.SequentialIDs(len(points))
	rel := relation.NewMemory(0)
	for i, p := range points {
		require.NoError(t, rel.Insert(ids[i], p))
	}
	if bulk {
		require.NoError(t, tree.BulkLoad(ids, points))
	} else {
		for i, p := range points {
			require.NoError(t, tree.Insert(ids[i], p))
		}
	}
	return &fixture{ids: ids, points: points, tree: tree, rel: rel}
}

func line(xs ...float64) []model.Vector {
	out := make([]model.Vector, len(xs))
	for i, x := range xs {
		out[i] = model.Vector{x}
	}
	return out
}

func requireNeighbors[D float32 | float64](t *testing.T, want []knn.Neighbor[D], got knn.List[D]) {
	t.Helper()
	require.Equal(t, len(want), got.Len())
	for i, n := range want {
		assert.Equal(t, n, got.At(i), "position %d", i)
	}
}

func TestKNNMatchesExact(t *testing.T) {
	rng := testutil.NewRNG(4711)
	fns := []distance.Spatial[float64]{distance.Euclidean{}, distance.SquaredEuclidean{}, distance.Manhattan{}, distance.Maximum{}}

	datasets := map[string][]model.Vector{
		"grid":      rng.GridPoints(600, 2, 12),
		"uniform":   rng.UniformPoints(600, 3),
		"clustered": rng.ClusteredPoints(600, 2, 5, 0.05),
	}
	for name, points := range datasets {
		for _, bulk := range []bool{false, true} {
			f := newFixture(t, points, 6, bulk)
			dim := len(points[0])
			queries := append(rng.GridPoints(10, dim, 12), rng.UniformPoints(10, dim)...)
			queries = append(queries, points[0], points[17])

			for _, fn := range fns {
				engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, fn)
				require.NotNil(t, engine)
				scan := NewLinearScan[float64](f.rel, fn)

				t.Run(name+"/"+fn.Name(), func(t *testing.T) {
					for _, q := range queries {
						for _, k := range []int{1, 4, 13} {
							got, _, err := engine.KNN(q, k)
							require.NoError(t, err)
							requireNeighbors(t, testutil.ExactKNN[float64](fn, f.ids, f.points, q, k), got)

							linear, _, err := scan.KNN(q, k)
							require.NoError(t, err)
							assert.True(t, got.Equal(linear))
						}
					}
				})
			}
		}
	}
}

func TestKNNTies(t *testing.T) {
	t.Run("equidistant pair", func(t *testing.T) {
		// B=1, F=-1
		f := newFixture(t, line(1, -1), 4, false)
		engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})

		got, _, err := engine.KNN(model.Vector{0}, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Len())
		assert.Equal(t, []model.ObjectID{1, 2}, got.AsIDs())
		assert.Equal(t, []float64{1, 1}, got.AsDistances())
		assert.Equal(t, 1.0, got.KNNDistance())
	})

	t.Run("equidistant pair behind exact match", func(t *testing.T) {
		// A=0, B=1, F=-1
		f := newFixture(t, line(0, 1, -1), 4, false)
		engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})

		got, _, err := engine.KNN(model.Vector{0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []model.ObjectID{1, 2, 3}, got.AsIDs())
	})

	// A=0, B=1, C=2, D=3
	f := newFixture(t, line(0, 1, 2, 3), 3, false)
	engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})

	t.Run("no tie at boundary", func(t *testing.T) {
		got, _, err := engine.KNN(model.Vector{0.9}, 2)
		require.NoError(t, err)
		assert.Equal(t, []model.ObjectID{2, 1}, got.AsIDs())
	})

	t.Run("tie at boundary", func(t *testing.T) {
		got, _, err := engine.KNN(model.Vector{1}, 2)
		require.NoError(t, err)
		assert.Equal(t, []model.ObjectID{2, 1, 3}, got.AsIDs())
		assert.Equal(t, []float64{0, 1, 1}, got.AsDistances())
	})
}

func TestKNNEdgeCases(t *testing.T) {
	empty := newFixture(t, nil, 4, false)
	engine := NewTreeKNN[*rtree.SpatialEntry, float64](empty.tree, distance.Euclidean{})

	t.Run("empty index", func(t *testing.T) {
		got, _, err := engine.KNN(model.Vector{1, 2}, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
		assert.True(t, math.IsInf(got.KNNDistance(), 1))

		lists, _, err := engine.BatchKNN([]model.Vector{{1}, {2}}, 3)
		require.NoError(t, err)
		require.Len(t, lists, 2)
		assert.Equal(t, 0, lists[1].Len())
	})

	t.Run("invalid k", func(t *testing.T) {
		_, _, err := engine.KNN(model.Vector{1}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
		_, _, err = engine.BatchKNN([]model.Vector{{1}}, -1)
		assert.ErrorIs(t, err, ErrInvalidK)
		_, _, err = NewLinearScan[float64](empty.rel, distance.Euclidean{}).KNN(model.Vector{1}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	f := newFixture(t, line(0, 1, 5), 4, false)
	engine = NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})

	t.Run("fewer objects than k", func(t *testing.T) {
		got, _, err := engine.KNN(model.Vector{0}, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
		assert.True(t, math.IsInf(got.KNNDistance(), 1))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, _, err := engine.KNN(model.Vector{0, 0}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		_, _, err = engine.Range(model.Vector{0, 0}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("negative epsilon", func(t *testing.T) {
		_, _, err := engine.Range(model.Vector{0}, -1)
		assert.ErrorIs(t, err, ErrInvalidEpsilon)
	})
}

func TestRange(t *testing.T) {
	rng := testutil.NewRNG(3)
	points := rng.UniformPoints(500, 2)
	f := newFixture(t, points, 5, false)

	for _, fn := range []distance.Spatial[float64]{distance.Euclidean{}, distance.Manhattan{}} {
		engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, fn)
		scan := NewLinearScan[float64](f.rel, fn)

		for _, eps := range []float64{0, 0.05, 0.2, 2} {
			q := rng.UniformPoint(2)
			got, stats, err := engine.Range(q, eps)
			require.NoError(t, err)
			requireNeighbors(t, testutil.ExactRange[float64](fn, f.ids, f.points, q, eps), got)
			assert.Positive(t, stats.NodeVisits)

			linear, _, err := scan.Range(q, eps)
			require.NoError(t, err)
			assert.True(t, got.Equal(linear))
		}
	}

	t.Run("exact point", func(t *testing.T) {
		engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})
		got, _, err := engine.Range(points[9], 0)
		require.NoError(t, err)
		assert.True(t, got.Contains(f.ids[9]))
	})
}

func TestBatchKNN(t *testing.T) {
	rng := testutil.NewRNG(11)
	f := newFixture(t, rng.GridPoints(800, 2, 20), 8, true)
	engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})
	scan := NewLinearScan[float64](f.rel, distance.Euclidean{})
	queries := append(rng.GridPoints(30, 2, 20), rng.UniformPoints(30, 2)...)

	for _, k := range []int{1, 7} {
		batch, _, err := engine.BatchKNN(queries, k)
		require.NoError(t, err)
		linear, _, err := scan.BatchKNN(queries, k)
		require.NoError(t, err)
		require.Len(t, batch, len(queries))

		for i, q := range queries {
			single, _, err := engine.KNN(q, k)
			require.NoError(t, err)
			assert.True(t, single.Equal(batch[i]), "query %d", i)
			assert.True(t, single.Equal(linear[i]), "query %d", i)
		}
	}

	t.Run("parallel", func(t *testing.T) {
		par, stats, err := ParallelBatchKNN[float64](context.Background(), engine, queries, 5, 7, 3)
		require.NoError(t, err)
		seq, seqStats, err := engine.BatchKNN(queries, 5)
		require.NoError(t, err)
		require.Len(t, par, len(queries))
		for i := range queries {
			assert.True(t, seq[i].Equal(par[i]))
		}
		assert.Positive(t, stats.NodeVisits)
		assert.Positive(t, seqStats.NodeVisits)
	})

	t.Run("parallel canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := ParallelBatchKNN[float64](ctx, engine, queries, 5, 7, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPruning(t *testing.T) {
	rng := testutil.NewRNG(5)
	f := newFixture(t, rng.UniformPoints(3000, 2), 16, true)
	engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})

	_, stats, err := engine.KNN(model.Vector{0.5, 0.5}, 1)
	require.NoError(t, err)
	assert.Less(t, stats.DistanceComputations, int64(3000/4))
	assert.Positive(t, stats.PrunedChildren)
}

func TestPlanner(t *testing.T) {
	f := newFixture(t, line(0, 1, 2), 4, false)

	assert.Nil(t, NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Cosine{}))

	s := NewSearcher[*rtree.SpatialEntry, float64](f.tree, f.rel, distance.Cosine{})
	_, ok := s.(*LinearScan[float64])
	assert.True(t, ok)

	s = NewSearcher[*rtree.SpatialEntry, float64](f.tree, f.rel, distance.Euclidean{})
	_, ok = s.(*TreeKNN[*rtree.SpatialEntry, float64])
	assert.True(t, ok)

	t.Run("cosine scan", func(t *testing.T) {
		rel := relation.NewMemory(2)
		require.NoError(t, rel.Insert(1, model.Vector{1, 0}))
		require.NoError(t, rel.Insert(2, model.Vector{0, 1}))
		require.NoError(t, rel.Insert(3, model.Vector{2, 0.1}))

		got, _, err := NewLinearScan[float64](rel, distance.Cosine{}).KNN(model.Vector{1, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []model.ObjectID{1, 3}, got.AsIDs())
	})
}

type meters float64

func TestGenericDistanceTypes(t *testing.T) {
	rng := testutil.NewRNG(21)
	f := newFixture(t, rng.UniformPoints(400, 3), 6, false)
	queries := rng.UniformPoints(10, 3)

	plain := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})
	named := NewTreeKNN[*rtree.SpatialEntry, meters](f.tree, distance.Convert[meters](distance.Euclidean{}))
	compact := NewTreeKNN[*rtree.SpatialEntry, float32](f.tree, distance.SquaredEuclidean32{})

	for _, q := range queries {
		a, _, err := plain.KNN(q, 5)
		require.NoError(t, err)
		b, _, err := named.KNN(q, 5)
		require.NoError(t, err)
		require.Equal(t, a.Len(), b.Len())
		assert.Equal(t, a.AsIDs(), b.AsIDs())
		for i, d := range a.AsDistances() {
			assert.Equal(t, math.Float64bits(d), math.Float64bits(float64(b.AsDistances()[i])))
		}

		c, _, err := compact.KNN(q, 5)
		require.NoError(t, err)
		requireNeighbors(t, testutil.ExactKNN[float32](distance.SquaredEuclidean32{}, f.ids, f.points, q, 5), c)
	}
}

func TestJoinTree(t *testing.T) {
	rng := testutil.NewRNG(8)
	points := rng.UniformPoints(200, 2)
	tree, err := dlink.New(nil, func(o *rtree.Options) {
		o.LeafCapacity = 5
		o.DirCapacity = 5
	})
	require.NoError(t, err)
	ids := testutil.SequentialIDs(len(points))
	require.NoError(t, tree.BulkLoad(ids, points))

	engine := NewTreeKNN[*dlink.Entry, float64](tree, distance.Euclidean{})
	q := model.Vector{0.3, 0.3}
	got, _, err := engine.KNN(q, 6)
	require.NoError(t, err)
	requireNeighbors(t, testutil.ExactKNN[float64](distance.Euclidean{}, ids, points, q, 6), got)
}

func TestInsertDeleteEquivalence(t *testing.T) {
	rng := testutil.NewRNG(13)
	f := newFixture(t, rng.UniformPoints(300, 2), 4, false)
	engine := NewTreeKNN[*rtree.SpatialEntry, float64](f.tree, distance.Euclidean{})
	queries := rng.UniformPoints(20, 2)

	before := make([]knn.List[float64], len(queries))
	for i, q := range queries {
		l, _, err := engine.KNN(q, 5)
		require.NoError(t, err)
		before[i] = l
	}

	extra := rng.UniformPoints(40, 2)
	for i, p := range extra {
		require.NoError(t, f.tree.Insert(model.ObjectID(10_000+i), p))
	}
	for i, p := range extra {
		require.NoError(t, f.tree.Delete(model.ObjectID(10_000+i), p))
	}
	require.NoError(t, f.tree.Validate())

	for i, q := range queries {
		l, _, err := engine.KNN(q, 5)
		require.NoError(t, err)
		assert.True(t, before[i].Equal(l))
	}
}
