package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialknn/distance"
	"github.com/hupe1980/spatialknn/model"
)

func TestUniformPoints(t *testing.T) {
	rng := NewRNG(4711)

	p := rng.UniformPoints(8, 3)

	assert.Equal(t, 8, len(p))
	assert.Equal(t, 3, len(p[0]))
	for _, v := range p {
		for _, x := range v {
			assert.GreaterOrEqual(t, x, 0.0)
			assert.Less(t, x, 1.0)
		}
	}
}

func TestGridPoints(t *testing.T) {
	rng := NewRNG(4711)

	p := rng.GridPoints(50, 2, 4)

	require.Len(t, p, 50)
	for _, v := range p {
		for _, x := range v {
			assert.Equal(t, float64(int(x)), x)
			assert.Less(t, x, 4.0)
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformPoints(1, 10)
	rng.Reset()
	v2 := rng.UniformPoints(1, 10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestExactKNN(t *testing.T) {
	ids := []model.ObjectID{1, 2, 3}
	points := []model.Vector{{0}, {1}, {-1}}

	t.Run("ties extend result", func(t *testing.T) {
		got := ExactKNN[float64](distance.Euclidean{}, ids[1:], points[1:], model.Vector{0}, 1)
		require.Len(t, got, 2)
		assert.Equal(t, model.ObjectID(2), got[0].ID)
		assert.Equal(t, model.ObjectID(3), got[1].ID)
	})

	t.Run("fewer points than k", func(t *testing.T) {
		got := ExactKNN[float64](distance.Euclidean{}, ids, points, model.Vector{0}, 10)
		assert.Len(t, got, 3)
	})
}

func TestExactRange(t *testing.T) {
	ids := []model.ObjectID{1, 2, 3}
	points := []model.Vector{{0}, {1}, {3}}

	got := ExactRange[float64](distance.Euclidean{}, ids, points, model.Vector{0.5}, 0.5)

	require.Len(t, got, 2)
	assert.Equal(t, 0.5, got[0].Distance)
	assert.Equal(t, 0.5, got[1].Distance)
}
