package distance

import "github.com/hupe1980/spatialknn/model"

// Convert re-types a float64 spatial function to a named float type D.
// Results are bit-identical to fn; only the static type changes.
func Convert[D ~float64](fn Spatial[float64]) Spatial[D] {
	return converted[D]{fn: fn}
}

type converted[D ~float64] struct {
	fn Spatial[float64]
}

func (c converted[D]) Name() string { return c.fn.Name() }
func (c converted[D]) Infinity() D  { return D(c.fn.Infinity()) }
func (c converted[D]) Zero() D      { return D(c.fn.Zero()) }

func (c converted[D]) Distance(a, b model.Vector) D {
	return D(c.fn.Distance(a, b))
}

func (c converted[D]) MinDist(b model.Box, q model.Vector) D {
	return D(c.fn.MinDist(b, q))
}
