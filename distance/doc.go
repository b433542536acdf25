// Package distance provides the distance functions consumed by the spatial index.
//
// A distance function is generic over its result type D (any cmp.Ordered type).
// Functions that can also bound the distance between a query and every point of an
// axis-aligned box implement Spatial and can drive tree searches; all others can
// only be evaluated by a linear scan.
//
// # Supported Functions
//
//   - Euclidean: L2 distance (float64)
//   - SquaredEuclidean: squared L2 distance (float64)
//   - Manhattan: L1 distance (float64)
//   - Maximum: L∞ distance (float64)
//   - SquaredEuclidean32: squared L2 distance accumulated in float32
//   - Cosine: cosine distance (float64, non-spatial)
//
// # Usage
//
//	var fn distance.Spatial[float64] = distance.Euclidean{}
//	d := fn.Distance(a, b)
//	lb := fn.MinDist(box, q) // lb <= d for every point inside box
package distance
