// Package testutil provides testing utilities for spatialknn.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point sets and computing exact
// nearest neighbors and range matches by linear scan.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	points := rng.UniformPoints(1000, 3)   // uniform [0, 1)
//	grid := rng.GridPoints(1000, 2, 10)    // integer coordinates, many ties
//
// # Exact Search (Ground Truth)
//
//	want := testutil.ExactKNN(distance.Euclidean{}, ids, points, q, k)
//	hits := testutil.ExactRange(distance.Euclidean{}, ids, points, q, eps)
package testutil
