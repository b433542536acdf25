// Package knn implements the bounded top-k heap used by every nearest-neighbor
// search and the immutable result lists it produces.
//
// The heap keeps the k smallest candidates and, in addition, every candidate whose
// distance equals the k-th distance. A result can therefore be longer than k, but no
// neighbor at the boundary distance is ever dropped arbitrarily.
package knn
