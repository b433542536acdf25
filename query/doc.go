// Package query implements the search engines that run over the spatial index.
//
// # Engines
//
//   - TreeKNN: best-first k-nearest-neighbor, range and batched multi-query
//     search over an R-tree, with branch-and-bound pruning on box distances
//   - LinearScan: the same operations by scanning a relation
//
// Both engines share one tie policy: every neighbor at the k-th distance is
// returned, so a result may be longer than k. On identical inputs they return
// identical lists.
//
// # Planning
//
// NewTreeKNN returns nil for distance functions that cannot bound boxes.
// NewSearcher picks the tree engine when possible and falls back to LinearScan.
//
// # Statistics
//
// Every query returns a Stats value counting the work it did. There is no
// shared counter, so concurrent read-only queries do not interfere.
package query
