// Package dlink extends the R-tree with the bookkeeping needed by incremental
// spatial self-joins, as run by density-reachability clustering.
//
// Every entry carries two flags. A leaf entry is either handled (its object has
// produced a reachability value) or unhandled. A directory entry's HasHandled and
// HasUnhandled are the logical OR of the same flags over its child node, and are
// recomputed bottom-up after every mutation. A join can therefore skip every
// subtree whose HasUnhandled is false.
//
// The tree also memoizes which pairs of directory nodes have already been
// expanded against each other, keyed by unordered page id pairs.
//
// The extension never removes or reorders data.
package dlink
