// Package rtree implements a paged, height-balanced R*-tree.
//
// The tree is generic over its entry type. An entry is either a leaf entry (object
// id + point) or a directory entry (child page id + bounding box); specializations
// such as the density-link extension decorate the base entry with additional state
// and keep it consistent through their Kind.
//
// Nodes are never referenced directly by other nodes: directory entries hold page
// ids which the tree resolves through a PageStore, so storage can be swapped between
// memory- and blob-backed implementations without touching tree logic.
//
// A Tree is not safe for concurrent mutation. Concurrent read-only access (queries)
// is safe only while no mutation runs.
package rtree
