// Package knncache maintains the k nearest neighbors of every object in a
// relation while objects are inserted and deleted.
//
// A Cache starts Uninitialized. The first Get (or an explicit Materialize)
// computes every list with one batched query and moves it to Materialized;
// there is no way back. While materialized, every cached list equals a fresh
// KNN query for its object, provided the caller reports every relation change
// through Insert and Delete after updating the relation and the index.
//
// Insert only touches objects whose k-th distance admits one of the new
// objects, and merges the new candidates into their lists. Delete recomputes,
// from scratch, every object whose list referenced a removed object. A reverse
// neighbor index (one roaring bitmap per object) finds those objects without a
// scan.
package knncache
