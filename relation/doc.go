// Package relation provides the object store the index is built over: a
// mapping from object id to vector.
//
// The index never mutates a relation. Whoever changes a relation must call the
// index's Insert and Delete for the same objects; the root spatialknn.Index does
// this for its callers.
//
// Two implementations are provided:
//
//   - Memory: map-backed, for tests and transient data
//   - SQLite: persistent, backed by modernc.org/sqlite (pure Go, no cgo)
package relation
