// Package model defines core types used throughout spatialknn.
//
// # Identity Types
//
//   - ObjectID: opaque, caller-assigned identifier of a stored object (uint64)
//   - PageID: identifier of a tree node inside a page store (uint64)
//
// # Geometry
//
//   - Vector: fixed-dimension point (float64 coordinates)
//   - Box: axis-aligned minimum bounding rectangle
//
// Boxes are value types. Union returns a fresh box; Extend grows a box in place
// and must only be used on boxes that own their slices.
package model
