// Package pagestore provides a persistent rtree.PageStore on top of a blobstore.
//
// Nodes are encoded with a codec (go-json by default), compressed with LZ4 or
// Zstandard and written as one blob per page under "<prefix>pages/". The tree is
// unaware of persistence: Put and Free only mark pages, and Flush makes the
// current state durable together with the tree's Meta.
//
//	blobs := blobstore.NewLocalStore(dir)
//	pages, _ := pagestore.New[*rtree.SpatialEntry](blobs)
//	tree, _ := rtree.New[*rtree.SpatialEntry](rtree.SpatialKind{}, pages)
//	// ... insert ...
//	_ = pages.Flush(ctx, tree.Meta())
//
//	pages, meta, _ := pagestore.Open[*rtree.SpatialEntry](ctx, blobs)
//	tree, _ := rtree.Open[*rtree.SpatialEntry](rtree.SpatialKind{}, pages, meta)
package pagestore
