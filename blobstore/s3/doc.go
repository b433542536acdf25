// Package s3 provides an Amazon S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	blobs, err := s3.NewFromDefaultConfig(ctx, "my-bucket", "indexes/points/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pages, err := pagestore.New[*rtree.SpatialEntry](blobs)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
