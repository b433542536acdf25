// Package spatialknn provides an embedded spatial index for exact k-nearest
// neighbor and range queries over fixed-dimension vectors.
//
// An Index keeps three things in sync: a relation mapping object ids to
// vectors, a paged R-tree over those vectors, and an optional cache holding the
// k nearest neighbors of every stored object.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := spatialknn.New(ctx, 2)
//	defer idx.Close()
//
//	_ = idx.Insert(ctx, 1, model.Vector{0, 0})
//	_ = idx.Insert(ctx, 2, model.Vector{1, 0})
//
//	res, _ := idx.KNN(ctx, model.Vector{0.2, 0}, 1)
//	for id, d := range res.All() {
//		fmt.Println(id, d)
//	}
//
// # Ties
//
// KNN results contain every object whose distance equals the k-th distance, so
// a result may hold more than k neighbors. Results are ordered by distance and
// then by id.
//
// # Bulk Loading
//
// InsertBatch on an empty index builds the tree bottom-up with sort-tile-recursive
// packing. Later batches are inserted one by one with R* splits.
//
// # KNN Cache
//
// WithKNNCache keeps the neighbor list of every object. The cache is built on
// the first Neighbors call; afterwards Insert and Delete repair only the lists
// they affect and report them to listeners registered with OnNeighborsChanged.
//
// # Persistence
//
// WithPageStore writes tree pages to a blobstore.BlobStore (local files, MinIO
// or S3) on Flush and Close. Combined with a persistent relation such as
// relation.SQLite, New reopens the index without rebuilding:
//
//	rel, _ := relation.OpenSQLite(ctx, "file:objects.db", 2)
//	blobs := blobstore.NewLocalStore("./pages")
//	idx, _ := spatialknn.New(ctx, 2,
//		spatialknn.WithRelation(rel),
//		spatialknn.WithPageStore(blobs),
//	)
//
// # Observability
//
// WithLogger and WithMetricsCollector hook into every operation. The
// metrics/prometheus package exports a Prometheus collector.
package spatialknn
