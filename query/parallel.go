package query

import (
	"cmp"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spatialknn/knn"
	"github.com/hupe1980/spatialknn/model"
)

// ParallelBatchKNN splits qs into chunks of chunkSize queries answered
// concurrently by s.BatchKNN, at most workers at a time (workers < 1 means no
// limit). The result order matches qs.
//
// The caller guarantees that nothing mutates the index or relation meanwhile.
func ParallelBatchKNN[D cmp.Ordered](ctx context.Context, s Searcher[D], qs []model.Vector, k, chunkSize, workers int) ([]knn.List[D], Stats, error) {
	var stats Stats
	if err := checkK(k); err != nil {
		return nil, stats, err
	}
	if chunkSize < 1 {
		chunkSize = 64
	}

	out := make([]knn.List[D], len(qs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for start := 0; start < len(qs); start += chunkSize {
		end := min(start+chunkSize, len(qs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lists, st, err := s.BatchKNN(qs[start:end], k)
			if err != nil {
				return err
			}
			copy(out[start:end], lists)

			mu.Lock()
			stats.Add(st)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}
