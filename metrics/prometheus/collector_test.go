package prometheus

import (
	"context"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spatialknn"
	"github.com/hupe1980/spatialknn/model"
)

func TestCollector(t *testing.T) {
	ctx := context.Background()
	reg := prom.NewRegistry()

	c, err := NewCollector(reg)
	require.NoError(t, err)

	idx, err := spatialknn.New(ctx, 2, spatialknn.WithMetricsCollector(c), spatialknn.WithKNNCache(1))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.InsertBatch(ctx, []model.ObjectID{1, 2}, []model.Vector{{0, 0}, {3, 4}}))
	require.NoError(t, idx.Insert(ctx, 3, model.Vector{1, 1}))
	require.Error(t, idx.Insert(ctx, 3, model.Vector{1, 1}))

	_, err = idx.Neighbors(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Delete(ctx, 2))

	_, err = idx.KNN(ctx, model.Vector{0, 0}, 1)
	require.NoError(t, err)

	assert.InDelta(t, 3, promtest.ToFloat64(c.writes.WithLabelValues("insert")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.writes.WithLabelValues("delete")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(c.cacheUpdates.WithLabelValues("delete")), 0)
	assert.Positive(t, promtest.ToFloat64(c.distances))
	assert.Positive(t, promtest.ToFloat64(c.nodeVisits))

	// insert_batch, insert, failed insert, delete and knn.
	assert.Equal(t, 5, promtest.CollectAndCount(c.opLatency))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prom.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	require.Error(t, err)
}

func TestNewCollector_NilRegisterer(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)

	// Only the unlabeled counters export a series before anything is recorded.
	assert.Equal(t, 4, promtest.CollectAndCount(c))
}
