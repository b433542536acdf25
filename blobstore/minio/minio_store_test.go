package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/spatialknn/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Key(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "pages/1", "pages/1"},
		{"root", "pages/1", "root/pages/1"},
		{"/root/", "/pages/1", "root/pages/1"},
		{"a/b/", "meta", "a/b/meta"},
	}
	for _, tt := range tests {
		s := NewStore(nil, "bucket", tt.prefix)
		assert.Equal(t, tt.want, s.key(tt.name))
	}
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-spatialknn"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "pages/1", data))

	blob, err := store.Open(ctx, "pages/1")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "minio", string(buf))
	require.NoError(t, blob.Close())

	got, err := blobstore.ReadAll(ctx, store, "pages/1")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "pages/")
	require.NoError(t, err)
	assert.Contains(t, names, "pages/1")

	require.NoError(t, store.Delete(ctx, "pages/1"))

	_, err = store.Open(ctx, "pages/1")
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))
}
