package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pagecite/pkg/store"
)

func getTestConfig(t *testing.T) store.VectorStoreConfig {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return store.VectorStoreConfig{
		ConnString: url,
		TableName:  "test_page_chunks",
		VectorDim:  3,
	}
}

func TestVectorStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewWithConfig(ctx, getTestConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Reset(ctx))

	ids := []string{"page_1.md_chunk0", "page_2.md_chunk0", "page_3.md_chunk0"}
	texts := []string{"alpha", "beta", "gamma"}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {1, 0, 0}}
	require.NoError(t, s.Upsert(ctx, ids, texts, vectors))

	result, err := s.QueryVector(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())
	assert.Equal(t, []string{"page_1.md_chunk0", "page_3.md_chunk0"}, result.IDs)
	assert.Equal(t, []string{"alpha", "gamma"}, result.Documents)

	// Upserting an existing id replaces the row.
	require.NoError(t, s.Upsert(ctx, ids[:1], []string{"alpha v2"}, [][]float32{{0, 0, 1}}))
	result, err = s.QueryVector(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"page_3.md_chunk0"}, result.IDs)

	require.NoError(t, s.Reset(ctx))
	result, err = s.QueryVector(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}
