package store

import (
	"context"
	"fmt"

	"github.com/xhad/pagecite/internal/types"
)

// Index answers text queries by embedding the query and searching a
// VectorStore.
type Index struct {
	embedder types.Embedder
	vectors  types.VectorStore
}

var _ types.VectorIndex = (*Index)(nil)

func NewIndex(embedder types.Embedder, vectors types.VectorStore) *Index {
	return &Index{embedder: embedder, vectors: vectors}
}

func (ix *Index) Upsert(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error {
	return ix.vectors.Upsert(ctx, ids, texts, embeddings)
}

func (ix *Index) Query(ctx context.Context, text string, k int) (types.QueryResult, error) {
	embedding, err := ix.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	return ix.vectors.QueryVector(ctx, embedding, k)
}

func (ix *Index) Reset(ctx context.Context) error {
	return ix.vectors.Reset(ctx)
}
