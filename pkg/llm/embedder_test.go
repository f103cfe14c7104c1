package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pagecite/pkg/llm"
)

type fakeClient struct {
	calls [][]string
	err   error
}

func (f *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

var config = llm.EmbedderConfig{
	Model:     "nomic-embed-text:latest",
	BatchSize: 2,
	RateLimit: 1000,
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, "ollama", emb.Config.Provider)
	assert.Equal(t, "http://localhost:11434", emb.Config.BaseURL)
}

func TestEmbedDocuments(t *testing.T) {
	client := &fakeClient{}
	emb, err := llm.NewEmbedderWithClient(config, client)
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := emb.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
	assert.GreaterOrEqual(t, len(client.calls), 3)

	query, err := emb.EmbedQuery(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, query)
}

func TestEmbedDocumentsError(t *testing.T) {
	emb, err := llm.NewEmbedderWithClient(config, &fakeClient{err: errors.New("boom")})
	require.NoError(t, err)

	_, err = emb.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "boom")
}
