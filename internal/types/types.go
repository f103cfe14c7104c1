package types

import (
	"context"

	"github.com/xhad/pagecite/internal/models"
)

// QueryResult mirrors what a vector collection returns for one query: three
// parallel slices ordered by ascending distance.
type QueryResult struct {
	IDs       []string
	Documents []string
	Distances []float64
}

func (r QueryResult) Len() int {
	return len(r.IDs)
}

// VectorIndex stores and queries text embeddings. Embeddings for Upsert are
// computed upstream; Query embeds the query text itself.
type VectorIndex interface {
	Upsert(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error
	Query(ctx context.Context, text string, k int) (QueryResult, error)
}

// VectorStore is the raw vector side of a VectorIndex.
type VectorStore interface {
	Upsert(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error
	QueryVector(ctx context.Context, embedding []float32, k int) (QueryResult, error)
	Reset(ctx context.Context) error
	Close()
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Completer is a chat-completion capability.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// LayoutStore returns the layout elements of a page in detection order.
type LayoutStore interface {
	ElementsForPage(ctx context.Context, page string) ([]models.LayoutElement, error)
}

type LayoutWriter interface {
	LayoutStore
	InsertElements(ctx context.Context, elements []models.LayoutElement) error
	ResetLayout(ctx context.Context) error
}

type MessageStore interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	Messages(ctx context.Context) ([]models.Message, error)
}
