package pipeline

import (
	"context"
	"fmt"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
	"github.com/xhad/pagecite/pkg/processor"
)

// Ingest stages reported to OnProgress.
const (
	StageReset  = "reset"
	StageLayout = "layout"
	StageEmbed  = "embed"
	StageIndex  = "index"
)

// Collection is the write side of a vector index.
type Collection interface {
	Upsert(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error
	Reset(ctx context.Context) error
}

type IngesterConfig struct {
	Processor  processor.ProcessorConfig
	Embedder   types.Embedder
	Collection Collection
	Layout     types.LayoutWriter // optional
	BatchSize  int
	OnProgress func(stage string, done, total int)
}

type IngestStats struct {
	Pages    int
	Chunks   int
	Elements int
}

// Ingester replaces the indexed document. Ingest must finish before any
// Engine queries the same stores.
type Ingester struct {
	config    IngesterConfig
	processor processor.Processor
}

func NewIngester(config IngesterConfig) (*Ingester, error) {
	if config.Embedder == nil || config.Collection == nil {
		return nil, fmt.Errorf("%w: embedder and collection are required", types.ErrInvalidArgument)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.OnProgress == nil {
		config.OnProgress = func(string, int, int) {}
	}

	p, err := processor.NewWithConfig(config.Processor)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	return &Ingester{config: config, processor: p}, nil
}

// Ingest clears the collection and layout table, stores the layout
// elements, then chunks, embeds and upserts every page document.
func (in *Ingester) Ingest(ctx context.Context, docs []models.Document, elements []models.LayoutElement) (IngestStats, error) {
	stats := IngestStats{Pages: len(docs), Elements: len(elements)}

	in.config.OnProgress(StageReset, 0, 1)
	if err := in.config.Collection.Reset(ctx); err != nil {
		return stats, fmt.Errorf("failed to reset collection: %w", err)
	}
	if in.config.Layout != nil {
		if err := in.config.Layout.ResetLayout(ctx); err != nil {
			return stats, fmt.Errorf("failed to reset layout: %w", err)
		}
	}
	in.config.OnProgress(StageReset, 1, 1)

	if in.config.Layout != nil && len(elements) > 0 {
		in.config.OnProgress(StageLayout, 0, len(elements))
		if err := in.config.Layout.InsertElements(ctx, elements); err != nil {
			return stats, fmt.Errorf("failed to store layout: %w", err)
		}
		in.config.OnProgress(StageLayout, len(elements), len(elements))
	}

	processed, err := in.processor.Process(docs)
	if err != nil {
		return stats, err
	}

	var ids, texts []string
	for _, doc := range processed {
		for _, chunk := range doc.Chunks {
			ids = append(ids, chunk.ID)
			texts = append(texts, chunk.Text)
		}
	}
	stats.Chunks = len(ids)
	logger.Info("ingesting %d pages as %d chunks", stats.Pages, stats.Chunks)

	for start := 0; start < len(ids); start += in.config.BatchSize {
		end := start + in.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		in.config.OnProgress(StageEmbed, start, len(ids))
		vectors, err := in.config.Embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return stats, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}

		if err := in.config.Collection.Upsert(ctx, ids[start:end], texts[start:end], vectors); err != nil {
			return stats, fmt.Errorf("failed to index chunks %d-%d: %w", start, end, err)
		}
		in.config.OnProgress(StageIndex, end, len(ids))
	}

	return stats, nil
}
