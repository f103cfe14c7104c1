package processor

import (
	"fmt"
	"unicode/utf8"

	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if err := checkBounds(config.ChunkSize, config.ChunkOverlap); err != nil {
		return Processor{}, err
	}

	return Processor{
		config: config,
	}, nil
}

// Process splits every page document into chunks. Chunk ids are
// "<document-id>_chunk<ordinal>" with 1-based ordinals.
func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	processed := make([]models.ProcessedDocument, 0, len(docs))

	for _, doc := range docs {
		windows, err := Split(doc.Content, p.config.ChunkSize, p.config.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.ID, err)
		}

		page := doc.Page
		if page == "" {
			page = doc.ID
		}

		chunks := make([]models.Chunk, 0, len(windows))
		for i, text := range windows {
			chunks = append(chunks, models.Chunk{
				ID:         ChunkID(doc.ID, i+1),
				Text:       text,
				SourcePage: page,
				Ordinal:    i + 1,
			})
		}

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   chunks,
		})
	}

	return processed, nil
}

func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk%d", documentID, ordinal)
}

// Split cuts text into windows of chunkSize characters, each starting
// chunkSize-overlap characters after the previous one. The last window is
// truncated to the remaining text. Empty text yields no windows. Invalid
// UTF-8 bytes are dropped, so every window is valid UTF-8.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := checkBounds(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := toRunes(text)
	var chunks []string
	step := chunkSize - overlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}

func checkBounds(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", types.ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", types.ErrInvalidArgument, chunkSize, overlap)
	}
	return nil
}

func toRunes(s string) []rune {
	runes := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		runes = append(runes, r)
	}
	return runes
}
