package retriever

import (
	"context"
	"path"
	"regexp"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
)

const DefaultK = 5

var chunkSuffix = regexp.MustCompile(`_chunk\d+$`)

// Retriever looks up the chunks most similar to a question.
type Retriever struct {
	index types.VectorIndex
}

func New(index types.VectorIndex) *Retriever {
	return &Retriever{index: index}
}

// Retrieve returns up to k chunks ordered by relevance, rank 1 first. An
// unreachable index or an empty collection yields an empty slice; callers
// treat that as "no evidence available".
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) []models.RetrievalResult {
	if k <= 0 {
		k = DefaultK
	}

	res, err := r.index.Query(ctx, question, k)
	if err != nil {
		logger.Warn("%v: %v", types.ErrRetrievalUnavailable, err)
		return []models.RetrievalResult{}
	}

	n := res.Len()
	if len(res.Documents) < n {
		n = len(res.Documents)
	}
	if n > k {
		n = k
	}

	results := make([]models.RetrievalResult, 0, n)
	for i := 0; i < n; i++ {
		var distance float64
		if i < len(res.Distances) {
			distance = res.Distances[i]
		}
		results = append(results, models.RetrievalResult{
			Chunk: models.Chunk{
				ID:         res.IDs[i],
				Text:       res.Documents[i],
				SourcePage: SourcePage(res.IDs[i]),
			},
			Rank:     i + 1,
			Distance: distance,
		})
	}

	logger.Debug("retrieved %d chunks for %q", len(results), question)
	return results
}

// SourcePage derives the page a chunk came from: "page_3.md_chunk2" and
// "page_3_chunk2" both map to "page_3".
func SourcePage(chunkID string) string {
	page := chunkSuffix.ReplaceAllString(chunkID, "")
	return page[:len(page)-len(path.Ext(page))]
}
