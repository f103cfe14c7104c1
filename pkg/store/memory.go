package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/pagecite/internal/types"
)

// MemoryStore is a brute-force cosine vector store. Upserting an existing id
// replaces its text and vector but keeps its original insertion position.
type MemoryStore struct {
	mu      sync.RWMutex
	ids     []string
	texts   []string
	vectors [][]float32
	index   map[string]int
}

var _ types.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) Upsert(_ context.Context, ids []string, texts []string, embeddings [][]float32) error {
	if len(ids) != len(texts) || len(ids) != len(embeddings) {
		return fmt.Errorf("ids, texts and embeddings length mismatch: %d/%d/%d", len(ids), len(texts), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		if pos, ok := s.index[id]; ok {
			s.texts[pos] = texts[i]
			s.vectors[pos] = embeddings[i]
			continue
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
		s.texts = append(s.texts, texts[i])
		s.vectors = append(s.vectors, embeddings[i])
	}
	return nil
}

// QueryVector returns the k nearest entries by cosine distance. Equal
// distances keep insertion order.
func (s *MemoryStore) QueryVector(_ context.Context, embedding []float32, k int) (types.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]int, len(s.ids))
	distances := make([]float64, len(s.ids))
	for i := range s.ids {
		order[i] = i
		distances[i] = cosineDistance(embedding, s.vectors[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	var result types.QueryResult
	for _, i := range order[:k] {
		result.IDs = append(result.IDs, s.ids[i])
		result.Documents = append(result.Documents, s.texts[i])
		result.Distances = append(result.Distances, distances[i])
	}
	return result, nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids, s.texts, s.vectors = nil, nil, nil
	s.index = make(map[string]int)
	return nil
}

func (s *MemoryStore) Close() {}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
