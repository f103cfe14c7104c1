package citation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/pkg/citation"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []int
	}{
		{"two pages", "See [Page 3] and [page 12].", []int{3, 12}},
		{"none", "No citations here.", []int{}},
		{"duplicates collapse", "[Page 5] ... [Page 5]", []int{5}},
		{"sorted", "[Source page 9] then [Source page 2]", []int{2, 9}},
		{"missing bracket", "see page 4 for details", []int{}},
		{"underscore not matched raw", "[Source page_7]", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, citation.Extract(tt.answer))
		})
	}
}

func TestNormalizeThenExtract(t *testing.T) {
	answer := citation.Normalize("Revenue grew [Source page_7].")
	assert.Equal(t, "Revenue grew [Source page 7].", answer)
	assert.Equal(t, []int{7}, citation.Extract(answer))
}

func TestGroupChunksByPage(t *testing.T) {
	chunks := []models.Chunk{
		{Text: "A", SourcePage: "page_3"},
		{Text: "B", SourcePage: "page_5"},
	}
	assert.Equal(t, map[int][]string{3: {"A"}}, citation.GroupChunksByPage(chunks, []int{3}))
}

func TestGroupChunksByPageOrder(t *testing.T) {
	chunks := []models.Chunk{
		{Text: "first", SourcePage: "page_2"},
		{Text: "other", SourcePage: "page_4"},
		{Text: "second", SourcePage: "page_2"},
		{Text: "ignored", SourcePage: "page_9"},
	}
	groups := citation.GroupChunksByPage(chunks, []int{2, 4, 6})
	assert.Equal(t, map[int][]string{
		2: {"first", "second"},
		4: {"other"},
	}, groups)
}

func TestGroupChunksByPageNoCitations(t *testing.T) {
	groups := citation.GroupChunksByPage([]models.Chunk{{Text: "A", SourcePage: "page_1"}}, nil)
	assert.Empty(t, groups)
}
