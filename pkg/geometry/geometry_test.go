package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/pkg/geometry"
)

func poly(x float64) models.Polygon {
	return models.Polygon{{X: x, Y: 0}, {X: x + 1, Y: 0}, {X: x + 1, Y: 1}, {X: x, Y: 1}}
}

var (
	p0 = poly(0)
	p1 = poly(10)
	p2 = poly(20)
	p3 = poly(30)
	p4 = poly(40)
)

func layout(texts ...string) []models.LayoutElement {
	polys := []models.Polygon{p0, p1, p2, p3, p4}
	elements := make([]models.LayoutElement, len(texts))
	for i, text := range texts {
		elements[i] = models.LayoutElement{Text: text, Label: "text", Page: "page_2", Polygon: polys[i]}
	}
	return elements
}

func TestReconcileFirstElement(t *testing.T) {
	got := geometry.Reconcile("page_2", []string{"Hello world"}, layout("Hello world", "Foo", "Bar"))
	assert.Equal(t, []models.Polygon{p0, p1}, got)
}

func TestReconcileNeighbours(t *testing.T) {
	elements := layout("Intro", "Header", "Revenue was $10M", "Footer", "Notes")
	got := geometry.Reconcile("page_2", []string{"In 2023 Revenue was $10M overall."}, elements)
	assert.Equal(t, []models.Polygon{p1, p2, p3}, got)
}

func TestReconcileChunkInsideElement(t *testing.T) {
	elements := layout("A long paragraph about revenue growth", "Other")
	got := geometry.Reconcile("page_2", []string{"revenue growth"}, elements)
	assert.Equal(t, []models.Polygon{p0, p1}, got)
}

func TestReconcileDeduplicates(t *testing.T) {
	elements := layout("alpha", "beta", "gamma")
	got := geometry.Reconcile("page_2", []string{"alpha beta", "beta gamma"}, elements)
	assert.Equal(t, []models.Polygon{p0, p1, p2}, got)
}

func TestReconcileMiss(t *testing.T) {
	got := geometry.Reconcile("page_2", []string{"nothing matches"}, layout("Foo", "Bar"))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReconcileNoLayout(t *testing.T) {
	assert.Empty(t, geometry.Reconcile("page_2", []string{"Hello"}, nil))
}

func TestReconcileIgnoresEmptyText(t *testing.T) {
	elements := layout("", "Foo")
	assert.Empty(t, geometry.Reconcile("page_2", []string{"Bar"}, elements))
	assert.Empty(t, geometry.Reconcile("page_2", []string{"  "}, layout("Foo")))
}

func TestReconcileOtherPage(t *testing.T) {
	elements := layout("Hello world")
	elements[0].Page = "page_3"
	assert.Empty(t, geometry.Reconcile("page_2", []string{"Hello world"}, elements))
}

func TestReassembleLines(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "short lines dropped",
			chunks: []string{"Title\nThis line has five words\nok"},
			want:   []string{"This line has five words"},
		},
		{
			name:   "hyphen within chunk",
			chunks: []string{"The company reported strong reve-\nnue growth this year"},
			want:   []string{"The company reported strong revenue growth this year"},
		},
		{
			name:   "hyphen across chunks",
			chunks: []string{"Intro\nOperating costs were signifi-", "cantly lower than last year\nEnd"},
			want:   []string{"Operating costs were significantly lower than last year"},
		},
		{
			name:   "trailing hyphen at end",
			chunks: []string{"a line that ends in a hyphen-"},
			want:   []string{"a line that ends in a hyphen-"},
		},
		{
			name:   "merged but still short",
			chunks: []string{"Net in-\ncome"},
			want:   []string{},
		},
		{
			name:   "empty",
			chunks: nil,
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geometry.ReassembleLines(tt.chunks))
		})
	}
}
