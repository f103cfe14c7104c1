// Package prompt assembles the system prompt sent to the language model.
//
// Every chunk is framed as "[Source page N]:" and the model is asked to cite
// with the same marker. The citation package recovers page numbers from the
// "age N]" tail of that marker, so the two must change together.
package prompt

import (
	"fmt"
	"strings"

	"github.com/xhad/pagecite/internal/models"
)

// SourceLabel renders a page identifier for display: "page_3" -> "page 3".
func SourceLabel(page string) string {
	return strings.ReplaceAll(page, "_", " ")
}

// Marker is the citation marker for a page, e.g. "[Source page 3]".
func Marker(page string) string {
	return fmt.Sprintf("[Source %s]", SourceLabel(page))
}

// FormatChunks frames each chunk with its source marker.
func FormatChunks(results []models.RetrievalResult) []string {
	formatted := make([]string, 0, len(results))
	for _, r := range results {
		page := r.Chunk.SourcePage
		if page == "" {
			page = fmt.Sprintf("unknown %d", r.Rank)
		}
		formatted = append(formatted, fmt.Sprintf("%s:\n%s", Marker(page), r.Chunk.Text))
	}
	return formatted
}

// Citations lists the distinct source markers of the results in rank order.
func Citations(results []models.RetrievalResult) []string {
	seen := make(map[string]bool)
	var citations []string
	for _, r := range results {
		if r.Chunk.SourcePage == "" || seen[r.Chunk.SourcePage] {
			continue
		}
		seen[r.Chunk.SourcePage] = true
		citations = append(citations, Marker(r.Chunk.SourcePage))
	}
	return citations
}

// Build returns the instruction block for a question and its retrieved
// chunks. With no chunks the prompt is still well formed and tells the model
// that no sources were found.
func Build(question string, results []models.RetrievalResult) string {
	var b strings.Builder

	b.WriteString("# Retrieval-Augmented Generation (RAG) Prompt\n\n")
	b.WriteString("## Context Specification\n")
	b.WriteString("- Question Domain: Precise Information Retrieval\n")
	b.WriteString("- Retrieval Methodology: Semantic Search\n")
	b.WriteString("- Citation Requirement: Mandatory\n\n")

	b.WriteString("## Question\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\n")

	b.WriteString("## Available Knowledge Sources\n")
	if len(results) == 0 {
		b.WriteString("No sources were found for this question.\n\n")
	} else {
		b.WriteString(strings.Join(FormatChunks(results), "\n\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("## Source Citations\n")
	if citations := Citations(results); len(citations) > 0 {
		b.WriteString(strings.Join(citations, "\n"))
		b.WriteString("\n\n")
	} else {
		b.WriteString("None\n\n")
	}

	b.WriteString(`## Response Guidelines
1. Answer ONLY using provided sources
2. Cite sources explicitly for each claim
3. Cite in format: [Source page N], where N is the page number
4. If information is insufficient, state limitations
5. Keep your answer small and precise
6. Focus only on important pages

## Citation Instruction
- Directly attribute information to sources
- Use [Source page N] immediately after relevant information
- Never cite a page that is not listed under Source Citations
`)

	return b.String()
}
