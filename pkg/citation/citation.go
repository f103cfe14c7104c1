// Package citation recovers the pages a model answer cites.
package citation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xhad/pagecite/internal/models"
)

// pagePattern matches the tail of "[Source page 3]" or "[Page 3]". Only the
// "age N]" fragment is required so the leading word may vary in case.
var pagePattern = regexp.MustCompile(`age (\d+)\]`)

// Normalize rewrites underscores as spaces so "[Source page_3]" is
// recognised like "[Source page 3]".
func Normalize(answer string) string {
	return strings.ReplaceAll(answer, "_", " ")
}

// Extract returns the distinct cited page numbers in ascending order. An
// answer without citations yields an empty, non-nil slice.
func Extract(answer string) []int {
	seen := make(map[int]bool)
	pages := []int{}
	for _, m := range pagePattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages
}

// GroupChunksByPage keeps the chunks whose source page is one of the cited
// pages and groups their texts by page number, preserving chunk order.
// Cited pages with no retrieved chunk are absent from the result.
func GroupChunksByPage(chunks []models.Chunk, pages []int) map[int][]string {
	cited := make(map[string]int, len(pages))
	for _, p := range pages {
		cited[models.PageID(p)] = p
	}

	groups := make(map[int][]string)
	for _, c := range chunks {
		if p, ok := cited[c.SourcePage]; ok {
			groups[p] = append(groups[p], c.Text)
		}
	}
	return groups
}
