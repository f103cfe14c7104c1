// Package geometry maps cited chunk text back onto page layout regions.
//
// Matching is bidirectional substring containment between a chunk and each
// layout element's text. It is an approximation: OCR noise or text repeated
// on a page can produce misses or extra regions.
package geometry

import (
	"strings"

	"github.com/xhad/pagecite/internal/models"
)

// MinLineWords is the shortest reassembled line kept by ReassembleLines.
// Shorter fragments are usually headers or page furniture.
const MinLineWords = 4

// Reconcile returns the polygons to highlight on page for the given chunk
// texts. Each matching element contributes itself and its immediate
// neighbours in detection order; every element appears at most once, in the
// order first reached. Elements from other pages are ignored and a page
// without layout yields no polygons.
func Reconcile(page string, chunkTexts []string, elements []models.LayoutElement) []models.Polygon {
	onPage := make([]models.LayoutElement, 0, len(elements))
	for _, el := range elements {
		if el.Page == "" || el.Page == page {
			onPage = append(onPage, el)
		}
	}

	polygons := []models.Polygon{}
	taken := make(map[int]bool)
	add := func(i int) {
		if i < 0 || i >= len(onPage) || taken[i] {
			return
		}
		taken[i] = true
		polygons = append(polygons, onPage[i].Polygon)
	}

	for _, chunk := range chunkTexts {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		for i, el := range onPage {
			if !overlaps(chunk, el.Text) {
				continue
			}
			add(i - 1)
			add(i)
			add(i + 1)
		}
	}

	return polygons
}

func overlaps(chunk, elementText string) bool {
	text := strings.TrimSpace(elementText)
	if text == "" {
		return false
	}
	return strings.Contains(chunk, text) || strings.Contains(text, chunk)
}

// ReassembleLines splits chunk texts into printable lines. A line ending in a
// hyphen is joined with the line that follows it, which for the last line of
// a chunk is the first line of the next chunk. Lines with fewer than
// MinLineWords words are dropped.
func ReassembleLines(chunkTexts []string) []string {
	var raw []string
	for _, chunk := range chunkTexts {
		raw = append(raw, strings.Split(chunk, "\n")...)
	}

	lines := []string{}
	for i := 0; i < len(raw); i++ {
		line := strings.TrimRight(raw[i], " \t\r")
		for strings.HasSuffix(line, "-") && i+1 < len(raw) {
			i++
			line = line[:len(line)-1] + strings.TrimRight(strings.TrimLeft(raw[i], " \t"), " \t\r")
		}
		if len(strings.Fields(line)) >= MinLineWords {
			lines = append(lines, line)
		}
	}
	return lines
}
