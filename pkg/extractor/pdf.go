package extractor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/xhad/pagecite/internal/models"
)

const (
	defaultPageHeight = 792 // US Letter in points
	marginRatio       = 0.06
)

// PDF reads a text-layer PDF. Every text row becomes a layout element whose
// polygon is the row's bounding box in top-left-origin page points. Rows in
// the top or bottom margin are labelled pageheader or pagefooter.
func (e *Extractor) PDF(ctx context.Context, path string) (Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	var elements []models.LayoutElement
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return Result{}, fmt.Errorf("failed to read text of page %d: %w", n, err)
		}

		height := pageHeight(page)
		for _, row := range rows {
			if el, ok := rowElement(row, models.PageID(n), height); ok {
				elements = append(elements, el)
			}
		}
		e.progress(n, total)
	}

	return Result{
		Documents: PageDocuments(path, elements, e.config.ExcludeLabels),
		Elements:  elements,
	}, nil
}

func rowElement(row *pdf.Row, page string, height float64) (models.LayoutElement, bool) {
	var (
		b                      strings.Builder
		minX, maxX, minY, maxY = math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64
	)
	for _, t := range row.Content {
		if t.S == "" {
			continue
		}
		b.WriteString(t.S)
		minX = math.Min(minX, t.X)
		maxX = math.Max(maxX, t.X+t.W)
		minY = math.Min(minY, t.Y)
		maxY = math.Max(maxY, t.Y+t.FontSize)
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if text == "" {
		return models.LayoutElement{}, false
	}

	label := "text"
	switch {
	case maxY > height*(1-marginRatio):
		label = "pageheader"
	case minY < height*marginRatio:
		label = "pagefooter"
	}

	return models.LayoutElement{
		Text:    text,
		Label:   label,
		Page:    page,
		Polygon: rectangle(minX, height-maxY, maxX, height-minY),
	}, true
}

func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() {
		box = page.V.Key("Parent").Key("MediaBox")
	}
	if box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}
