package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
)

// hOCR classes other than the text class that carry a layout label.
var hocrLabels = map[string]string{
	"ocr_header":  "pageheader",
	"ocr_footer":  "pagefooter",
	"ocr_image":   "figure",
	"ocr_photo":   "picture",
	"ocr_table":   "table",
	"ocr_caption": "caption",
}

// HOCR loads Tesseract hOCR output from a file path or an http(s) URL. Pages
// are numbered by the order of their ocr_page elements.
func (e *Extractor) HOCR(ctx context.Context, source string) (Result, error) {
	body, err := e.open(ctx, source)
	if err != nil {
		return Result{}, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	selector := "." + e.config.HOCRClass
	for class := range hocrLabels {
		selector += ", ." + class
	}

	pages := doc.Find(".ocr_page")
	total := pages.Length()
	var elements []models.LayoutElement
	pages.Each(func(i int, page *goquery.Selection) {
		pageID := models.PageID(i + 1)
		page.Find(selector).Each(func(_ int, region *goquery.Selection) {
			el, ok := e.regionElement(region, pageID)
			if ok {
				elements = append(elements, el)
			}
		})
		e.progress(i+1, total)
	})

	if total == 0 {
		logger.Warn("no ocr_page elements found in %s", source)
	}

	return Result{
		Documents: PageDocuments(source, elements, e.config.ExcludeLabels),
		Elements:  elements,
	}, nil
}

func (e *Extractor) regionElement(region *goquery.Selection, page string) (models.LayoutElement, bool) {
	// Nested regions are reported by their innermost match only.
	if region.ParentsFiltered("." + e.config.HOCRClass).Length() > 0 {
		return models.LayoutElement{}, false
	}

	label := "text"
	for class, l := range hocrLabels {
		if region.HasClass(class) {
			label = l
			break
		}
	}

	title, _ := region.Attr("title")
	poly, ok := parseBBox(title)
	if !ok {
		logger.Debug("skipping %s region without bbox on %s", label, page)
		return models.LayoutElement{}, false
	}

	return models.LayoutElement{
		Text:    strings.Join(strings.Fields(region.Text()), " "),
		Label:   label,
		Page:    page,
		Polygon: poly,
	}, true
}

// parseBBox reads "bbox x0 y0 x1 y1" from an hOCR title attribute.
func parseBBox(title string) (models.Polygon, bool) {
	for _, prop := range strings.Split(title, ";") {
		fields := strings.Fields(prop)
		if len(fields) != 5 || fields[0] != "bbox" {
			continue
		}
		var c [4]float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, false
			}
			c[i] = v
		}
		return rectangle(c[0], c[1], c[2], c[3]), true
	}
	return nil, false
}

func (e *Extractor) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open hOCR file: %w", err)
		}
		return f, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, source)
	}
	return resp.Body, nil
}
