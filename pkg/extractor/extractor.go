// Package extractor turns a source document into per-page text and layout
// elements ready for ingest.
package extractor

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/pagecite/internal/models"
)

// DefaultExcludeLabels are layout labels whose text is left out of page text.
var DefaultExcludeLabels = []string{"figure", "picture", "pageheader", "pagefooter", "table"}

type ExtractorConfig struct {
	ExcludeLabels []string
	Timeout       time.Duration
	RateLimit     float64 // remote fetches per second
	HOCRClass     string
	OnProgress    func(page, total int)
}

// Result holds the page documents and layout elements of one source.
type Result struct {
	Documents []models.Document
	Elements  []models.LayoutElement
}

type Extractor struct {
	config  ExtractorConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.ExcludeLabels == nil {
		config.ExcludeLabels = DefaultExcludeLabels
	}
	if config.HOCRClass == "" {
		config.HOCRClass = "ocr_par"
	}

	return &Extractor{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{})
}

func (e *Extractor) progress(page, total int) {
	if e.config.OnProgress != nil {
		e.config.OnProgress(page, total)
	}
}

// Excluded reports whether label contains any of the excluded label names,
// ignoring case. Labels like "PageHeader-2-0.97" match "pageheader".
func Excluded(label string, exclude []string) bool {
	label = strings.ToLower(label)
	for _, x := range exclude {
		if x != "" && strings.Contains(label, strings.ToLower(x)) {
			return true
		}
	}
	return false
}

// PageDocuments builds one document per page from the page's layout elements
// in detection order, joining the text of every element whose label is not
// excluded. Pages come out in order of first appearance.
func PageDocuments(source string, elements []models.LayoutElement, exclude []string) []models.Document {
	var order []string
	texts := make(map[string][]string)
	for _, el := range elements {
		if _, ok := texts[el.Page]; !ok {
			order = append(order, el.Page)
			texts[el.Page] = nil
		}
		if Excluded(el.Label, exclude) {
			continue
		}
		if text := strings.TrimSpace(el.Text); text != "" {
			texts[el.Page] = append(texts[el.Page], text)
		}
	}

	title := filepath.Base(source)
	docs := make([]models.Document, 0, len(order))
	for _, page := range order {
		docs = append(docs, models.Document{
			ID:      page + ".md",
			Page:    page,
			Title:   title,
			Content: strings.Join(texts[page], "\n"),
			Metadata: map[string]interface{}{
				"source":   source,
				"elements": len(texts[page]),
			},
		})
	}
	return docs
}

func rectangle(x0, y0, x1, y1 float64) models.Polygon {
	return models.Polygon{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}
