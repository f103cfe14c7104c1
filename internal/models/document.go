package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the extracted text of a single page. ID is the source document
// id used to derive chunk ids, Page is the page identifier ("page_3").
type Document struct {
	ID       string
	Page     string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

type ProcessedDocument struct {
	Document
	Chunks []Chunk
}

// Chunk is a window of a page's text. ID is "<document-id>_chunk<ordinal>".
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourcePage string `json:"source_page"`
	Ordinal    int    `json:"ordinal"`
}

// Point marshals as a two element array, the format layout polygons are
// stored in.
type Point struct {
	X, Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Polygon is an ordered list of vertices. It marshals as [[x,y],...].
type Polygon []Point

// LayoutElement is one detected region of a page.
type LayoutElement struct {
	Text    string  `json:"text"`
	Label   string  `json:"label"`
	Page    string  `json:"page"`
	Polygon Polygon `json:"polygon"`
}

type RetrievalResult struct {
	Chunk    Chunk   `json:"chunk"`
	Rank     int     `json:"rank"`
	Distance float64 `json:"distance"`
}

// Highlight is what the presentation layer draws on a cited page.
type Highlight struct {
	Page     int       `json:"page"`
	Polygons []Polygon `json:"polygons"`
	Lines    []string  `json:"lines"`
}

// Answer is the response contract handed to any caller.
type Answer struct {
	Question    string           `json:"-"`
	Answer      string           `json:"answer"`
	Pages       []int            `json:"related_pages"`
	ChunkGroups map[int][]string `json:"related_chunks"`
	Highlights  []Highlight      `json:"highlights"`
}

type Message struct {
	UserInput        string    `json:"user_input"`
	AssistantMessage string    `json:"assistant_message"`
	SourcePages      []int     `json:"source_pages"`
	SentAt           time.Time `json:"sent_at"`
	AnsweredAt       time.Time `json:"answered_at"`
}
