// Package pipeline runs the question-answering and ingest flows over the
// capability interfaces in internal/types.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
	"github.com/xhad/pagecite/pkg/citation"
	"github.com/xhad/pagecite/pkg/geometry"
	"github.com/xhad/pagecite/pkg/prompt"
	"github.com/xhad/pagecite/pkg/retriever"
)

type EngineConfig struct {
	Index     types.VectorIndex
	Completer types.Completer
	Layout    types.LayoutStore
	History   types.MessageStore // optional
	TopK      int
}

// Engine answers one question at a time. It holds no per-question state, so
// independent questions may be asked concurrently.
type Engine struct {
	retriever *retriever.Retriever
	completer types.Completer
	layout    types.LayoutStore
	history   types.MessageStore
	topK      int
	now       func() time.Time
}

func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Index == nil {
		return nil, fmt.Errorf("%w: vector index is required", types.ErrInvalidArgument)
	}
	if config.Completer == nil {
		return nil, fmt.Errorf("%w: completer is required", types.ErrInvalidArgument)
	}
	if config.TopK <= 0 {
		config.TopK = retriever.DefaultK
	}

	return &Engine{
		retriever: retriever.New(config.Index),
		completer: config.Completer,
		layout:    config.Layout,
		history:   config.History,
		topK:      config.TopK,
		now:       time.Now,
	}, nil
}

// Ask retrieves evidence for question, asks the model, and locates the cited
// pages. Retrieval and layout misses degrade to empty results; a completion
// failure is returned wrapped in types.ErrCompletionFailure.
func (e *Engine) Ask(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", types.ErrInvalidArgument)
	}
	sentAt := e.now()

	results := e.retriever.Retrieve(ctx, question, e.topK)
	system := prompt.Build(question, results)

	reply, err := e.completer.Complete(ctx, system, question)
	if err != nil {
		if !errors.Is(err, types.ErrCompletionFailure) {
			err = fmt.Errorf("%w: %v", types.ErrCompletionFailure, err)
		}
		return nil, err
	}

	text := citation.Normalize(reply)
	pages := citation.Extract(text)

	chunks := make([]models.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	groups := citation.GroupChunksByPage(chunks, pages)

	answer := &models.Answer{
		Question:    question,
		Answer:      text,
		Pages:       pages,
		ChunkGroups: groups,
		Highlights:  make([]models.Highlight, 0, len(pages)),
	}
	for _, page := range pages {
		answer.Highlights = append(answer.Highlights, e.highlight(ctx, page, groups[page]))
	}

	logger.Info("answered %q citing pages %v", question, pages)
	e.record(ctx, answer, sentAt)
	return answer, nil
}

func (e *Engine) highlight(ctx context.Context, page int, chunkTexts []string) models.Highlight {
	h := models.Highlight{
		Page:     page,
		Polygons: []models.Polygon{},
		Lines:    geometry.ReassembleLines(chunkTexts),
	}
	if e.layout == nil || len(chunkTexts) == 0 {
		return h
	}

	pageID := models.PageID(page)
	elements, err := e.layout.ElementsForPage(ctx, pageID)
	if err != nil {
		logger.Warn("layout lookup for %s failed: %v", pageID, err)
		return h
	}
	h.Polygons = geometry.Reconcile(pageID, chunkTexts, elements)
	return h
}

func (e *Engine) record(ctx context.Context, answer *models.Answer, sentAt time.Time) {
	if e.history == nil {
		return
	}
	msg := models.Message{
		UserInput:        answer.Question,
		AssistantMessage: answer.Answer,
		SourcePages:      answer.Pages,
		SentAt:           sentAt,
		AnsweredAt:       e.now(),
	}
	if err := e.history.SaveMessage(ctx, msg); err != nil {
		logger.Warn("failed to save message: %v", err)
	}
}

// History returns the stored conversation, oldest first.
func (e *Engine) History(ctx context.Context) ([]models.Message, error) {
	if e.history == nil {
		return []models.Message{}, nil
	}
	return e.history.Messages(ctx)
}

// PageLayout returns the stored layout elements of a page in detection order.
func (e *Engine) PageLayout(ctx context.Context, page int) ([]models.LayoutElement, error) {
	if e.layout == nil {
		return nil, fmt.Errorf("%w: no layout store configured", types.ErrNotFound)
	}
	elements, err := e.layout.ElementsForPage(ctx, models.PageID(page))
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no layout for page %d", types.ErrNotFound, page)
	}
	return elements, nil
}
