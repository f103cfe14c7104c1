package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/pagecite/internal/types"
	"github.com/xhad/pagecite/pkg/llm"
)

type fakeModel struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	reply    string
	err      error
	empty    bool
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	require.Len(t, msg.Parts, 1)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    "ollama",
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "testmodel", engine.ModelName())

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: 3})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Provider: "unknown"})
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	model := &fakeModel{reply: "Revenue was reported in [Page 2]."}
	engine, err := llm.NewWithModel(llm.ChatConfig{Model: "fake", Temperature: 0.3, MaxTokens: 256}, model)
	require.NoError(t, err)

	answer, err := engine.Complete(context.Background(), "system prompt", "What is the revenue?")
	require.NoError(t, err)
	assert.Equal(t, "Revenue was reported in [Page 2].", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, "system prompt", textOf(t, model.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, "What is the revenue?", textOf(t, model.messages[1]))
	assert.Equal(t, 0.3, model.options.Temperature)
	assert.Equal(t, 256, model.options.MaxTokens)
}

func TestCompleteFailure(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{}, &fakeModel{err: errors.New("rate limited")})
	require.NoError(t, err)

	_, err = engine.Complete(context.Background(), "system", "question")
	assert.ErrorIs(t, err, types.ErrCompletionFailure)
	assert.Contains(t, err.Error(), "rate limited")

	engine, err = llm.NewWithModel(llm.ChatConfig{}, &fakeModel{empty: true})
	require.NoError(t, err)
	_, err = engine.Complete(context.Background(), "system", "question")
	assert.ErrorIs(t, err, types.ErrCompletionFailure)
}
