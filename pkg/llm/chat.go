package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // "ollama" or "openai"
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	APIKey      string
}

// ChatEngine sends one system prompt and one user message to a language model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

var _ types.Completer = (*ChatEngine)(nil)

// NewWithConfig creates a ChatEngine backed by the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := normalizeChatConfig(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	config, err := normalizeChatConfig(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func normalizeChatConfig(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" && config.Provider == "ollama" {
		config.BaseURL = "http://localhost:11434"
	}
	return config, nil
}

// Complete sends systemPrompt as the system message and userMessage as the
// human message and returns the first choice. Failures wrap
// types.ErrCompletionFailure.
func (ce *ChatEngine) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userMessage),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		logger.Error("chat completion with %s failed: %v", ce.config.Model, err)
		return "", fmt.Errorf("%w: %v", types.ErrCompletionFailure, err)
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", fmt.Errorf("%w: no response from LLM", types.ErrCompletionFailure)
	}

	return response.Choices[0].Content, nil
}

func (ce *ChatEngine) ModelName() string {
	return ce.config.Model
}
