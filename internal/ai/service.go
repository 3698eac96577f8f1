// Package ai proxies editor text transforms to a language-model provider.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const systemPrompt = "You are a helpful writing assistant."

var (
	ErrMissingText      = errors.New("text is required")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Config selects the OpenAI-compatible endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string // e.g. https://openrouter.ai/api/v1
	Model   string
}

type Service struct {
	llm llms.Model
}

// NewService builds a transform service backed by an OpenAI-compatible API.
func NewService(cfg Config) (*Service, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &Service{llm: llm}, nil
}

// NewServiceWithModel injects a model directly; used by tests.
func NewServiceWithModel(model llms.Model) *Service {
	return &Service{llm: model}
}

// BuildPrompt maps an operation to the instruction sent to the model.
func BuildPrompt(text, operation, tone string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrMissingText
	}
	switch operation {
	case "summarize":
		return fmt.Sprintf("Summarize the following text concisely:\n\n%q", text), nil
	case "tone":
		return fmt.Sprintf("Rewrite the following text in a %s tone:\n\n%q", tone, text), nil
	default:
		return "", ErrInvalidOperation
	}
}

// Transform runs one prompt round trip and returns the model output.
func (s *Service) Transform(ctx context.Context, text, operation, tone string) (string, error) {
	prompt, err := BuildPrompt(text, operation, tone)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Content, nil
}
