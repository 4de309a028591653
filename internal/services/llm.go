package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/story-arena/pkg/chat"
)

// LLM backend names accepted by NewLLMService.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderVenice    = "venice"
	// ProviderMock runs without any backend; see narration.MockRater.
	ProviderMock = "mock"
)

// LLMService defines the interface for interacting with an LLM backend.
type LLMService interface {
	// Complete sends the messages and returns the backend's reply.
	Complete(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error)
}

// NewLLMService builds the backend for provider bound to one model.
func NewLLMService(ctx context.Context, provider, apiKey, modelName string, logger *slog.Logger) (LLMService, error) {
	switch provider {
	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicService(apiKey, modelName, logger), nil
	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiService(ctx, apiKey, modelName, logger)
	case ProviderVenice:
		if apiKey == "" {
			return nil, fmt.Errorf("venice provider requires an API key")
		}
		return NewVeniceService(apiKey, modelName), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", provider)
}
