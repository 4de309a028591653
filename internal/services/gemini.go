package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/story-arena/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, modelName: modelName, logger: logger}, nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Complete sends system messages as the system instruction and the rest as
// a single prompt.
func (g *GeminiService) Complete(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error) {
	model := g.client.GenerativeModel(g.modelName)
	if opts.Temperature != 0 {
		model.SetTemperature(float32(opts.Temperature))
	}
	if opts.MaxTokens != 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var system, prompt []string
	for _, m := range messages {
		if m.Role == chat.ChatRoleSystem {
			system = append(system, m.Content)
		} else {
			prompt = append(prompt, m.Content)
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(prompt, "\n\n")))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("unexpected response type from Gemini")
	}

	out := &chat.Completion{Content: sb.String()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if g.logger != nil {
		g.logger.Debug("gemini completion", "model", g.modelName, "tokens", out.TotalTokens())
	}
	return out, nil
}
