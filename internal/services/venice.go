package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/story-arena/pkg/chat"
)

const (
	veniceBaseURL = "https://api.venice.ai/api/v1"

	DefaultVeniceTemperature = 0.7
	DefaultVeniceMaxTokens   = 1024
)

// VeniceService implements LLMService for Venice AI's OpenAI-compatible API.
type VeniceService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
}

type VeniceResponseFormat struct {
	Type string `json:"type"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature,omitempty"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatChoice represents a single choice in the Venice AI response
type VeniceChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []VeniceChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey string, modelName string) *VeniceService {
	return &VeniceService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   veniceBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Complete makes a chat completion request to Venice AI.
func (v *VeniceService) Complete(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error) {
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultVeniceTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultVeniceMaxTokens
	}
	veniceReq := VeniceChatRequest{
		Model:       v.modelName,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}
	if opts.JSON {
		veniceReq.ResponseFormat = &VeniceResponseFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(veniceReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var veniceResp VeniceChatResponse
	if err := json.Unmarshal(body, &veniceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if veniceResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", veniceResp.Error.Message)
	}

	if len(veniceResp.Choices) == 0 || veniceResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from model %s", v.modelName)
	}

	return &chat.Completion{
		Content:      veniceResp.Choices[0].Message.Content,
		InputTokens:  veniceResp.Usage.PromptTokens,
		OutputTokens: veniceResp.Usage.CompletionTokens,
	}, nil
}
