package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/story-arena/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	CompleteFunc func(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error)

	// Track calls for testing
	CompleteCalls []CompleteCall

	mu sync.Mutex // protects all fields above
}

type CompleteCall struct {
	Messages []chat.ChatMessage
	Options  chat.CompletionOptions
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		CompleteCalls: make([]CompleteCall, 0),
	}
}

// Complete records the call and returns CompleteFunc's result. Without a
// func it answers with an empty JSON object.
func (m *MockLLMAPI) Complete(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, CompleteCall{Messages: messages, Options: opts})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, opts)
	}
	return &chat.Completion{Content: "{}", InputTokens: 1, OutputTokens: 1}, nil
}

// SetResponse sets up the mock to always reply with content.
func (m *MockLLMAPI) SetResponse(content string, inputTokens, outputTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error) {
		return &chat.Completion{Content: content, InputTokens: inputTokens, OutputTokens: outputTokens}, nil
	}
}

// SetCompleteError sets up the mock to return an error on Complete
func (m *MockLLMAPI) SetCompleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, messages []chat.ChatMessage, opts chat.CompletionOptions) (*chat.Completion, error) {
		return nil, err
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = make([]CompleteCall, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]CompleteCall, len(m.CompleteCalls))
	copy(calls, m.CompleteCalls)
	return calls
}
