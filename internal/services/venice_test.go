package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/story-arena/pkg/chat"
)

func TestVeniceService_Complete(t *testing.T) {
	var got VeniceChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"narrative\":\"ok\"}"}}],"usage":{"prompt_tokens":40,"completion_tokens":10,"total_tokens":50}}`))
	}))
	defer srv.Close()

	service := NewVeniceService("test-key", "llama")
	service.baseURL = srv.URL

	resp, err := service.Complete(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "sys"},
		{Role: chat.ChatRoleUser, Content: "act"},
	}, chat.CompletionOptions{JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Error("expected json_object response format")
	}
	if got.Temperature != DefaultVeniceTemperature || got.MaxTokens != DefaultVeniceMaxTokens {
		t.Errorf("defaults not applied: %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Errorf("expected system message to be forwarded, got %d messages", len(got.Messages))
	}
	if resp.Content != `{"narrative":"ok"}` || resp.TotalTokens() != 50 {
		t.Errorf("unexpected completion: %+v", resp)
	}
}

func TestVeniceService_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	service := NewVeniceService("k", "m")
	service.baseURL = srv.URL
	if _, err := service.Complete(context.Background(), nil, chat.CompletionOptions{}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestNewLLMService(t *testing.T) {
	ctx := context.Background()
	if svc, err := NewLLMService(ctx, ProviderAnthropic, "key", "m", nil); err != nil || svc == nil {
		t.Errorf("anthropic: unexpected %v", err)
	}
	if svc, err := NewLLMService(ctx, ProviderVenice, "key", "m", nil); err != nil || svc == nil {
		t.Errorf("venice: unexpected %v", err)
	}
	if _, err := NewLLMService(ctx, ProviderAnthropic, "", "m", nil); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := NewLLMService(ctx, "palm", "key", "m", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
