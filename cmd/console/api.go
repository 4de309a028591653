package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/pkg/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ScenarioSummary matches the API scenario listing entry
type ScenarioSummary struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Acts        int      `json:"acts"`
	TurnLimit   int      `json:"turn_limit"`
	Locales     []string `json:"locales,omitempty"`
}

// StartGameRequest matches the API request structure
type StartGameRequest struct {
	Scenario string `json:"scenario"`
	Language string `json:"language,omitempty"`
}

// APIClient talks to the story arena HTTP API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{baseURL: baseURL, client: client}
}

// do sends body as JSON and decodes a response with status want into out.
func (c *APIClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil) == nil
}

func (c *APIClient) ListScenarios(ctx context.Context) ([]ScenarioSummary, error) {
	var list []ScenarioSummary
	if err := c.do(ctx, http.MethodGet, "/v1/scenarios", nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *APIClient) StartGame(ctx context.Context, slug, language string) (*flows.StartResult, error) {
	var res flows.StartResult
	req := StartGameRequest{Scenario: slug, Language: language}
	if err := c.do(ctx, http.MethodPost, "/v1/games", req, http.StatusCreated, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) GetGame(ctx context.Context, id uuid.UUID) (*flows.View, error) {
	var v flows.View
	if err := c.do(ctx, http.MethodGet, "/v1/games/"+id.String(), nil, http.StatusOK, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *APIClient) Turn(ctx context.Context, id uuid.UUID, action string) (*flows.TurnResult, error) {
	var res flows.TurnResult
	body := map[string]string{"action": action}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+id.String()+"/turns", body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) Save(ctx context.Context, id uuid.UUID, label string) (*game.Save, error) {
	var save game.Save
	body := map[string]string{}
	if label != "" {
		body["label"] = label
	}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+id.String()+"/saves", body, http.StatusCreated, &save); err != nil {
		return nil, err
	}
	return &save, nil
}

func (c *APIClient) ListSaves(ctx context.Context, id uuid.UUID) ([]game.Save, error) {
	var saves []game.Save
	if err := c.do(ctx, http.MethodGet, "/v1/games/"+id.String()+"/saves", nil, http.StatusOK, &saves); err != nil {
		return nil, err
	}
	return saves, nil
}

func (c *APIClient) Load(ctx context.Context, id, saveID uuid.UUID) error {
	body := map[string]string{"save_id": saveID.String()}
	return c.do(ctx, http.MethodPost, "/v1/games/"+id.String()+"/load", body, http.StatusOK, nil)
}

func (c *APIClient) Replay(ctx context.Context, id uuid.UUID, act int) error {
	body := map[string]int{"act": act}
	return c.do(ctx, http.MethodPost, "/v1/games/"+id.String()+"/replay", body, http.StatusOK, nil)
}
