package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Language   string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Language:   getEnv("STORY_LANGUAGE", ""),
		// Turns wait on two LLM calls.
		Timeout: 3 * time.Minute,
	}

	api := NewAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	healthy := api.Healthy(ctx)
	cancel()
	if !healthy {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: go run ./cmd/api\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
