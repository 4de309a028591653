package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips code fences and any prose around the outermost JSON
// object of a model reply.
func extractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}

func decodeJSON(content string, v any) error {
	raw, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
