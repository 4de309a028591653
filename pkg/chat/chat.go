package chat

const (
	ChatRoleUser   = "user"      // Player input
	ChatRoleAgent  = "assistant" // Model output
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single chat message sent to an LLM backend.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Completion is a backend's reply with its token usage.
type Completion struct {
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens is the sum of prompt and reply tokens.
func (c *Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the backend for a JSON object when it supports it.
	JSON bool
}
