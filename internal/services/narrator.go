package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/story-arena/pkg/chat"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/prompts"
	"github.com/jwebster45206/story-arena/pkg/state"
)

const (
	narratorTemperature = 0.7
	narratorMaxTokens   = 1500
)

// NarratorService is a narration.Narrator backed by an LLM.
type NarratorService struct {
	llm    LLMService
	logger *slog.Logger
}

var _ narration.Narrator = (*NarratorService)(nil)

func NewNarratorService(llm LLMService, logger *slog.Logger) *NarratorService {
	return &NarratorService{llm: llm, logger: logger}
}

type narrationReply struct {
	Narrative  string          `json:"narrative"`
	Diff       json.RawMessage `json:"diff"`
	MemoryNote string          `json:"memory_note"`
}

// Narrate writes the turn narrative and parses the proposed diff.
func (n *NarratorService) Narrate(ctx context.Context, req narration.NarrationRequest) (*narration.Narration, error) {
	b := prompts.New(prompts.KindNarration).
		WithWorldContext(req.WorldContext).
		WithNarratorStyle(req.NarratorStyle).
		WithLanguage(req.Language).
		WithHero(req.Hero).
		WithScene(req.Scene).
		WithDelta(req.Turn.WorldStateDelta).
		WithMemory(req.Turn.MemoryNotes).
		WithRecentActions(req.Turn.RecentActions).
		WithLine("OUTCOME: %s (difficulty %s)", req.ResolutionTag, req.Difficulty)
	if req.Turn.RatingReasoning != "" {
		b.WithLine("REFEREE NOTES: %s", req.Turn.RatingReasoning)
	}
	if req.Turn.HealthLost > 0 {
		b.WithLine("HEALTH LOST: %d", req.Turn.HealthLost)
	}
	messages, err := b.WithAction(req.Action).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build narration prompt: %w", err)
	}
	return n.complete(ctx, messages, true)
}

// Epilogue writes the closing passage of an ending or act.
func (n *NarratorService) Epilogue(ctx context.Context, req narration.EpilogueRequest) (*narration.Narration, error) {
	b := prompts.New(prompts.KindEpilogue).
		WithWorldContext(req.WorldContext).
		WithNarratorStyle(req.NarratorStyle).
		WithLanguage(req.Language).
		WithScene(req.Scene).
		WithLine("ENDING (%s): %s", req.EndingStatus, req.EndingNarrative)
	if req.ResolutionTag != "" {
		b.WithLine("LAST OUTCOME: %s", req.ResolutionTag)
	}
	messages, err := b.WithAction(req.Action).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build epilogue prompt: %w", err)
	}
	return n.complete(ctx, messages, false)
}

// Prologue writes the opening passage of an act.
func (n *NarratorService) Prologue(ctx context.Context, req narration.PrologueRequest) (*narration.Narration, error) {
	messages, err := prompts.New(prompts.KindPrologue).
		WithWorldContext(req.WorldContext).
		WithNarratorStyle(req.NarratorStyle).
		WithLanguage(req.Language).
		WithHero(req.Hero).
		WithScene(req.Scene).
		WithLine("ACT %d: %s", req.ActNumber, req.ActIntro).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build prologue prompt: %w", err)
	}
	return n.complete(ctx, messages, false)
}

func (n *NarratorService) complete(ctx context.Context, messages []chat.ChatMessage, withDiff bool) (*narration.Narration, error) {
	resp, err := n.llm.Complete(ctx, messages, chat.CompletionOptions{
		Temperature: narratorTemperature,
		MaxTokens:   narratorMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("narration request failed: %w", err)
	}

	var reply narrationReply
	if err := decodeJSON(resp.Content, &reply); err != nil {
		return nil, fmt.Errorf("invalid narration response: %w", err)
	}
	reply.Narrative = strings.TrimSpace(reply.Narrative)
	if reply.Narrative == "" {
		return nil, fmt.Errorf("invalid narration response: missing narrative")
	}

	out := &narration.Narration{
		Narrative:  reply.Narrative,
		MemoryNote: strings.TrimSpace(reply.MemoryNote),
		TokensUsed: resp.TotalTokens(),
	}
	if withDiff {
		d, err := state.ParseDiff(reply.Diff)
		if err != nil {
			return nil, fmt.Errorf("invalid narration diff: %w", err)
		}
		out.Diff = d
	} else if len(reply.Diff) > 0 && n.logger != nil {
		n.logger.Debug("ignoring diff on non-turn narration")
	}
	return out, nil
}
