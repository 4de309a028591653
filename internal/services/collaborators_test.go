package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/chat"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/prompts"
	"github.com/jwebster45206/story-arena/pkg/state"
)

func testScene() *state.SceneContext {
	return &state.SceneContext{ID: "cell", Name: "Your Cell"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRatingService_Rate(t *testing.T) {
	llm := NewMockLLMAPI()
	llm.SetResponse("```json\n{\"difficulty\":\"Hard\",\"danger\":\"high\",\"impact\":\"major\",\"reasoning\":\"Guards are near.\"}\n```", 90, 20)
	rater := NewRatingService(llm, discardLogger())

	rating, err := rater.Rate(context.Background(), narration.RatingRequest{
		Action:   "pick the lock",
		Scene:    testScene(),
		Hero:     actor.Profile{Name: "Frank"},
		Language: "pl",
	})
	require.NoError(t, err)
	assert.Equal(t, "hard", rating.Difficulty)
	assert.Equal(t, "high", rating.Danger)
	assert.Equal(t, "major", rating.Impact)
	assert.Equal(t, "Guards are near.", rating.Reasoning)
	assert.Equal(t, 110, rating.TokensUsed)

	calls := llm.GetCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.JSON)
	assert.Equal(t, ratingTemperature, calls[0].Options.Temperature)
	assert.True(t, strings.HasPrefix(calls[0].Messages[0].Content, prompts.RatingSystemPrompt))
	assert.Contains(t, calls[0].Messages[1].Content, "PLAYER ACTION: pick the lock")
}

func TestRatingService_RateErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*MockLLMAPI)
	}{
		{"backend error", func(m *MockLLMAPI) { m.SetCompleteError(errors.New("boom")) }},
		{"not json", func(m *MockLLMAPI) { m.SetResponse("I think it is easy.", 1, 1) }},
		{"missing difficulty", func(m *MockLLMAPI) { m.SetResponse(`{"danger":"low"}`, 1, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := NewMockLLMAPI()
			tt.setup(llm)
			_, err := NewRatingService(llm, discardLogger()).Rate(context.Background(), narration.RatingRequest{Scene: testScene()})
			assert.Error(t, err)
		})
	}
}

func TestNarratorService_Narrate(t *testing.T) {
	llm := NewMockLLMAPI()
	llm.SetResponse(`Here you go: {"narrative":"The grate gives way.","diff":{"object_updates":{"loose_grate":{"status":"removed"}},"player_moved_to":"vent_shaft"},"memory_note":"Frank is in the vents."}`, 200, 80)
	narrator := NewNarratorService(llm, discardLogger())

	out, err := narrator.Narrate(context.Background(), narration.NarrationRequest{
		Action:        "pull the grate",
		ResolutionTag: "success",
		Difficulty:    "medium",
		Scene:         testScene(),
		Turn:          narration.TurnContext{RatingReasoning: "Rusty screws.", HealthLost: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "The grate gives way.", out.Narrative)
	assert.Equal(t, "Frank is in the vents.", out.MemoryNote)
	assert.Equal(t, 280, out.TokensUsed)
	assert.Equal(t, "vent_shaft", out.Diff.PlayerMovedTo)
	assert.Equal(t, "removed", out.Diff.ObjectUpdates["loose_grate"].Status)

	user := llm.GetCalls()[0].Messages[1].Content
	assert.Contains(t, user, "OUTCOME: success (difficulty medium)")
	assert.Contains(t, user, "REFEREE NOTES: Rusty screws.")
	assert.Contains(t, user, "HEALTH LOST: 3")
	assert.Equal(t, chat.ChatRoleUser, llm.GetCalls()[0].Messages[1].Role)
}

func TestNarratorService_MissingNarrative(t *testing.T) {
	llm := NewMockLLMAPI()
	llm.SetResponse(`{"diff":{}}`, 1, 1)
	_, err := NewNarratorService(llm, discardLogger()).Narrate(context.Background(), narration.NarrationRequest{Scene: testScene()})
	assert.Error(t, err)
}

func TestNarratorService_EpilogueAndPrologue(t *testing.T) {
	llm := NewMockLLMAPI()
	llm.SetResponse(`{"narrative":"  Dawn breaks.  ","diff":{"player_moved_to":"yard"}}`, 10, 5)
	narrator := NewNarratorService(llm, discardLogger())

	ep, err := narrator.Epilogue(context.Background(), narration.EpilogueRequest{
		Scene:           testScene(),
		EndingNarrative: "You reach the laundry.",
		EndingStatus:    "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dawn breaks.", ep.Narrative)
	assert.True(t, ep.Diff.IsEmpty(), "epilogue must not carry a diff")

	pro, err := narrator.Prologue(context.Background(), narration.PrologueRequest{
		ActNumber: 2,
		ActIntro:  "The wall looms.",
		Scene:     testScene(),
	})
	require.NoError(t, err)
	assert.True(t, pro.Diff.IsEmpty())

	calls := llm.GetCalls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Messages[1].Content, "ENDING (completed): You reach the laundry.")
	assert.True(t, strings.HasPrefix(calls[1].Messages[0].Content, prompts.PrologueSystemPrompt))
	assert.Contains(t, calls[1].Messages[1].Content, "ACT 2: The wall looms.")
}

func TestMockLLMAPI_Default(t *testing.T) {
	m := NewMockLLMAPI()
	resp, err := m.Complete(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}}, chat.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Len(t, m.GetCalls(), 1)
	m.Reset()
	assert.Empty(t, m.GetCalls())
}
