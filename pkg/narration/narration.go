// Package narration defines the contracts of the two generative
// collaborators consumed by the turn flow: the difficulty rater and the
// narrator.
package narration

import (
	"context"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// RecentAction is one earlier player action and how it resolved.
type RecentAction struct {
	TurnNumber    int    `json:"turn_number"`
	Action        string `json:"action"`
	ResolutionTag string `json:"resolution_tag,omitempty"`
}

// RatingRequest is the input of a difficulty rating.
type RatingRequest struct {
	Action        string
	Scene         *state.SceneContext
	Hero          actor.Profile
	RecentActions []RecentAction
	WorldContext  string
	Language      string
}

// Rating is the rater's judgment of an action.
type Rating struct {
	Difficulty string `json:"difficulty"`
	Danger     string `json:"danger"`
	Impact     string `json:"impact"`
	Reasoning  string `json:"reasoning"`
	Irrelevant bool   `json:"irrelevant,omitempty"`
	TokensUsed int    `json:"-"`
}

// Outcome converts the rating for the resolver.
func (r Rating) Outcome() outcome.Rating {
	return outcome.Rating{
		Difficulty: r.Difficulty,
		Danger:     r.Danger,
		Impact:     r.Impact,
		Irrelevant: r.Irrelevant,
	}
}

// TurnContext bundles what the narrator needs to know about the story so far.
type TurnContext struct {
	WorldStateDelta []state.DeltaEntry
	MemoryNotes     []string
	RecentActions   []RecentAction
	RatingReasoning string
	HealthLost      int
}

// NarrationRequest is the input of a turn narration.
type NarrationRequest struct {
	Action        string
	ResolutionTag string
	Difficulty    string
	Scene         *state.SceneContext
	Hero          actor.Profile
	Turn          TurnContext
	WorldContext  string
	NarratorStyle string
	Language      string
}

// EpilogueRequest is the input of an ending or act-closing narration.
type EpilogueRequest struct {
	Action          string
	ResolutionTag   string
	Scene           *state.SceneContext
	EndingNarrative string
	EndingStatus    string
	WorldContext    string
	NarratorStyle   string
	Language        string
}

// PrologueRequest is the input of an act-opening narration.
type PrologueRequest struct {
	ActNumber     int
	ActIntro      string
	Scene         *state.SceneContext
	Hero          actor.Profile
	WorldContext  string
	NarratorStyle string
	Language      string
}

// Narration is the narrator's output. Diff is empty for epilogues and
// prologues.
type Narration struct {
	Narrative  string     `json:"narrative"`
	Diff       state.Diff `json:"diff"`
	MemoryNote string     `json:"memory_note,omitempty"`
	TokensUsed int        `json:"-"`
}

// DifficultyRater judges how hard, dangerous and impactful an action is.
type DifficultyRater interface {
	Rate(ctx context.Context, req RatingRequest) (*Rating, error)
}

// Narrator writes the story text and proposes world changes.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (*Narration, error)
	Epilogue(ctx context.Context, req EpilogueRequest) (*Narration, error)
	Prologue(ctx context.Context, req PrologueRequest) (*Narration, error)
}
