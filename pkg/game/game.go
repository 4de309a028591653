// Package game defines the persisted records of a play-through: the game,
// its acts, its append-only turns and user saves.
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// Game statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Act statuses
const (
	ActActive    = "active"
	ActCompleted = "completed"
)

// Game is one play-through of a scenario.
type Game struct {
	ID           uuid.UUID        `json:"id"`
	HeroID       uuid.UUID        `json:"hero_id"`
	UserID       *uuid.UUID       `json:"user_id,omitempty"`
	ScenarioSlug string           `json:"scenario_slug"`
	Status       string           `json:"status"`
	WorldState   state.WorldState `json:"world_state"`
	Language     string           `json:"language"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsActive reports whether the game still accepts turns.
func (g *Game) IsActive() bool {
	return g.Status == StatusActive
}

// Act records one act of a game. Snapshot is the world state at the moment
// the act became active.
type Act struct {
	ID        uuid.UUID         `json:"id"`
	GameID    uuid.UUID         `json:"game_id"`
	Number    int               `json:"number"`
	Status    string            `json:"status"`
	Snapshot  *state.WorldState `json:"world_state_snapshot,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TurnFlags marks structural turns.
type TurnFlags struct {
	Prologue          bool   `json:"prologue,omitempty"`
	ActNumber         int    `json:"act_number,omitempty"`
	Ending            bool   `json:"ending,omitempty"`
	EndingStatus      string `json:"ending_status,omitempty"`
	EndingConditionID string `json:"ending_condition_id,omitempty"`
	ActTransition     bool   `json:"act_transition,omitempty"`
	NextActNumber     int    `json:"next_act_number,omitempty"`
}

// Turn is an append-only record of one step of the story. Turn 0 is the
// opening prologue. OptionSelected and ResolutionTag are empty for
// system-generated turns.
type Turn struct {
	ID             uuid.UUID `json:"id"`
	GameID         uuid.UUID `json:"game_id"`
	ActID          uuid.UUID `json:"act_id"`
	TurnNumber     int       `json:"turn_number"`
	Content        string    `json:"content"`
	OptionSelected string    `json:"option_selected,omitempty"`
	ResolutionTag  string    `json:"resolution_tag,omitempty"`
	LLMMemory      string    `json:"llm_memory,omitempty"`
	TokensUsed     int       `json:"tokens_used"`
	Flags          TurnFlags `json:"flags"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsPlayerTurn reports whether the turn resolved a player action.
func (t *Turn) IsPlayerTurn() bool {
	return t.OptionSelected != ""
}

// Save is a user-captured snapshot of a game.
type Save struct {
	ID         uuid.UUID        `json:"id"`
	GameID     uuid.UUID        `json:"game_id"`
	UserID     *uuid.UUID       `json:"user_id,omitempty"`
	HeroID     uuid.UUID        `json:"hero_id"`
	WorldState state.WorldState `json:"world_state"`
	ActNumber  int              `json:"act_number"`
	TurnNumber int              `json:"turn_number"`
	Label      string           `json:"label"`
	CreatedAt  time.Time        `json:"created_at"`
}

// DefaultSaveLabel names a save after its position in the story.
func DefaultSaveLabel(actNumber, turnNumber int) string {
	return fmt.Sprintf("Act %d, Turn %d", actNumber, turnNumber)
}
