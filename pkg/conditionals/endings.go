package conditionals

import (
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// Built-in end condition ids.
const (
	TurnLimitReached = "turn_limit_reached"
	HealthDepleted   = "health_depleted"
	StoryExited      = "story_exited"
)

// EndResult is a terminal or act-advancing state.
type EndResult struct {
	ID        string
	Type      string
	Narrative string
	NextAct   int
}

// IsGoal reports whether the result counts as a success.
func (r *EndResult) IsGoal() bool {
	return r.Type == scenario.ConditionGoal || r.Type == scenario.ConditionActGoal
}

// CheckEnd evaluates, in order: the turn limit, health depletion, then the
// first declared condition of the current act whose predicate holds.
// It returns nil when the story continues.
func CheckEnd(s *scenario.Scenario, ws *state.WorldState, turnNumber int) *EndResult {
	p := state.NewPresenter(s, ws.ActNumber)

	if turnNumber >= p.TurnLimit() {
		return &EndResult{
			ID:        TurnLimitReached,
			Type:      scenario.ConditionFailure,
			Narrative: "Time runs out. The chance you were waiting for has passed.",
		}
	}
	if ws.Health <= 0 {
		return &EndResult{
			ID:        HealthDepleted,
			Type:      scenario.ConditionFailure,
			Narrative: "Your strength gives out. You cannot go on.",
		}
	}

	for _, c := range p.Conditions() {
		if conditionHolds(p, ws, c) {
			return &EndResult{
				ID:        c.ID,
				Type:      c.Type,
				Narrative: c.Narrative,
				NextAct:   c.NextAct,
			}
		}
	}
	return nil
}

func conditionHolds(p *state.Presenter, ws *state.WorldState, c scenario.Condition) bool {
	switch c.Check {
	case scenario.CheckPlayerAtScene:
		return c.Scene != "" && ws.PlayerScene == c.Scene
	case scenario.CheckActorHasStatus:
		return actorHasStatus(p, ws, c.Actor, c.Status)
	case scenario.CheckAllActorsHaveStatus:
		if len(c.Actors) == 0 {
			return false
		}
		for _, id := range c.Actors {
			if !actorHasStatus(p, ws, id, c.Status) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CheckExit returns the built-in goal ending when the player left fromScene
// through an exit that leaves the story. Callers use it once CheckEnd found
// nothing, so declared conditions on the destination scene take precedence.
func CheckExit(s *scenario.Scenario, ws *state.WorldState, fromScene string) *EndResult {
	p := state.NewPresenter(s, ws.ActNumber)
	if !p.IsExitScene(fromScene) || !p.LeavesStory(fromScene, ws.PlayerScene) {
		return nil
	}
	return &EndResult{
		ID:        StoryExited,
		Type:      scenario.ConditionGoal,
		Narrative: "You step past the last threshold and leave it all behind.",
	}
}
