package flows

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// View is a read-only snapshot of a game for clients.
type View struct {
	Game  *game.Game          `json:"game"`
	Hero  *actor.HeroSpec     `json:"hero"`
	Acts  []game.Act          `json:"acts"`
	Turns []game.Turn         `json:"turns"`
	Scene *state.SceneContext `json:"scene,omitempty"`
}

// GameView loads a game with its hero, acts, turns and the player's scene.
func (p *Processor) GameView(ctx context.Context, gameID uuid.UUID) (*View, error) {
	g, err := loadGame(ctx, p.store, gameID)
	if err != nil {
		return nil, err
	}
	hero, err := p.store.GetHero(ctx, g.HeroID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero: %w", err)
	}
	acts, err := p.store.ListActs(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acts: %w", err)
	}
	turns, err := p.store.ListTurns(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	v := &View{Game: g, Hero: hero, Acts: acts, Turns: turns}
	if s, err := p.catalog.Get(g.ScenarioSlug, g.Language); err == nil {
		pres := state.NewPresenter(s, g.WorldState.ActNumber)
		v.Scene, _ = pres.SceneContext(&g.WorldState, g.WorldState.PlayerScene)
	} else {
		p.logger.Warn("Scenario unavailable for game view", "game_id", g.ID, "scenario", g.ScenarioSlug, "error", err)
	}
	return v, nil
}
