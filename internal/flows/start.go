package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

// StartRequest begins a new game.
type StartRequest struct {
	ScenarioSlug string
	HeroID       *uuid.UUID
	UserID       *uuid.UUID
	Language     string
}

// StartResult is the freshly created game with its first act and prologue.
type StartResult struct {
	Game     *game.Game `json:"game"`
	Act      *game.Act  `json:"act"`
	Prologue *game.Turn `json:"prologue"`
}

// StartScenario creates a game at act 1 with the scenario's default world
// state and a turn-0 prologue. The prologue is narrated before the write
// transaction opens.
func (p *Processor) StartScenario(ctx context.Context, req StartRequest) (res *StartResult, err error) {
	ctx, span := p.startSpan(ctx, "flows.StartScenario", attribute.String("scenario", req.ScenarioSlug))
	defer func() { endSpan(span, err) }()

	lang, err := p.resolveLanguage(req.Language)
	if err != nil {
		return nil, err
	}
	s, err := p.catalog.Get(req.ScenarioSlug, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	first := s.FirstAct()
	if first == nil {
		return nil, fmt.Errorf("%w: scenario %q has no acts", ErrValidation, s.Slug)
	}

	hero, template, err := p.startingHero(ctx, s, req.HeroID)
	if err != nil {
		return nil, err
	}
	profile, err := profileOf(hero)
	if err != nil {
		return nil, err
	}
	ws := state.New(s, first.Number)
	out, err := p.narratePrologue(ctx, s, ws, lang, profile)
	if err != nil {
		return nil, err
	}

	err = p.store.WithTx(ctx, func(tx storage.Tx) error {
		if template != nil {
			h, err := heroFor(ctx, tx, template)
			if err != nil {
				return err
			}
			hero = h
		}

		g := &game.Game{
			HeroID:       hero.ID,
			UserID:       req.UserID,
			ScenarioSlug: s.Slug,
			Status:       game.StatusActive,
			WorldState:   *ws.Clone(),
			Language:     lang,
		}
		if err := tx.CreateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to create game: %w", err)
		}

		act := &game.Act{GameID: g.ID, Number: first.Number, Status: game.ActActive, Snapshot: ws.Clone()}
		if err := tx.CreateAct(ctx, act); err != nil {
			return fmt.Errorf("failed to create act: %w", err)
		}

		prologue := prologueRecord(out, g, act, 0)
		if err := tx.CreateTurn(ctx, prologue); err != nil {
			return fmt.Errorf("failed to create prologue turn: %w", err)
		}

		res = &StartResult{Game: g, Act: act, Prologue: prologue}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Game started",
		"game_id", res.Game.ID,
		"scenario", s.Slug,
		"hero", res.Game.HeroID,
		"language", lang)
	return res, nil
}

// startingHero resolves an explicit hero id or the scenario's template. The
// template is returned when the hero still has to be persisted on commit.
func (p *Processor) startingHero(ctx context.Context, s *scenario.Scenario, heroID *uuid.UUID) (*actor.HeroSpec, *scenario.HeroTemplate, error) {
	if heroID != nil {
		h, err := p.store.GetHero(ctx, *heroID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("hero %s: %w", *heroID, err)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load hero: %w", err)
		}
		return h, nil, nil
	}
	t := s.HeroForAct(s.FirstAct().Number)
	if t == nil {
		return nil, nil, fmt.Errorf("%w: scenario %q has no hero template", ErrValidation, s.Slug)
	}
	h, err := lookupHero(ctx, p.store, t)
	if err != nil {
		return nil, nil, err
	}
	return h, t, nil
}

// narratePrologue narrates the opening of the act ws is in.
func (p *Processor) narratePrologue(ctx context.Context, s *scenario.Scenario, ws *state.WorldState, lang string, hero actor.Profile) (*narration.Narration, error) {
	pres := state.NewPresenter(s, ws.ActNumber)
	scene, ok := pres.SceneContext(ws, ws.PlayerScene)
	if !ok {
		return nil, fmt.Errorf("%w: player scene %q is not declared in act %d", ErrInvariant, ws.PlayerScene, ws.ActNumber)
	}
	return collaborate(ctx, p, "narrator.Prologue", func(ctx context.Context) (*narration.Narration, error) {
		return p.narrator.Prologue(ctx, narration.PrologueRequest{
			ActNumber:     ws.ActNumber,
			ActIntro:      pres.Act().Intro,
			Scene:         scene,
			Hero:          hero,
			WorldContext:  s.WorldContext,
			NarratorStyle: s.NarratorStyle,
			Language:      lang,
		})
	})
}

// prologueRecord is the prologue turn number n of act.
func prologueRecord(out *narration.Narration, g *game.Game, act *game.Act, n int) *game.Turn {
	return &game.Turn{
		GameID:     g.ID,
		ActID:      act.ID,
		TurnNumber: n,
		Content:    out.Narrative,
		LLMMemory:  out.MemoryNote,
		TokensUsed: out.TokensUsed,
		Flags:      game.TurnFlags{Prologue: true, ActNumber: act.Number},
	}
}
