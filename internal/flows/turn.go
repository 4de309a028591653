package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/conditionals"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

// TurnResult is everything one player action produced.
type TurnResult struct {
	Game        *game.Game              `json:"game"`
	Turn        *game.Turn              `json:"turn"`
	Rating      narration.Rating        `json:"rating"`
	Outcome     outcome.Result          `json:"outcome"`
	FiredEvents []string                `json:"fired_events,omitempty"`
	End         *conditionals.EndResult `json:"end,omitempty"`
	// Epilogue is the ending turn, or the closing turn of an act transition.
	Epilogue *game.Turn `json:"epilogue,omitempty"`
	// Prologue opens the next act after a transition.
	Prologue *game.Turn `json:"prologue,omitempty"`
}

// turnState carries one turn through its steps. Everything up to commit is
// staged in memory; commitTurn writes it in one transaction.
type turnState struct {
	g        *game.Game
	s        *scenario.Scenario
	act      *game.Act
	pres     *state.Presenter
	hero     actor.Profile
	turns    []game.Turn
	number   int
	action   string
	res      *TurnResult
	postTurn *state.SceneContext

	world   *state.WorldState
	turn    *game.Turn
	ending  *game.Turn
	status  string
	advance *actAdvance
}

// actAdvance is a staged act transition.
type actAdvance struct {
	from, to int
	closing  *game.Turn
	world    *state.WorldState
	// hero is the template of an act-specific hero, nil to keep the current one.
	hero     *scenario.HeroTemplate
	prologue *narration.Narration
}

// ContinueTurn resolves one player action: rating, dice, narration, world
// changes, scenario events and end conditions. Everything it writes is
// committed together or not at all. Collaborators run before the write
// transaction opens; the turn lock keeps the game single-writer meanwhile.
func (p *Processor) ContinueTurn(ctx context.Context, gameID uuid.UUID, action string) (res *TurnResult, err error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrValidation)
	}

	ctx, span := p.startSpan(ctx, "flows.ContinueTurn", attribute.String("game_id", gameID.String()))
	defer func() { endSpan(span, err) }()

	release, err := p.lockGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer release()

	ts, err := p.beginTurn(ctx, gameID, action)
	if err != nil {
		return nil, err
	}
	err = p.playTurn(ctx, ts)
	if err == nil && ts.res.End != nil {
		err = p.finishTurn(ctx, ts)
	}
	if err == nil {
		err = p.store.WithTx(ctx, func(tx storage.Tx) error {
			return p.commitTurn(ctx, tx, ts)
		})
	}
	if err != nil {
		p.logger.Warn("Turn aborted", "game_id", gameID, "error", err)
		return nil, err
	}
	res = ts.res

	attrs := []any{
		"game_id", gameID,
		"turn_number", res.Turn.TurnNumber,
		"act_number", res.Turn.Flags.ActNumber,
		"resolution", res.Outcome.Tag,
		"tokens", res.Turn.TokensUsed,
	}
	if res.End != nil {
		attrs = append(attrs, "end", res.End.ID, "status", res.Game.Status)
	}
	p.logger.Info("Turn resolved", attrs...)
	if adv := ts.advance; adv != nil {
		p.logger.Info("Act advanced",
			"game_id", gameID,
			"from_act", adv.from,
			"act_number", adv.to,
			"condition", res.End.ID)
	}
	return res, nil
}

// beginTurn loads everything the turn reads before the first collaborator call.
func (p *Processor) beginTurn(ctx context.Context, gameID uuid.UUID, action string) (*turnState, error) {
	g, err := loadGame(ctx, p.store, gameID)
	if err != nil {
		return nil, err
	}
	if !g.IsActive() {
		return nil, fmt.Errorf("%w: game is %s", ErrValidation, g.Status)
	}
	s, err := p.catalog.Get(g.ScenarioSlug, g.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	acts, err := p.store.ListActs(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acts: %w", err)
	}
	act, ok := activeAct(acts)
	if !ok {
		return nil, fmt.Errorf("%w: game %s has no active act", ErrInvariant, g.ID)
	}
	turns, err := p.store.ListTurns(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	hero, err := heroProfile(ctx, p.store, g.HeroID)
	if err != nil {
		return nil, err
	}
	return &turnState{
		g:      g,
		s:      s,
		act:    act,
		pres:   state.NewPresenter(s, g.WorldState.ActNumber),
		hero:   hero,
		turns:  turns,
		number: nextTurnNumber(turns),
		action: action,
		res:    &TurnResult{},
	}, nil
}

func activeAct(acts []game.Act) (*game.Act, bool) {
	for i := range acts {
		if acts[i].Status == game.ActActive {
			return &acts[i], true
		}
	}
	return nil, false
}

// playTurn runs steps rate through end-check on a copy of the world state.
func (p *Processor) playTurn(ctx context.Context, ts *turnState) error {
	ws := ts.g.WorldState.Clone()
	scene, ok := ts.pres.SceneContext(ws, ws.PlayerScene)
	if !ok {
		return fmt.Errorf("%w: player scene %q is not declared in act %d", ErrInvariant, ws.PlayerScene, ws.ActNumber)
	}
	recent := recentActions(ts.turns)

	rating, err := collaborate(ctx, p, "rater.Rate", func(ctx context.Context) (*narration.Rating, error) {
		return p.rater.Rate(ctx, narration.RatingRequest{
			Action:        ts.action,
			Scene:         scene,
			Hero:          ts.hero,
			RecentActions: recent,
			WorldContext:  ts.s.WorldContext,
			Language:      ts.g.Language,
		})
	})
	if err != nil {
		return err
	}
	ts.res.Rating = *rating

	_, span := p.startSpan(ctx, "outcome.Resolve", attribute.String("difficulty", rating.Difficulty))
	result := p.resolver.Resolve(ws, rating.Outcome())
	span.SetAttributes(attribute.String("resolution", result.Tag), attribute.Int("roll", result.Roll))
	span.End()
	ts.res.Outcome = result

	narr, err := collaborate(ctx, p, "narrator.Narrate", func(ctx context.Context) (*narration.Narration, error) {
		return p.narrator.Narrate(ctx, narration.NarrationRequest{
			Action:        ts.action,
			ResolutionTag: result.Tag,
			Difficulty:    rating.Difficulty,
			Scene:         scene,
			Hero:          ts.hero,
			Turn: narration.TurnContext{
				WorldStateDelta: ts.pres.WorldStateDelta(ws),
				MemoryNotes:     memoryNotes(ts.turns),
				RecentActions:   recent,
				RatingReasoning: rating.Reasoning,
				HealthLost:      result.HealthLoss,
			},
			WorldContext:  ts.s.WorldContext,
			NarratorStyle: ts.s.NarratorStyle,
			Language:      ts.g.Language,
		})
	})
	if err != nil {
		return err
	}

	_, span = p.startSpan(ctx, "state.Apply")
	dw := state.NewDiffWorker(ts.s, ws.ActNumber, p.logger)
	next := dw.Apply(ws, narr.Diff)
	next.ActTurn = ws.ActTurn + 1
	span.End()

	_, span = p.startSpan(ctx, "conditionals.ApplyEvents")
	next, fired := conditionals.ApplyEvents(dw, ts.pres, next, ts.number, p.logger)
	for _, ev := range fired {
		ts.res.FiredEvents = append(ts.res.FiredEvents, ev.ID)
	}
	span.SetAttributes(attribute.Int("fired", len(fired)))
	span.End()
	ts.world = next

	ts.turn = &game.Turn{
		GameID:         ts.g.ID,
		ActID:          ts.act.ID,
		TurnNumber:     ts.number,
		Content:        narr.Narrative,
		OptionSelected: ts.action,
		ResolutionTag:  result.Tag,
		LLMMemory:      narr.MemoryNote,
		TokensUsed:     rating.TokensUsed + narr.TokensUsed,
		Flags:          game.TurnFlags{ActNumber: ws.ActNumber},
	}
	ts.res.Turn = ts.turn

	_, span = p.startSpan(ctx, "conditionals.CheckEnd")
	ts.res.End = conditionals.CheckEnd(ts.s, next, ts.number)
	if ts.res.End == nil {
		ts.res.End = conditionals.CheckExit(ts.s, next, ws.PlayerScene)
	}
	if ts.res.End != nil {
		span.SetAttributes(attribute.String("end", ts.res.End.ID))
	}
	span.End()

	ts.postTurn, ok = ts.pres.SceneContext(next, next.PlayerScene)
	if !ok {
		ts.postTurn = scene
	}
	return nil
}

// finishTurn stages either the roll into the next act or the ending.
func (p *Processor) finishTurn(ctx context.Context, ts *turnState) error {
	end := ts.res.End
	if end.Type == scenario.ConditionActGoal {
		next := end.NextAct
		if next == 0 {
			next = ts.world.ActNumber + 1
		}
		if _, ok := ts.s.Act(next); ok {
			return p.advanceAct(ctx, ts, next)
		}
	}
	return p.endGame(ctx, ts)
}

func (p *Processor) epilogue(ctx context.Context, ts *turnState, status string) (*narration.Narration, error) {
	return collaborate(ctx, p, "narrator.Epilogue", func(ctx context.Context) (*narration.Narration, error) {
		return p.narrator.Epilogue(ctx, narration.EpilogueRequest{
			Action:          ts.action,
			ResolutionTag:   ts.res.Outcome.Tag,
			Scene:           ts.postTurn,
			EndingNarrative: ts.res.End.Narrative,
			EndingStatus:    status,
			WorldContext:    ts.s.WorldContext,
			NarratorStyle:   ts.s.NarratorStyle,
			Language:        ts.g.Language,
		})
	})
}

func (p *Processor) endGame(ctx context.Context, ts *turnState) error {
	end := ts.res.End
	status := game.StatusFailed
	if end.IsGoal() {
		status = game.StatusCompleted
	}

	out, err := p.epilogue(ctx, ts, status)
	if err != nil {
		return err
	}
	ts.ending = &game.Turn{
		GameID:     ts.g.ID,
		ActID:      ts.act.ID,
		TurnNumber: ts.number + 1,
		Content:    out.Narrative,
		LLMMemory:  out.MemoryNote,
		TokensUsed: out.TokensUsed,
		Flags: game.TurnFlags{
			ActNumber:         ts.world.ActNumber,
			Ending:            true,
			EndingStatus:      status,
			EndingConditionID: end.ID,
		},
	}
	ts.status = status
	ts.res.Epilogue = ts.ending
	return nil
}

func (p *Processor) advanceAct(ctx context.Context, ts *turnState, next int) error {
	end := ts.res.End
	adv := &actAdvance{from: ts.world.ActNumber, to: next}

	out, err := p.epilogue(ctx, ts, game.ActCompleted)
	if err != nil {
		return err
	}
	adv.closing = &game.Turn{
		GameID:     ts.g.ID,
		ActID:      ts.act.ID,
		TurnNumber: ts.number + 1,
		Content:    out.Narrative,
		LLMMemory:  out.MemoryNote,
		TokensUsed: out.TokensUsed,
		Flags: game.TurnFlags{
			ActNumber:         adv.from,
			ActTransition:     true,
			EndingConditionID: end.ID,
			NextActNumber:     next,
		},
	}

	adv.world = ts.world.Clone()
	adv.world.ResetForAct(ts.s, next)
	hero := ts.hero
	if t, ok := ts.s.Act(next); ok && t.Hero != nil {
		spec, err := lookupHero(ctx, p.store, t.Hero)
		if err != nil {
			return err
		}
		if hero, err = profileOf(spec); err != nil {
			return err
		}
		adv.hero = t.Hero
	}
	if adv.prologue, err = p.narratePrologue(ctx, ts.s, adv.world, ts.g.Language, hero); err != nil {
		return err
	}

	ts.advance = adv
	ts.res.Epilogue = adv.closing
	return nil
}

// commitTurn writes the staged turn. It refuses to write over a game that
// changed since beginTurn read it.
func (p *Processor) commitTurn(ctx context.Context, tx storage.Tx, ts *turnState) error {
	g, err := loadGame(ctx, tx, ts.g.ID)
	if err != nil {
		return err
	}
	if !g.UpdatedAt.Equal(ts.g.UpdatedAt) {
		return fmt.Errorf("%w: game %s changed during the turn", ErrTurnInProgress, g.ID)
	}
	g.WorldState = *ts.world

	if err := tx.CreateTurn(ctx, ts.turn); err != nil {
		return fmt.Errorf("failed to create turn: %w", err)
	}

	switch {
	case ts.ending != nil:
		if err := tx.CreateTurn(ctx, ts.ending); err != nil {
			return fmt.Errorf("failed to create ending turn: %w", err)
		}
		g.Status = ts.status
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to end game: %w", err)
		}
		if err := p.completeAct(ctx, tx, ts.act); err != nil {
			return err
		}

	case ts.advance != nil:
		adv := ts.advance
		if err := tx.CreateTurn(ctx, adv.closing); err != nil {
			return fmt.Errorf("failed to create act transition turn: %w", err)
		}
		if err := p.completeAct(ctx, tx, ts.act); err != nil {
			return err
		}
		g.WorldState = *adv.world
		if adv.hero != nil {
			h, err := heroFor(ctx, tx, adv.hero)
			if err != nil {
				return err
			}
			g.HeroID = h.ID
		}
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to persist act %d world state: %w", adv.to, err)
		}
		nextAct, err := p.activateAct(ctx, tx, g, adv.to)
		if err != nil {
			return err
		}
		prologue := prologueRecord(adv.prologue, g, nextAct, ts.number+2)
		if err := tx.CreateTurn(ctx, prologue); err != nil {
			return fmt.Errorf("failed to create prologue turn: %w", err)
		}
		ts.res.Prologue = prologue

	default:
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to persist world state: %w", err)
		}
	}

	ts.g = g
	ts.res.Game = g
	return nil
}

func (p *Processor) completeAct(ctx context.Context, tx storage.Tx, act *game.Act) error {
	act.Status = game.ActCompleted
	if err := tx.UpdateAct(ctx, act); err != nil {
		return fmt.Errorf("failed to complete act: %w", err)
	}
	return nil
}

// activateAct finds or creates act number n of g, marks it active and
// snapshots the game's current world state onto it.
func (p *Processor) activateAct(ctx context.Context, tx storage.Tx, g *game.Game, n int) (*game.Act, error) {
	act, err := tx.GetActByNumber(ctx, g.ID, n)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		act = &game.Act{GameID: g.ID, Number: n, Status: game.ActActive, Snapshot: g.WorldState.Clone()}
		if err := tx.CreateAct(ctx, act); err != nil {
			return nil, fmt.Errorf("failed to create act %d: %w", n, err)
		}
		return act, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load act %d: %w", n, err)
	}
	act.Status = game.ActActive
	act.Snapshot = g.WorldState.Clone()
	if err := tx.UpdateAct(ctx, act); err != nil {
		return nil, fmt.Errorf("failed to activate act %d: %w", n, err)
	}
	return act, nil
}
