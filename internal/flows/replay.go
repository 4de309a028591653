package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

// ReplayAct rewinds the game to the start of act n using the act's snapshot.
// Only the act's prologue survives; the hero canonical for act n is restored.
func (p *Processor) ReplayAct(ctx context.Context, gameID uuid.UUID, n int) (g *game.Game, err error) {
	ctx, span := p.startSpan(ctx, "flows.ReplayAct",
		attribute.String("game_id", gameID.String()),
		attribute.Int("act_number", n))
	defer func() { endSpan(span, err) }()

	release, err := p.lockGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = p.store.WithTx(ctx, func(tx storage.Tx) error {
		if g, err = loadGame(ctx, tx, gameID); err != nil {
			return err
		}
		s, err := p.catalog.Get(g.ScenarioSlug, g.Language)
		if err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		act, err := tx.GetActByNumber(ctx, g.ID, n)
		if err != nil {
			return fmt.Errorf("failed to load act %d: %w", n, err)
		}
		if act.Snapshot == nil {
			return fmt.Errorf("%w: act %d has no snapshot", ErrValidation, n)
		}

		turns, err := tx.ListTurns(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to list turns: %w", err)
		}
		keep := -1
		var transitions []uuid.UUID
		for _, t := range turns {
			if t.ActID == act.ID && t.Flags.Prologue && keep < 0 {
				keep = t.TurnNumber
			}
			if t.Flags.ActTransition && t.Flags.NextActNumber == n && t.ActID != act.ID {
				transitions = append(transitions, t.ActID)
			}
		}

		if err := tx.DeleteActsAfter(ctx, g.ID, n); err != nil {
			return fmt.Errorf("failed to discard later acts: %w", err)
		}
		if err := tx.DeleteTurnsAfter(ctx, act.ID, keep); err != nil {
			return fmt.Errorf("failed to discard act turns: %w", err)
		}
		for _, id := range transitions {
			if err := tx.DeleteActTransitionTurns(ctx, id); err != nil {
				return fmt.Errorf("failed to discard act transition: %w", err)
			}
		}

		g.WorldState = *act.Snapshot.Clone()
		g.Status = game.StatusActive
		if t := s.HeroForAct(n); t != nil {
			h, err := heroFor(ctx, tx, t)
			if err != nil {
				return err
			}
			g.HeroID = h.ID
		}
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to restore game: %w", err)
		}
		act.Status = game.ActActive
		if err := tx.UpdateAct(ctx, act); err != nil {
			return fmt.Errorf("failed to reactivate act: %w", err)
		}

		if err := tx.DeleteSavesBeyond(ctx, g.ID, n, max(keep, 0)); err != nil {
			return fmt.Errorf("failed to discard later saves: %w", err)
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Warn("Replay target missing", "game_id", gameID, "act_number", n, "error", err)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("Act replayed", "game_id", gameID, "act_number", n)
	return g, nil
}
