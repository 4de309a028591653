package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

// SaveGame captures the game's world state at its latest turn. An empty label
// gets the default "Act N, Turn M".
func (p *Processor) SaveGame(ctx context.Context, gameID uuid.UUID, label string, userID *uuid.UUID) (save *game.Save, err error) {
	ctx, span := p.startSpan(ctx, "flows.SaveGame", attribute.String("game_id", gameID.String()))
	defer func() { endSpan(span, err) }()

	err = p.store.WithTx(ctx, func(tx storage.Tx) error {
		g, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		turns, err := tx.ListTurns(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to list turns: %w", err)
		}

		ws := g.WorldState.Clone()
		save = &game.Save{
			GameID:     g.ID,
			UserID:     userID,
			HeroID:     g.HeroID,
			WorldState: *ws,
			ActNumber:  ws.ActNumber,
			TurnNumber: lastTurnNumber(turns),
			Label:      strings.TrimSpace(label),
		}
		if save.Label == "" {
			save.Label = game.DefaultSaveLabel(save.ActNumber, save.TurnNumber)
		}
		if err := tx.CreateSave(ctx, save); err != nil {
			return fmt.Errorf("failed to create save: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Game saved",
		"game_id", gameID,
		"save_id", save.ID,
		"act_number", save.ActNumber,
		"turn_number", save.TurnNumber)
	return save, nil
}

// ListSaves returns the saves of a game, newest first.
func (p *Processor) ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error) {
	if _, err := loadGame(ctx, p.store, gameID); err != nil {
		return nil, err
	}
	saves, err := p.store.ListSaves(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	return saves, nil
}

// LoadSave rewinds the game to a save point. Acts after the saved act, turns
// after the saved turn and saves newer than the loaded one are discarded.
func (p *Processor) LoadSave(ctx context.Context, gameID, saveID uuid.UUID) (g *game.Game, err error) {
	ctx, span := p.startSpan(ctx, "flows.LoadSave",
		attribute.String("game_id", gameID.String()),
		attribute.String("save_id", saveID.String()))
	defer func() { endSpan(span, err) }()

	release, err := p.lockGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer release()

	var save *game.Save
	err = p.store.WithTx(ctx, func(tx storage.Tx) error {
		save, err = tx.GetSave(ctx, saveID)
		if err != nil {
			return fmt.Errorf("failed to load save: %w", err)
		}
		if save.GameID != gameID {
			return fmt.Errorf("%w: save %s belongs to another game", ErrValidation, saveID)
		}
		if g, err = loadGame(ctx, tx, gameID); err != nil {
			return err
		}

		if err := tx.DeleteActsAfter(ctx, g.ID, save.ActNumber); err != nil {
			return fmt.Errorf("failed to discard later acts: %w", err)
		}
		act, err := tx.GetActByNumber(ctx, g.ID, save.ActNumber)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: saved act %d is missing", ErrInvariant, save.ActNumber)
		}
		if err != nil {
			return fmt.Errorf("failed to load saved act: %w", err)
		}
		if err := tx.DeleteTurnsAfter(ctx, act.ID, save.TurnNumber); err != nil {
			return fmt.Errorf("failed to discard later turns: %w", err)
		}

		g.WorldState = *save.WorldState.Clone()
		g.HeroID = save.HeroID
		g.Status = game.StatusActive
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("failed to restore game: %w", err)
		}
		act.Status = game.ActActive
		if err := tx.UpdateAct(ctx, act); err != nil {
			return fmt.Errorf("failed to reactivate act: %w", err)
		}

		if err := tx.DeleteSavesCreatedAfter(ctx, g.ID, save.CreatedAt); err != nil {
			return fmt.Errorf("failed to discard newer saves: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Save loaded",
		"game_id", gameID,
		"save_id", saveID,
		"act_number", save.ActNumber,
		"turn_number", save.TurnNumber)
	return g, nil
}
