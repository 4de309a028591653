package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

type tx struct {
	reader
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) CreateHero(ctx context.Context, h *actor.HeroSpec) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	attrs, err := json.Marshal(h.Attributes)
	if err != nil {
		return fmt.Errorf("encode hero attributes: %w", err)
	}
	if h.Attributes == nil {
		attrs = []byte("{}")
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO heroes (`+heroColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.Slug, h.Name, h.Description, h.Sex, h.HP, h.AC, string(attrs), toMillis(h.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hero slug %q already exists: %w", h.Slug, err)
		}
		return fmt.Errorf("insert hero: %w", err)
	}
	return nil
}

func (t *tx) CreateGame(ctx context.Context, g *game.Game) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	ws, err := json.Marshal(g.WorldState)
	if err != nil {
		return fmt.Errorf("encode world state: %w", err)
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO games (`+gameColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.HeroID.String(), nullableUUID(g.UserID), g.ScenarioSlug, g.Status, string(ws), g.Language,
		toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (t *tx) UpdateGame(ctx context.Context, g *game.Game) error {
	g.UpdatedAt = time.Now().UTC()
	ws, err := json.Marshal(g.WorldState)
	if err != nil {
		return fmt.Errorf("encode world state: %w", err)
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE games SET hero_id = ?, status = ?, world_state = ?, language = ?, updated_at = ? WHERE id = ?`,
		g.HeroID.String(), g.Status, string(ws), g.Language, toMillis(g.UpdatedAt), g.ID.String())
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return requireRow(res, fmt.Sprintf("game %s", g.ID))
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

func encodeSnapshot(a *game.Act) (any, error) {
	if a.Snapshot == nil {
		return nil, nil
	}
	b, err := json.Marshal(a.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode act snapshot: %w", err)
	}
	return string(b), nil
}

func (t *tx) CreateAct(ctx context.Context, a *game.Act) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	snapshot, err := encodeSnapshot(a)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO acts (`+actColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.GameID.String(), a.Number, a.Status, snapshot, toMillis(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("act %d already exists for game %s: %w", a.Number, a.GameID, err)
		}
		return fmt.Errorf("insert act: %w", err)
	}
	return nil
}

func (t *tx) UpdateAct(ctx context.Context, a *game.Act) error {
	snapshot, err := encodeSnapshot(a)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE acts SET status = ?, snapshot = ? WHERE id = ?`, a.Status, snapshot, a.ID.String())
	if err != nil {
		return fmt.Errorf("update act: %w", err)
	}
	return requireRow(res, fmt.Sprintf("act %s", a.ID))
}

func (t *tx) GetActByNumber(ctx context.Context, gameID uuid.UUID, number int) (*game.Act, error) {
	a, err := scanAct(t.q.QueryRowContext(ctx,
		`SELECT `+actColumns+` FROM acts WHERE game_id = ? AND number = ?`, gameID.String(), number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("act %d: %w", number, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get act: %w", err)
	}
	return a, nil
}

func (t *tx) ActiveAct(ctx context.Context, gameID uuid.UUID) (*game.Act, error) {
	a, err := scanAct(t.q.QueryRowContext(ctx,
		`SELECT `+actColumns+` FROM acts WHERE game_id = ? AND status = ? ORDER BY number DESC LIMIT 1`,
		gameID.String(), game.ActActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active act: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active act: %w", err)
	}
	return a, nil
}

func (t *tx) DeleteActsAfter(ctx context.Context, gameID uuid.UUID, number int) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM turns WHERE act_id IN (SELECT id FROM acts WHERE game_id = ? AND number > ?)`,
		gameID.String(), number); err != nil {
		return fmt.Errorf("delete turns of acts: %w", err)
	}
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM acts WHERE game_id = ? AND number > ?`, gameID.String(), number); err != nil {
		return fmt.Errorf("delete acts: %w", err)
	}
	return nil
}

func (t *tx) CreateTurn(ctx context.Context, turn *game.Turn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	flags, err := json.Marshal(turn.Flags)
	if err != nil {
		return fmt.Errorf("encode turn flags: %w", err)
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO turns (`+turnColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID.String(), turn.GameID.String(), turn.ActID.String(), turn.TurnNumber, turn.Content,
		turn.OptionSelected, turn.ResolutionTag, turn.LLMMemory, turn.TokensUsed, string(flags), toMillis(turn.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("turn %d already exists for game %s: %w", turn.TurnNumber, turn.GameID, err)
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (t *tx) DeleteTurnsAfter(ctx context.Context, actID uuid.UUID, turnNumber int) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM turns WHERE act_id = ? AND turn_number > ?`, actID.String(), turnNumber); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	return nil
}

func (t *tx) DeleteActTransitionTurns(ctx context.Context, actID uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM turns WHERE act_id = ? AND json_extract(flags, '$.act_transition') = 1`, actID.String()); err != nil {
		return fmt.Errorf("delete act transition turns: %w", err)
	}
	return nil
}

func (t *tx) CreateSave(ctx context.Context, s *game.Save) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	ws, err := json.Marshal(s.WorldState)
	if err != nil {
		return fmt.Errorf("encode save world state: %w", err)
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO saves (`+saveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.GameID.String(), nullableUUID(s.UserID), s.HeroID.String(), string(ws),
		s.ActNumber, s.TurnNumber, s.Label, toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert save: %w", err)
	}
	return nil
}

func (t *tx) DeleteSavesCreatedAfter(ctx context.Context, gameID uuid.UUID, after time.Time) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM saves WHERE game_id = ? AND created_at > ?`, gameID.String(), toMillis(after)); err != nil {
		return fmt.Errorf("delete saves: %w", err)
	}
	return nil
}

func (t *tx) DeleteSavesBeyond(ctx context.Context, gameID uuid.UUID, actNumber, turnNumber int) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM saves WHERE game_id = ? AND (act_number > ? OR (act_number = ? AND turn_number > ?))`,
		gameID.String(), actNumber, actNumber, turnNumber); err != nil {
		return fmt.Errorf("delete saves: %w", err)
	}
	return nil
}
