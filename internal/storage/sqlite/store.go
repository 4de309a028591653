// Package sqlite provides a SQLite-backed implementation of storage.Storage.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jwebster45206/story-arena/internal/storage/sqlite/migrations"
	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/state"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

// Store persists games in SQLite.
type Store struct {
	reader
	sqlDB *sql.DB
}

var _ storage.Storage = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{reader: reader{q: sqlDB}, sqlDB: sqlDB}, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// WithTx runs fn inside one SQL transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{reader: reader{q: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullableUUID(v sql.NullString) (*uuid.UUID, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// reader implements storage.Reader over a querier.
type reader struct {
	q querier
}

const heroColumns = `id, slug, name, description, sex, hp, ac, attributes, created_at`

func scanHero(row scanner) (*actor.HeroSpec, error) {
	var (
		h         actor.HeroSpec
		id        string
		attrs     string
		createdAt int64
	)
	if err := row.Scan(&id, &h.Slug, &h.Name, &h.Description, &h.Sex, &h.HP, &h.AC, &attrs, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if h.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse hero id: %w", err)
	}
	if err := json.Unmarshal([]byte(attrs), &h.Attributes); err != nil {
		return nil, fmt.Errorf("decode hero attributes: %w", err)
	}
	h.CreatedAt = fromMillis(createdAt)
	return &h, nil
}

func (r reader) GetHero(ctx context.Context, id uuid.UUID) (*actor.HeroSpec, error) {
	h, err := scanHero(r.q.QueryRowContext(ctx, `SELECT `+heroColumns+` FROM heroes WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hero %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get hero: %w", err)
	}
	return h, nil
}

func (r reader) FindHeroBySlug(ctx context.Context, slug string) (*actor.HeroSpec, error) {
	h, err := scanHero(r.q.QueryRowContext(ctx, `SELECT `+heroColumns+` FROM heroes WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hero %q: %w", slug, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find hero: %w", err)
	}
	return h, nil
}

const gameColumns = `id, hero_id, user_id, scenario_slug, status, world_state, language, created_at, updated_at`

func scanGame(row scanner) (*game.Game, error) {
	var (
		g                    game.Game
		id, heroID, ws       string
		userID               sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &heroID, &userID, &g.ScenarioSlug, &g.Status, &ws, &g.Language, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse game id: %w", err)
	}
	if g.HeroID, err = uuid.Parse(heroID); err != nil {
		return nil, fmt.Errorf("parse hero id: %w", err)
	}
	if g.UserID, err = parseNullableUUID(userID); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if err := json.Unmarshal([]byte(ws), &g.WorldState); err != nil {
		return nil, fmt.Errorf("decode world state: %w", err)
	}
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return &g, nil
}

func (r reader) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	g, err := scanGame(r.q.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

const actColumns = `id, game_id, number, status, snapshot, created_at`

func scanAct(row scanner) (*game.Act, error) {
	var (
		a          game.Act
		id, gameID string
		snapshot   sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&id, &gameID, &a.Number, &a.Status, &snapshot, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse act id: %w", err)
	}
	if a.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, fmt.Errorf("parse game id: %w", err)
	}
	if snapshot.Valid && snapshot.String != "" {
		var ws state.WorldState
		if err := json.Unmarshal([]byte(snapshot.String), &ws); err != nil {
			return nil, fmt.Errorf("decode act snapshot: %w", err)
		}
		a.Snapshot = &ws
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

func (r reader) ListActs(ctx context.Context, gameID uuid.UUID) ([]game.Act, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+actColumns+` FROM acts WHERE game_id = ? ORDER BY number`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("list acts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []game.Act
	for rows.Next() {
		a, err := scanAct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan act: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

const turnColumns = `id, game_id, act_id, turn_number, content, option_selected, resolution_tag, llm_memory, tokens_used, flags, created_at`

func scanTurn(row scanner) (*game.Turn, error) {
	var (
		t                 game.Turn
		id, gameID, actID string
		flags             string
		createdAt         int64
	)
	if err := row.Scan(&id, &gameID, &actID, &t.TurnNumber, &t.Content, &t.OptionSelected, &t.ResolutionTag, &t.LLMMemory, &t.TokensUsed, &flags, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse turn id: %w", err)
	}
	if t.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, fmt.Errorf("parse game id: %w", err)
	}
	if t.ActID, err = uuid.Parse(actID); err != nil {
		return nil, fmt.Errorf("parse act id: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &t.Flags); err != nil {
		return nil, fmt.Errorf("decode turn flags: %w", err)
	}
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

func (r reader) ListTurns(ctx context.Context, gameID uuid.UUID) ([]game.Turn, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+turnColumns+` FROM turns WHERE game_id = ? ORDER BY turn_number`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []game.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

const saveColumns = `id, game_id, user_id, hero_id, world_state, act_number, turn_number, label, created_at`

func scanSave(row scanner) (*game.Save, error) {
	var (
		s                  game.Save
		id, gameID, heroID string
		userID             sql.NullString
		ws                 string
		createdAt          int64
	)
	if err := row.Scan(&id, &gameID, &userID, &heroID, &ws, &s.ActNumber, &s.TurnNumber, &s.Label, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse save id: %w", err)
	}
	if s.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, fmt.Errorf("parse game id: %w", err)
	}
	if s.HeroID, err = uuid.Parse(heroID); err != nil {
		return nil, fmt.Errorf("parse hero id: %w", err)
	}
	if s.UserID, err = parseNullableUUID(userID); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if err := json.Unmarshal([]byte(ws), &s.WorldState); err != nil {
		return nil, fmt.Errorf("decode save world state: %w", err)
	}
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

func (r reader) GetSave(ctx context.Context, id uuid.UUID) (*game.Save, error) {
	s, err := scanSave(r.q.QueryRowContext(ctx, `SELECT `+saveColumns+` FROM saves WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("save %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get save: %w", err)
	}
	return s, nil
}

func (r reader) ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+saveColumns+` FROM saves WHERE game_id = ? ORDER BY created_at DESC, rowid DESC`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []game.Save
	for rows.Next() {
		s, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
