package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines the persistence operations of the engine. Every mutation
// happens inside WithTx so that a failed turn leaves no trace.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// WithTx runs fn in a transaction. If fn returns an error every write
	// made through tx is rolled back and the error is returned.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Reader
}

// Reader holds the read operations available inside and outside transactions.
type Reader interface {
	GetHero(ctx context.Context, id uuid.UUID) (*actor.HeroSpec, error)
	FindHeroBySlug(ctx context.Context, slug string) (*actor.HeroSpec, error)
	GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error)
	// ListActs returns the acts of a game ordered by number.
	ListActs(ctx context.Context, gameID uuid.UUID) ([]game.Act, error)
	// ListTurns returns the turns of a game ordered by turn number.
	ListTurns(ctx context.Context, gameID uuid.UUID) ([]game.Turn, error)
	GetSave(ctx context.Context, id uuid.UUID) (*game.Save, error)
	// ListSaves returns the saves of a game, newest first.
	ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error)
}

// Tx is a unit of work. Records created through it become visible to other
// callers only when the transaction commits.
type Tx interface {
	Reader

	CreateHero(ctx context.Context, h *actor.HeroSpec) error

	CreateGame(ctx context.Context, g *game.Game) error
	UpdateGame(ctx context.Context, g *game.Game) error

	CreateAct(ctx context.Context, a *game.Act) error
	UpdateAct(ctx context.Context, a *game.Act) error
	GetActByNumber(ctx context.Context, gameID uuid.UUID, number int) (*game.Act, error)
	ActiveAct(ctx context.Context, gameID uuid.UUID) (*game.Act, error)
	// DeleteActsAfter removes acts numbered above number along with their turns.
	DeleteActsAfter(ctx context.Context, gameID uuid.UUID, number int) error

	CreateTurn(ctx context.Context, t *game.Turn) error
	// DeleteTurnsAfter removes turns of an act numbered above turnNumber.
	DeleteTurnsAfter(ctx context.Context, actID uuid.UUID, turnNumber int) error
	// DeleteActTransitionTurns removes the act-transition epilogues of an act.
	DeleteActTransitionTurns(ctx context.Context, actID uuid.UUID) error

	CreateSave(ctx context.Context, s *game.Save) error
	// DeleteSavesCreatedAfter removes saves of a game created after t.
	DeleteSavesCreatedAfter(ctx context.Context, gameID uuid.UUID, t time.Time) error
	// DeleteSavesBeyond removes saves positioned after (actNumber, turnNumber).
	DeleteSavesBeyond(ctx context.Context, gameID uuid.UUID, actNumber, turnNumber int) error
}
