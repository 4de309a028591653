package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/state"
)

func seedGame(t *testing.T, m *MockStorage) (*game.Game, *game.Act) {
	t.Helper()
	ctx := context.Background()
	g := &game.Game{
		HeroID:       uuid.New(),
		ScenarioSlug: "prison_break",
		Status:       game.StatusActive,
		WorldState:   state.WorldState{Health: 100, ActNumber: 1, PlayerScene: "cell"},
		Language:     "en",
	}
	a := &game.Act{Number: 1, Status: game.ActActive}
	err := m.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateGame(ctx, g); err != nil {
			return err
		}
		a.GameID = g.ID
		if err := tx.CreateAct(ctx, a); err != nil {
			return err
		}
		return tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a.ID, TurnNumber: 0, Flags: game.TurnFlags{Prologue: true}})
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return g, a
}

func TestMockStorage_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	g, a := seedGame(t, m)

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx Tx) error {
		g.WorldState.Health = 10
		if err := tx.UpdateGame(ctx, g); err != nil {
			return err
		}
		if err := tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a.ID, TurnNumber: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	stored, err := m.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.WorldState.Health != 100 {
		t.Errorf("expected rollback of health, got %d", stored.WorldState.Health)
	}
	turns, _ := m.ListTurns(ctx, g.ID)
	if len(turns) != 1 {
		t.Errorf("expected rollback of turn, got %d turns", len(turns))
	}
}

func TestMockStorage_FailOn(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	g, a := seedGame(t, m)

	m.FailOn("CreateTurn", ErrInjected)
	err := m.WithTx(ctx, func(tx Tx) error {
		return tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a.ID, TurnNumber: 1})
	})
	if !errors.Is(err, ErrInjected) {
		t.Errorf("expected injected failure, got %v", err)
	}

	m.FailOn("CreateTurn", nil)
	err = m.WithTx(ctx, func(tx Tx) error {
		return tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a.ID, TurnNumber: 1})
	})
	if err != nil {
		t.Errorf("expected success after clearing failure, got %v", err)
	}
}

func TestMockStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	g, _ := seedGame(t, m)

	first, _ := m.GetGame(ctx, g.ID)
	first.WorldState.Actors = map[string]state.ActorState{"x": {Status: "y"}}
	first.Status = game.StatusFailed

	second, _ := m.GetGame(ctx, g.ID)
	if second.Status != game.StatusActive || len(second.WorldState.Actors) != 0 {
		t.Error("mutating a returned record changed the store")
	}
}

func TestMockStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	if _, err := m.GetGame(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.GetSave(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.FindHeroBySlug(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMockStorage_Deletes(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	g, a1 := seedGame(t, m)

	base := time.Now().UTC()
	a2 := &game.Act{GameID: g.ID, Number: 2, Status: game.ActActive}
	err := m.WithTx(ctx, func(tx Tx) error {
		for n := 1; n <= 3; n++ {
			flags := game.TurnFlags{}
			if n == 3 {
				flags.ActTransition = true
			}
			if err := tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a1.ID, TurnNumber: n, Flags: flags}); err != nil {
				return err
			}
		}
		if err := tx.CreateAct(ctx, a2); err != nil {
			return err
		}
		if err := tx.CreateTurn(ctx, &game.Turn{GameID: g.ID, ActID: a2.ID, TurnNumber: 4}); err != nil {
			return err
		}
		for i, pos := range [][2]int{{1, 0}, {1, 2}, {2, 4}} {
			s := &game.Save{GameID: g.ID, ActNumber: pos[0], TurnNumber: pos[1], CreatedAt: base.Add(time.Duration(i) * time.Second)}
			if err := tx.CreateSave(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	saves, _ := m.ListSaves(ctx, g.ID)
	if len(saves) != 3 || saves[0].TurnNumber != 4 {
		t.Fatalf("expected newest save first, got %+v", saves)
	}

	err = m.WithTx(ctx, func(tx Tx) error {
		if err := tx.DeleteActsAfter(ctx, g.ID, 1); err != nil {
			return err
		}
		if err := tx.DeleteActTransitionTurns(ctx, a1.ID); err != nil {
			return err
		}
		if err := tx.DeleteTurnsAfter(ctx, a1.ID, 1); err != nil {
			return err
		}
		return tx.DeleteSavesBeyond(ctx, g.ID, 1, 0)
	})
	if err != nil {
		t.Fatal(err)
	}

	acts, _ := m.ListActs(ctx, g.ID)
	if len(acts) != 1 {
		t.Errorf("expected 1 act left, got %d", len(acts))
	}
	turns, _ := m.ListTurns(ctx, g.ID)
	if len(turns) != 2 || turns[1].TurnNumber != 1 {
		t.Errorf("expected turns 0 and 1, got %+v", turns)
	}
	saves, _ = m.ListSaves(ctx, g.ID)
	if len(saves) != 1 || saves[0].TurnNumber != 0 {
		t.Errorf("expected only the act 1 turn 0 save, got %+v", saves)
	}

	err = m.WithTx(ctx, func(tx Tx) error {
		return tx.DeleteSavesCreatedAfter(ctx, g.ID, base.Add(-time.Second))
	})
	if err != nil {
		t.Fatal(err)
	}
	if saves, _ = m.ListSaves(ctx, g.ID); len(saves) != 0 {
		t.Errorf("expected all saves deleted, got %d", len(saves))
	}
}

func TestMockStorage_HeroSlugUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	err := m.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateHero(ctx, &actor.HeroSpec{Slug: "frank_morris", Name: "Frank"}); err != nil {
			return err
		}
		return tx.CreateHero(ctx, &actor.HeroSpec{Slug: "frank_morris", Name: "Frank again"})
	})
	if err == nil {
		t.Error("expected duplicate slug error")
	}
	if _, err := m.FindHeroBySlug(ctx, "frank_morris"); !errors.Is(err, ErrNotFound) {
		t.Error("expected failed transaction to leave no hero")
	}
}
