package flows

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-arena/internal/lock"
	"github.com/jwebster45206/story-arena/internal/storage/sqlite"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/scenario"
)

type sqliteHarness struct {
	p        *Processor
	store    *sqlite.Store
	narrator *narration.MockNarrator
}

func newSQLiteHarness(t *testing.T, c Catalog) *sqliteHarness {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &sqliteHarness{store: store, narrator: &narration.MockNarrator{}}
	resolver := outcome.NewResolver(outcome.WithRoller(outcome.FixedRoller(20)))
	h.p = NewProcessor(c, store, &narration.MockRater{}, h.narrator, resolver, lock.NewLocalLocker(), testLogger())
	return h
}

func (h *sqliteHarness) state(t *testing.T, gameID uuid.UUID) (*game.Game, []game.Turn) {
	t.Helper()
	ctx := context.Background()
	g, err := h.store.GetGame(ctx, gameID)
	require.NoError(t, err)
	turns, err := h.store.ListTurns(ctx, gameID)
	require.NoError(t, err)
	return g, turns
}

func (h *sqliteHarness) heroSlug(t *testing.T, heroID uuid.UUID) string {
	t.Helper()
	hero, err := h.store.GetHero(context.Background(), heroID)
	require.NoError(t, err)
	return hero.Slug
}

// moveTo makes every narration move the player to the scene named by the action.
func moveTo(ctx context.Context, req narration.NarrationRequest) (*narration.Narration, error) {
	n := &narration.Narration{Narrative: "You move.", MemoryNote: "moved"}
	n.Diff.PlayerMovedTo = req.Action
	return n, nil
}

func TestSQLiteFlows_HeroFollowsActs(t *testing.T) {
	base, err := loadTestCatalog(t).Get("prison_break", "")
	require.NoError(t, err)
	s := base.Clone()
	s.Acts[1].Hero = &scenario.HeroTemplate{Slug: "clarence_anglin", Name: "Clarence Anglin", HP: 10, AC: 12}

	h := newSQLiteHarness(t, staticCatalog{"prison_break": s})
	h.narrator.NarrateFunc = moveTo
	ctx := context.Background()

	start, err := h.p.StartScenario(ctx, StartRequest{ScenarioSlug: "prison_break"})
	require.NoError(t, err)
	gameID := start.Game.ID
	firstHero := start.Game.HeroID
	g, turns := h.state(t, gameID)
	assert.Equal(t, firstHero, g.HeroID)
	require.Len(t, turns, 1)
	assert.True(t, turns[0].Flags.Prologue)

	_, err = h.p.ContinueTurn(ctx, gameID, "vent_shaft")
	require.NoError(t, err)
	save, err := h.p.SaveGame(ctx, gameID, "in the vent", nil)
	require.NoError(t, err)
	assert.Equal(t, firstHero, save.HeroID)

	res, err := h.p.ContinueTurn(ctx, gameID, "laundry")
	require.NoError(t, err)
	require.NotNil(t, res.Prologue)
	g, turns = h.state(t, gameID)
	assert.Equal(t, 2, g.WorldState.ActNumber)
	assert.Equal(t, "clarence_anglin", h.heroSlug(t, g.HeroID))
	require.Len(t, turns, 5)
	assert.Equal(t, 4, turns[4].TurnNumber)

	g, err = h.p.LoadSave(ctx, gameID, save.ID)
	require.NoError(t, err)
	assert.Equal(t, firstHero, g.HeroID)
	g, turns = h.state(t, gameID)
	assert.Equal(t, firstHero, g.HeroID)
	assert.Equal(t, 1, g.WorldState.ActNumber)
	require.Len(t, turns, 2)

	_, err = h.p.ContinueTurn(ctx, gameID, "laundry")
	require.NoError(t, err)
	g, turns = h.state(t, gameID)
	assert.Equal(t, "clarence_anglin", h.heroSlug(t, g.HeroID))
	require.Len(t, turns, 5)

	g, err = h.p.ReplayAct(ctx, gameID, 1)
	require.NoError(t, err)
	assert.Equal(t, firstHero, g.HeroID)
	g, turns = h.state(t, gameID)
	assert.Equal(t, firstHero, g.HeroID)
	assert.Equal(t, "cell", g.WorldState.PlayerScene)
	require.Len(t, turns, 1)
	assert.True(t, turns[0].Flags.Prologue)

	acts, err := h.store.ListActs(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, game.ActActive, acts[0].Status)
}

func TestSQLiteFlows_SlowNarratorDoesNotBlockOtherGames(t *testing.T) {
	h := newSQLiteHarness(t, loadTestCatalog(t))
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.narrator.NarrateFunc = func(ctx context.Context, req narration.NarrationRequest) (*narration.Narration, error) {
		if req.Action == "wait for the guard" {
			once.Do(func() { close(entered) })
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &narration.Narration{Narrative: "Time passes."}, nil
	}

	slow, err := h.p.StartScenario(ctx, StartRequest{ScenarioSlug: "prison_break"})
	require.NoError(t, err)
	fast, err := h.p.StartScenario(ctx, StartRequest{ScenarioSlug: "romeo_juliet"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.p.ContinueTurn(ctx, slow.Game.ID, "wait for the guard")
		done <- err
	}()
	<-entered

	began := time.Now()
	res, err := h.p.ContinueTurn(ctx, fast.Game.ID, "look around")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Turn.TurnNumber)
	assert.Less(t, time.Since(began), 4*time.Second)

	close(release)
	require.NoError(t, <-done)
	_, turns := h.state(t, slow.Game.ID)
	assert.Len(t, turns, 2)
}
