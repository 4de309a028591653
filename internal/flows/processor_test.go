package flows

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-arena/internal/lock"
	"github.com/jwebster45206/story-arena/pkg/game"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/outcome"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

var (
	catalogOnce sync.Once
	catalog     *scenario.Catalog
	catalogErr  error
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestCatalog(t *testing.T) *scenario.Catalog {
	t.Helper()
	catalogOnce.Do(func() {
		catalog, catalogErr = scenario.LoadCatalog(filepath.Join("..", "..", "data", "scenarios"), testLogger())
	})
	require.NoError(t, catalogErr)
	return catalog
}

// staticCatalog serves fixed documents regardless of locale.
type staticCatalog map[string]*scenario.Scenario

func (c staticCatalog) Get(slug, locale string) (*scenario.Scenario, error) {
	s, ok := c[slug]
	if !ok {
		return nil, scenario.ErrNotFound
	}
	return s, nil
}

type harness struct {
	p        *Processor
	store    *storage.MockStorage
	rater    *narration.MockRater
	narrator *narration.MockNarrator
	locker   *lock.LocalLocker
}

func newHarness(t *testing.T, c Catalog, roll int) *harness {
	t.Helper()
	h := &harness{
		store:    storage.NewMockStorage(),
		rater:    &narration.MockRater{},
		narrator: &narration.MockNarrator{},
		locker:   lock.NewLocalLocker(),
	}
	resolver := outcome.NewResolver(outcome.WithRoller(outcome.FixedRoller(roll)))
	h.p = NewProcessor(c, h.store, h.rater, h.narrator, resolver, h.locker, testLogger(),
		WithLanguages([]string{"en", "pl"}, "en"))
	return h
}

// narrateMoves makes the narrator move the player through scenes, one per call.
func (h *harness) narrateMoves(scenes ...string) {
	var mu sync.Mutex
	i := 0
	h.narrator.NarrateFunc = func(ctx context.Context, req narration.NarrationRequest) (*narration.Narration, error) {
		mu.Lock()
		defer mu.Unlock()
		n := &narration.Narration{Narrative: "You move.", MemoryNote: "moved", TokensUsed: 20}
		if i < len(scenes) {
			n.Diff = state.Diff{PlayerMovedTo: scenes[i]}
		}
		i++
		return n, nil
	}
}

func (h *harness) start(t *testing.T, slug string) *StartResult {
	t.Helper()
	res, err := h.p.StartScenario(context.Background(), StartRequest{ScenarioSlug: slug})
	require.NoError(t, err)
	return res
}

func (h *harness) turns(t *testing.T, gameID uuid.UUID) []game.Turn {
	t.Helper()
	turns, err := h.store.ListTurns(context.Background(), gameID)
	require.NoError(t, err)
	return turns
}

func (h *harness) game(t *testing.T, gameID uuid.UUID) *game.Game {
	t.Helper()
	g, err := h.store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	return g
}

func (h *harness) acts(t *testing.T, gameID uuid.UUID) []game.Act {
	t.Helper()
	acts, err := h.store.ListActs(context.Background(), gameID)
	require.NoError(t, err)
	return acts
}

// placePlayer rewrites the stored world state directly.
func (h *harness) placePlayer(t *testing.T, gameID uuid.UUID, scene string) {
	t.Helper()
	ctx := context.Background()
	err := h.store.WithTx(ctx, func(tx storage.Tx) error {
		g, err := tx.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		g.WorldState.PlayerScene = scene
		return tx.UpdateGame(ctx, g)
	})
	require.NoError(t, err)
}

func TestStartScenario(t *testing.T) {
	h := newHarness(t, loadTestCatalog(t), 20)
	res := h.start(t, "romeo_juliet")

	g := h.game(t, res.Game.ID)
	assert.Equal(t, game.StatusActive, g.Status)
	assert.Equal(t, "en", g.Language)
	assert.Equal(t, "verona_square", g.WorldState.PlayerScene)
	assert.Equal(t, 1, g.WorldState.ActNumber)

	acts := h.acts(t, g.ID)
	require.Len(t, acts, 1)
	assert.Equal(t, 1, acts[0].Number)
	assert.Equal(t, game.ActActive, acts[0].Status)
	require.NotNil(t, acts[0].Snapshot)
	assert.Equal(t, "verona_square", acts[0].Snapshot.PlayerScene)

	turns := h.turns(t, g.ID)
	require.Len(t, turns, 1)
	assert.Equal(t, 0, turns[0].TurnNumber)
	assert.True(t, turns[0].Flags.Prologue)
	assert.Equal(t, 1, turns[0].Flags.ActNumber)

	hero, err := h.store.GetHero(context.Background(), g.HeroID)
	require.NoError(t, err)
	assert.Equal(t, "romeo_montague", hero.Slug)

	require.Len(t, h.narrator.PrologueCalls, 1)
	assert.Contains(t, h.narrator.PrologueCalls[0].ActIntro, "Torches gutter")
	assert.Equal(t, "verona_square", h.narrator.PrologueCalls[0].Scene.ID)
}

func TestStartScenario_ReusesHeroBySlug(t *testing.T) {
	h := newHarness(t, loadTestCatalog(t), 20)
	first := h.start(t, "romeo_juliet")
	second := h.start(t, "romeo_juliet")
	assert.Equal(t, first.Game.HeroID, second.Game.HeroID)
}

func TestStartScenario_Errors(t *testing.T) {
	h := newHarness(t, loadTestCatalog(t), 20)
	ctx := context.Background()
	missing := uuid.New()

	tests := []struct {
		name string
		req  StartRequest
		want error
	}{
		{"unknown scenario", StartRequest{ScenarioSlug: "atlantis"}, scenario.ErrNotFound},
		{"unsupported language", StartRequest{ScenarioSlug: "romeo_juliet", Language: "xx"}, ErrValidation},
		{"unknown hero", StartRequest{ScenarioSlug: "romeo_juliet", HeroID: &missing}, storage.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.p.StartScenario(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStartScenario_PrologueFailureLeavesNothing(t *testing.T) {
	h := newHarness(t, loadTestCatalog(t), 20)
	h.narrator.PrologueFunc = func(ctx context.Context, req narration.PrologueRequest) (*narration.Narration, error) {
		return nil, errors.New("model overloaded")
	}
	_, err := h.p.StartScenario(context.Background(), StartRequest{ScenarioSlug: "romeo_juliet"})
	require.ErrorIs(t, err, ErrCollaborator)

	_, err = h.store.FindHeroBySlug(context.Background(), "romeo_montague")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStartScenario_Localized(t *testing.T) {
	h := newHarness(t, loadTestCatalog(t), 20)
	res, err := h.p.StartScenario(context.Background(), StartRequest{ScenarioSlug: "prison_break", Language: "pl"})
	require.NoError(t, err)
	assert.Equal(t, "pl", res.Game.Language)
	require.Len(t, h.narrator.PrologueCalls, 1)
	assert.Equal(t, "pl", h.narrator.PrologueCalls[0].Language)
	assert.Equal(t, "cell", h.narrator.PrologueCalls[0].Scene.ID)
}

func TestRecentActions(t *testing.T) {
	turns := []game.Turn{
		{TurnNumber: 0, Flags: game.TurnFlags{Prologue: true}, LLMMemory: "opening"},
		{TurnNumber: 1, OptionSelected: "look", ResolutionTag: "success", LLMMemory: "looked"},
		{TurnNumber: 2, OptionSelected: "wait", ResolutionTag: "partial"},
		{TurnNumber: 3, OptionSelected: "run", ResolutionTag: "failure", LLMMemory: "ran"},
		{TurnNumber: 4, OptionSelected: "hide", ResolutionTag: "success"},
	}

	recent := recentActions(turns)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{recent[0].TurnNumber, recent[1].TurnNumber, recent[2].TurnNumber})
	assert.Equal(t, "failure", recent[1].ResolutionTag)

	assert.Equal(t, []string{"opening", "looked", "ran"}, memoryNotes(turns))
	assert.Equal(t, 5, nextTurnNumber(turns))
	assert.Equal(t, 1, nextTurnNumber(nil))
	assert.Equal(t, 0, lastTurnNumber(nil))
}
