package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/game"
)

// MockStorage is an in-memory implementation of Storage for testing and
// local development. Transactions run on a copy of the data that replaces
// the original on commit, so a failing transaction leaves nothing behind.
type MockStorage struct {
	mu        sync.RWMutex
	data      *mockData
	pingError error
	failures  map[string]error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		data:     newMockData(),
		failures: make(map[string]error),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// FailOn makes the named transactional operation (e.g. "CreateTurn") return
// err until cleared with a nil error.
func (m *MockStorage) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// WithTx serializes transactions and commits by swapping the working copy in.
func (m *MockStorage) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mockTx{mockData: m.data.clone(), failures: maps.Clone(m.failures)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	m.data = tx.mockData
	return nil
}

func (m *MockStorage) GetHero(ctx context.Context, id uuid.UUID) (*actor.HeroSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetHero(ctx, id)
}

func (m *MockStorage) FindHeroBySlug(ctx context.Context, slug string) (*actor.HeroSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.FindHeroBySlug(ctx, slug)
}

func (m *MockStorage) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetGame(ctx, id)
}

func (m *MockStorage) ListActs(ctx context.Context, gameID uuid.UUID) ([]game.Act, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListActs(ctx, gameID)
}

func (m *MockStorage) ListTurns(ctx context.Context, gameID uuid.UUID) ([]game.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListTurns(ctx, gameID)
}

func (m *MockStorage) GetSave(ctx context.Context, id uuid.UUID) (*game.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetSave(ctx, id)
}

func (m *MockStorage) ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListSaves(ctx, gameID)
}

type mockData struct {
	heroes map[uuid.UUID]actor.HeroSpec
	games  map[uuid.UUID]game.Game
	acts   map[uuid.UUID]game.Act
	turns  map[uuid.UUID]game.Turn
	saves  map[uuid.UUID]game.Save
	seq    map[uuid.UUID]int
	next   int
}

func newMockData() *mockData {
	return &mockData{
		heroes: make(map[uuid.UUID]actor.HeroSpec),
		games:  make(map[uuid.UUID]game.Game),
		acts:   make(map[uuid.UUID]game.Act),
		turns:  make(map[uuid.UUID]game.Turn),
		saves:  make(map[uuid.UUID]game.Save),
		seq:    make(map[uuid.UUID]int),
	}
}

func (d *mockData) clone() *mockData {
	c := &mockData{
		heroes: make(map[uuid.UUID]actor.HeroSpec, len(d.heroes)),
		games:  make(map[uuid.UUID]game.Game, len(d.games)),
		acts:   make(map[uuid.UUID]game.Act, len(d.acts)),
		turns:  maps.Clone(d.turns),
		saves:  make(map[uuid.UUID]game.Save, len(d.saves)),
		seq:    maps.Clone(d.seq),
		next:   d.next,
	}
	for id, h := range d.heroes {
		c.heroes[id] = copyHero(h)
	}
	for id, g := range d.games {
		c.games[id] = copyGame(g)
	}
	for id, a := range d.acts {
		c.acts[id] = copyAct(a)
	}
	for id, s := range d.saves {
		c.saves[id] = copySave(s)
	}
	return c
}

func copyHero(h actor.HeroSpec) actor.HeroSpec {
	h.Attributes = maps.Clone(h.Attributes)
	return h
}

func copyGame(g game.Game) game.Game {
	g.WorldState = *g.WorldState.Clone()
	return g
}

func copyAct(a game.Act) game.Act {
	a.Snapshot = a.Snapshot.Clone()
	return a
}

func copySave(s game.Save) game.Save {
	s.WorldState = *s.WorldState.Clone()
	return s
}

func (d *mockData) GetHero(ctx context.Context, id uuid.UUID) (*actor.HeroSpec, error) {
	h, ok := d.heroes[id]
	if !ok {
		return nil, fmt.Errorf("hero %s: %w", id, ErrNotFound)
	}
	h = copyHero(h)
	return &h, nil
}

func (d *mockData) FindHeroBySlug(ctx context.Context, slug string) (*actor.HeroSpec, error) {
	for _, h := range d.heroes {
		if h.Slug == slug {
			h = copyHero(h)
			return &h, nil
		}
	}
	return nil, fmt.Errorf("hero %q: %w", slug, ErrNotFound)
}

func (d *mockData) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	g, ok := d.games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	g = copyGame(g)
	return &g, nil
}

func (d *mockData) ListActs(ctx context.Context, gameID uuid.UUID) ([]game.Act, error) {
	var out []game.Act
	for _, a := range d.acts {
		if a.GameID == gameID {
			out = append(out, copyAct(a))
		}
	}
	slices.SortFunc(out, func(a, b game.Act) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

func (d *mockData) ListTurns(ctx context.Context, gameID uuid.UUID) ([]game.Turn, error) {
	var out []game.Turn
	for _, t := range d.turns {
		if t.GameID == gameID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b game.Turn) int { return cmp.Compare(a.TurnNumber, b.TurnNumber) })
	return out, nil
}

func (d *mockData) GetSave(ctx context.Context, id uuid.UUID) (*game.Save, error) {
	s, ok := d.saves[id]
	if !ok {
		return nil, fmt.Errorf("save %s: %w", id, ErrNotFound)
	}
	s = copySave(s)
	return &s, nil
}

func (d *mockData) ListSaves(ctx context.Context, gameID uuid.UUID) ([]game.Save, error) {
	var out []game.Save
	for _, s := range d.saves {
		if s.GameID == gameID {
			out = append(out, copySave(s))
		}
	}
	slices.SortFunc(out, func(a, b game.Save) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(d.seq[b.ID], d.seq[a.ID])
	})
	return out, nil
}

type mockTx struct {
	*mockData
	failures map[string]error
}

var _ Tx = (*mockTx)(nil)

func (tx *mockTx) fail(op string) error {
	if err, ok := tx.failures[op]; ok {
		return err
	}
	return nil
}

func (tx *mockTx) track(id uuid.UUID) {
	tx.next++
	tx.seq[id] = tx.next
}

func (tx *mockTx) CreateHero(ctx context.Context, h *actor.HeroSpec) error {
	if err := tx.fail("CreateHero"); err != nil {
		return err
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if _, err := tx.FindHeroBySlug(ctx, h.Slug); err == nil {
		return fmt.Errorf("hero slug %q already exists", h.Slug)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	tx.heroes[h.ID] = copyHero(*h)
	return nil
}

func (tx *mockTx) CreateGame(ctx context.Context, g *game.Game) error {
	if err := tx.fail("CreateGame"); err != nil {
		return err
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	tx.games[g.ID] = copyGame(*g)
	return nil
}

func (tx *mockTx) UpdateGame(ctx context.Context, g *game.Game) error {
	if err := tx.fail("UpdateGame"); err != nil {
		return err
	}
	if _, ok := tx.games[g.ID]; !ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	g.UpdatedAt = time.Now().UTC()
	tx.games[g.ID] = copyGame(*g)
	return nil
}

func (tx *mockTx) CreateAct(ctx context.Context, a *game.Act) error {
	if err := tx.fail("CreateAct"); err != nil {
		return err
	}
	if _, err := tx.GetActByNumber(ctx, a.GameID, a.Number); err == nil {
		return fmt.Errorf("act %d already exists for game %s", a.Number, a.GameID)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	tx.acts[a.ID] = copyAct(*a)
	return nil
}

func (tx *mockTx) UpdateAct(ctx context.Context, a *game.Act) error {
	if err := tx.fail("UpdateAct"); err != nil {
		return err
	}
	if _, ok := tx.acts[a.ID]; !ok {
		return fmt.Errorf("act %s: %w", a.ID, ErrNotFound)
	}
	tx.acts[a.ID] = copyAct(*a)
	return nil
}

func (tx *mockTx) GetActByNumber(ctx context.Context, gameID uuid.UUID, number int) (*game.Act, error) {
	for _, a := range tx.acts {
		if a.GameID == gameID && a.Number == number {
			a = copyAct(a)
			return &a, nil
		}
	}
	return nil, fmt.Errorf("act %d: %w", number, ErrNotFound)
}

func (tx *mockTx) ActiveAct(ctx context.Context, gameID uuid.UUID) (*game.Act, error) {
	for _, a := range tx.acts {
		if a.GameID == gameID && a.Status == game.ActActive {
			a = copyAct(a)
			return &a, nil
		}
	}
	return nil, fmt.Errorf("active act: %w", ErrNotFound)
}

func (tx *mockTx) DeleteActsAfter(ctx context.Context, gameID uuid.UUID, number int) error {
	if err := tx.fail("DeleteActsAfter"); err != nil {
		return err
	}
	for id, a := range tx.acts {
		if a.GameID != gameID || a.Number <= number {
			continue
		}
		for tid, t := range tx.turns {
			if t.ActID == id {
				delete(tx.turns, tid)
			}
		}
		delete(tx.acts, id)
	}
	return nil
}

func (tx *mockTx) CreateTurn(ctx context.Context, t *game.Turn) error {
	if err := tx.fail("CreateTurn"); err != nil {
		return err
	}
	for _, existing := range tx.turns {
		if existing.GameID == t.GameID && existing.TurnNumber == t.TurnNumber {
			return fmt.Errorf("turn %d already exists for game %s", t.TurnNumber, t.GameID)
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	tx.turns[t.ID] = *t
	return nil
}

func (tx *mockTx) DeleteTurnsAfter(ctx context.Context, actID uuid.UUID, turnNumber int) error {
	if err := tx.fail("DeleteTurnsAfter"); err != nil {
		return err
	}
	for id, t := range tx.turns {
		if t.ActID == actID && t.TurnNumber > turnNumber {
			delete(tx.turns, id)
		}
	}
	return nil
}

func (tx *mockTx) DeleteActTransitionTurns(ctx context.Context, actID uuid.UUID) error {
	if err := tx.fail("DeleteActTransitionTurns"); err != nil {
		return err
	}
	for id, t := range tx.turns {
		if t.ActID == actID && t.Flags.ActTransition {
			delete(tx.turns, id)
		}
	}
	return nil
}

func (tx *mockTx) CreateSave(ctx context.Context, s *game.Save) error {
	if err := tx.fail("CreateSave"); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	tx.saves[s.ID] = copySave(*s)
	tx.track(s.ID)
	return nil
}

func (tx *mockTx) DeleteSavesCreatedAfter(ctx context.Context, gameID uuid.UUID, t time.Time) error {
	if err := tx.fail("DeleteSavesCreatedAfter"); err != nil {
		return err
	}
	for id, s := range tx.saves {
		if s.GameID == gameID && s.CreatedAt.After(t) {
			delete(tx.saves, id)
		}
	}
	return nil
}

func (tx *mockTx) DeleteSavesBeyond(ctx context.Context, gameID uuid.UUID, actNumber, turnNumber int) error {
	if err := tx.fail("DeleteSavesBeyond"); err != nil {
		return err
	}
	for id, s := range tx.saves {
		if s.GameID != gameID {
			continue
		}
		if s.ActNumber > actNumber || (s.ActNumber == actNumber && s.TurnNumber > turnNumber) {
			delete(tx.saves, id)
		}
	}
	return nil
}

// ErrInjected is a convenience error for FailOn.
var ErrInjected = errors.New("injected storage failure")
