package narration

import (
	"context"
	"sync"
)

// MockRater is a DifficultyRater for tests. RateFunc overrides the default
// medium/none/positive rating.
type MockRater struct {
	mu       sync.Mutex
	RateFunc func(ctx context.Context, req RatingRequest) (*Rating, error)
	Calls    []RatingRequest
}

var _ DifficultyRater = (*MockRater)(nil)

func (m *MockRater) Rate(ctx context.Context, req RatingRequest) (*Rating, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.RateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Rating{Difficulty: "medium", Danger: "none", Impact: "positive", Reasoning: "mock rating", TokensUsed: 10}, nil
}

// CallCount returns the number of Rate calls.
func (m *MockRater) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockNarrator is a Narrator for tests. Each func overrides its default.
type MockNarrator struct {
	mu           sync.Mutex
	NarrateFunc  func(ctx context.Context, req NarrationRequest) (*Narration, error)
	EpilogueFunc func(ctx context.Context, req EpilogueRequest) (*Narration, error)
	PrologueFunc func(ctx context.Context, req PrologueRequest) (*Narration, error)

	NarrateCalls  []NarrationRequest
	EpilogueCalls []EpilogueRequest
	PrologueCalls []PrologueRequest
}

var _ Narrator = (*MockNarrator)(nil)

func (m *MockNarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	m.mu.Lock()
	m.NarrateCalls = append(m.NarrateCalls, req)
	fn := m.NarrateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Narration{Narrative: "You act. The night goes on.", MemoryNote: "Player acted: " + req.Action, TokensUsed: 20}, nil
}

func (m *MockNarrator) Epilogue(ctx context.Context, req EpilogueRequest) (*Narration, error) {
	m.mu.Lock()
	m.EpilogueCalls = append(m.EpilogueCalls, req)
	fn := m.EpilogueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Narration{Narrative: req.EndingNarrative, TokensUsed: 15}, nil
}

func (m *MockNarrator) Prologue(ctx context.Context, req PrologueRequest) (*Narration, error) {
	m.mu.Lock()
	m.PrologueCalls = append(m.PrologueCalls, req)
	fn := m.PrologueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Narration{Narrative: req.ActIntro, MemoryNote: "Act opened.", TokensUsed: 5}, nil
}
