// Package outcome resolves a rated player action into a success, partial or
// failure and applies its numeric consequences to the world state.
package outcome

import (
	"sync"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/story-arena/pkg/state"
)

// Resolution tags
const (
	Success = "success"
	Partial = "partial"
	Failure = "failure"
)

// Difficulties
const (
	Trivial    = "trivial"
	Easy       = "easy"
	Medium     = "medium"
	Hard       = "hard"
	Impossible = "impossible"
)

// Danger levels of an action
const (
	DangerNone   = "none"
	DangerLow    = "low"
	DangerMedium = "medium"
	DangerHigh   = "high"
)

// Narrative impact of an action
const (
	ImpactNegative = "negative"
	ImpactNone     = "none"
	ImpactPositive = "positive"
	ImpactMajor    = "major"
)

const (
	defaultThreshold = 4
	dieSides         = 6

	dangerOnPartial = 5
	dangerOnFailure = 15
)

var thresholds = map[string]int{
	Easy:   1,
	Medium: 4,
	Hard:   7,
}

// healthLoss[danger] = {partial, failure}. Success never costs health.
var healthLoss = map[string][2]int{
	DangerNone:   {0, 0},
	DangerLow:    {0, 8},
	DangerMedium: {5, 18},
	DangerHigh:   {12, 35},
}

// momentumDelta[impact] = {success, partial, failure}
var momentumDelta = map[string][3]int{
	ImpactNegative: {-1, -1, -3},
	ImpactNone:     {0, 0, -1},
	ImpactPositive: {1, 0, -2},
	ImpactMajor:    {2, 1, -2},
}

// Rating is the difficulty collaborator's judgment of an action.
type Rating struct {
	Difficulty string
	Danger     string
	Impact     string
	// Irrelevant marks actions that do not address the scene at all.
	Irrelevant bool
}

// Result holds the resolution facts of one action. Roll is 0 when no die
// was rolled (trivial and impossible actions).
type Result struct {
	Tag         string `json:"resolution_tag"`
	Roll        int    `json:"roll,omitempty"`
	Total       int    `json:"total,omitempty"`
	Threshold   int    `json:"threshold,omitempty"`
	HealthLoss  int    `json:"health_loss"`
	DangerGain  int    `json:"danger_gain"`
	MomentumWas int    `json:"momentum_was"`
	Capped      bool   `json:"capped,omitempty"`
}

// Rolled reports whether a die was rolled.
func (r Result) Rolled() bool {
	return r.Roll > 0
}

// Roller draws a uniform integer in 1..sides.
type Roller interface {
	Roll(sides int) int
}

// RandomRoller rolls with a time-seeded d20 roller. It is safe for
// concurrent use.
type RandomRoller struct {
	mu     sync.Mutex
	roller *d20.Roller
}

func NewRandomRoller() *RandomRoller {
	return &RandomRoller{roller: d20.NewRandomRoller()}
}

// Roll returns 1 when sides is below one.
func (r *RandomRoller) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.roller.Dice(1, uint(sides)).Roll()
	if err != nil {
		return 1
	}
	return out.Value
}

// FixedRoller always returns the same value. Useful in tests.
type FixedRoller int

func (f FixedRoller) Roll(int) int {
	return int(f)
}

// Resolver applies the resolution tables.
type Resolver struct {
	roller        Roller
	irrelevantCap bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRoller replaces the default random roller.
func WithRoller(r Roller) Option {
	return func(res *Resolver) { res.roller = r }
}

// WithIrrelevantActionCap caps a would-be success at partial when the
// rating marks the action irrelevant to the scene.
func WithIrrelevantActionCap() Option {
	return func(res *Resolver) { res.irrelevantCap = true }
}

// NewResolver creates a resolver with a random roller.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{roller: NewRandomRoller()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve rolls for the action, applies health loss, danger and momentum to
// ws in place, and returns the resolution facts. Unknown or empty rating
// values fall back to medium difficulty, no danger and positive impact.
func (r *Resolver) Resolve(ws *state.WorldState, rating Rating) Result {
	difficulty := normalize(rating.Difficulty, Medium, Trivial, Easy, Medium, Hard, Impossible)
	danger := normalize(rating.Danger, DangerNone, DangerNone, DangerLow, DangerMedium, DangerHigh)
	impact := normalize(rating.Impact, ImpactPositive, ImpactNegative, ImpactNone, ImpactPositive, ImpactMajor)

	res := Result{MomentumWas: ws.Momentum}
	switch difficulty {
	case Trivial:
		res.Tag = Success
	case Impossible:
		res.Tag = Failure
	default:
		threshold, ok := thresholds[difficulty]
		if !ok {
			threshold = defaultThreshold
		}
		res.Roll = r.roller.Roll(dieSides)
		res.Total = res.Roll + ws.Momentum
		res.Threshold = threshold
		switch {
		case res.Total > threshold:
			res.Tag = Success
		case res.Total == threshold:
			res.Tag = Partial
		default:
			res.Tag = Failure
		}
	}

	if r.irrelevantCap && rating.Irrelevant && res.Tag == Success {
		res.Tag = Partial
		res.Capped = true
	}

	switch res.Tag {
	case Partial:
		res.HealthLoss = healthLoss[danger][0]
		res.DangerGain = dangerOnPartial
	case Failure:
		res.HealthLoss = healthLoss[danger][1]
		res.DangerGain = dangerOnFailure
	}

	ws.Health = max(ws.Health-res.HealthLoss, 0)
	ws.DangerLevel = min(max(ws.DangerLevel, 0)+res.DangerGain, state.MaxDangerLevel)
	ws.Momentum = clamp(ws.Momentum+momentumDelta[impact][tagIndex(res.Tag)], state.MinMomentum, state.MaxMomentum)

	return res
}

func tagIndex(tag string) int {
	switch tag {
	case Success:
		return 0
	case Partial:
		return 1
	default:
		return 2
	}
}

func normalize(value, fallback string, allowed ...string) string {
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
