package scenario

import (
	"cmp"
	"slices"
)

// DefaultTurnLimit applies when a scenario does not declare turn_limit.
const DefaultTurnLimit = 20

// Scenario is the immutable, author-written definition of a playable story.
// Documents are loaded from YAML by the Catalog and shared between games,
// so callers must treat a *Scenario as read-only.
type Scenario struct {
	Slug          string        `yaml:"slug" json:"slug"`
	Title         string        `yaml:"title" json:"title"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	TurnLimit     int           `yaml:"turn_limit,omitempty" json:"turn_limit,omitempty"`
	WorldContext  string        `yaml:"world_context,omitempty" json:"world_context,omitempty"`
	NarratorStyle string        `yaml:"narrator_style,omitempty" json:"narrator_style,omitempty"`
	Hero          *HeroTemplate `yaml:"hero,omitempty" json:"hero,omitempty"`
	Acts          []Act         `yaml:"acts" json:"acts"`

	// Locale is set by the catalog on merged documents; empty for base documents.
	Locale string `yaml:"-" json:"locale,omitempty"`
}

// HeroTemplate describes the default protagonist of a scenario or act.
type HeroTemplate struct {
	Slug        string         `yaml:"slug" json:"slug"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Sex         string         `yaml:"sex,omitempty" json:"sex,omitempty"`
	HP          int            `yaml:"hp,omitempty" json:"hp,omitempty"`
	AC          int            `yaml:"ac,omitempty" json:"ac,omitempty"`
	Attributes  map[string]int `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Act is a top-level story segment with its own scene graph and goals.
type Act struct {
	Number     int           `yaml:"number" json:"number"`
	Name       string        `yaml:"name,omitempty" json:"name,omitempty"`
	Intro      string        `yaml:"intro,omitempty" json:"intro,omitempty"`
	Hero       *HeroTemplate `yaml:"hero,omitempty" json:"hero,omitempty"`
	Scenes     []Scene       `yaml:"scenes" json:"scenes"`
	Actors     []ActorDef    `yaml:"actors,omitempty" json:"actors,omitempty"`
	Objects    []ObjectDef   `yaml:"objects,omitempty" json:"objects,omitempty"`
	Conditions []Condition   `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Events     []Event       `yaml:"events,omitempty" json:"events,omitempty"`
}

// TurnLimitOrDefault returns the declared turn limit or DefaultTurnLimit.
func (s *Scenario) TurnLimitOrDefault() int {
	if s == nil || s.TurnLimit <= 0 {
		return DefaultTurnLimit
	}
	return s.TurnLimit
}

// Act returns the act with the given number.
func (s *Scenario) Act(number int) (*Act, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Acts {
		if s.Acts[i].Number == number {
			return &s.Acts[i], true
		}
	}
	return nil, false
}

// FirstAct returns the first declared act, or nil for a scenario without acts.
func (s *Scenario) FirstAct() *Act {
	if s == nil || len(s.Acts) == 0 {
		return nil
	}
	return &s.Acts[0]
}

// HeroForAct walks the acts in order up to and including number and returns
// the last hero override seen, falling back to the scenario hero template.
func (s *Scenario) HeroForAct(number int) *HeroTemplate {
	if s == nil {
		return nil
	}
	hero := s.Hero
	for _, act := range s.sortedActs() {
		if act.Number > number {
			break
		}
		if act.Hero != nil {
			hero = act.Hero
		}
	}
	return hero
}

func (s *Scenario) sortedActs() []Act {
	acts := slices.Clone(s.Acts)
	slices.SortStableFunc(acts, func(a, b Act) int { return cmp.Compare(a.Number, b.Number) })
	return acts
}
