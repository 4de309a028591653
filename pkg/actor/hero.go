package actor

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/story-arena/pkg/scenario"
)

const (
	DefaultHeroHP = 10
	DefaultHeroAC = 10
)

// HeroSpec is the persisted record of a protagonist. Slug is unique.
type HeroSpec struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Sex         string         `json:"sex,omitempty"`
	HP          int            `json:"hp,omitempty"`
	AC          int            `json:"ac,omitempty"`
	Attributes  map[string]int `json:"attributes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewHeroSpec creates a hero record from a scenario template.
func NewHeroSpec(t *scenario.HeroTemplate) *HeroSpec {
	return &HeroSpec{
		ID:          uuid.New(),
		Slug:        t.Slug,
		Name:        t.Name,
		Description: t.Description,
		Sex:         t.Sex,
		HP:          t.HP,
		AC:          t.AC,
		Attributes:  maps.Clone(t.Attributes),
		CreatedAt:   time.Now().UTC(),
	}
}

// Hero is the runtime representation of a hero.
type Hero struct {
	Spec  *HeroSpec
	Actor *d20.Actor // Built at runtime from HeroSpec
}

// NewHeroFromSpec builds the d20 actor for a hero record.
func NewHeroFromSpec(spec *HeroSpec) (*Hero, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}

	hp := spec.HP
	if hp <= 0 {
		hp = DefaultHeroHP
	}
	ac := spec.AC
	if ac <= 0 {
		ac = DefaultHeroAC
	}
	attrs := maps.Clone(spec.Attributes)
	if attrs == nil {
		attrs = make(map[string]int)
	}

	a, err := d20.NewActor(spec.Slug).
		WithHP(hp).
		WithAC(ac).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	return &Hero{Spec: spec, Actor: a}, nil
}

// Profile is the view of a hero handed to the narrative collaborators.
type Profile struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Sex         string         `json:"sex,omitempty"`
	HP          int            `json:"hp"`
	MaxHP       int            `json:"max_hp"`
	AC          int            `json:"ac"`
	Attributes  map[string]int `json:"attributes,omitempty"`
}

// Profile reads the hero's stats from its d20 actor.
func (h *Hero) Profile() Profile {
	p := Profile{
		Name:        h.Spec.Name,
		Description: h.Spec.Description,
		Sex:         h.Spec.Sex,
		HP:          h.Actor.HP(),
		MaxHP:       h.Actor.MaxHP(),
		AC:          h.Actor.AC(),
	}
	keys := slices.Sorted(maps.Keys(h.Spec.Attributes))
	if len(keys) > 0 {
		p.Attributes = make(map[string]int, len(keys))
		for _, k := range keys {
			if v, ok := h.Actor.Attribute(k); ok {
				p.Attributes[k] = v
			}
		}
	}
	return p
}
