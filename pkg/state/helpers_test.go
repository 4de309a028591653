package state

import (
	"testing"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

func loadScenario(t *testing.T, locale string) *scenario.Scenario {
	t.Helper()
	c, err := scenario.LoadCatalog("../../data/scenarios", nil)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	s, err := c.Get("prison_break", locale)
	if err != nil {
		t.Fatalf("failed to find prison_break: %v", err)
	}
	return s
}

func cellWorldState() *WorldState {
	return &WorldState{
		ScenarioSlug: "prison_break",
		Health:       100,
		DangerLevel:  40,
		ActNumber:    1,
		PlayerScene:  "cell",
		Actors: map[string]ActorState{
			"guard_rodriguez": {Scene: "cell_block", Status: "awake"},
			"guard_chen":      {Scene: "guard_room", Status: "asleep"},
		},
		Objects: map[string]ObjectState{
			"loose_grate": {Scene: "cell", Status: "in_place"},
		},
		ImprovisedObjects: map[string]ImprovisedObject{},
	}
}

func stringPtr(s string) *string {
	return &s
}
