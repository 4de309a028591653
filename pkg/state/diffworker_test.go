package state

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDiffWorker_ActorUpdates(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	tests := []struct {
		name   string
		diff   Diff
		actor  string
		status string
	}{
		{
			name:   "updates status",
			diff:   Diff{ActorUpdates: map[string]ActorUpdate{"guard_rodriguez": {Status: "alerted"}}},
			actor:  "guard_rodriguez",
			status: "alerted",
		},
		{
			name:   "accepts status outside the vocabulary",
			diff:   Diff{ActorUpdates: map[string]ActorUpdate{"guard_rodriguez": {Status: "tap_dancing"}}},
			actor:  "guard_rodriguez",
			status: "tap_dancing",
		},
		{
			name:   "resolves display name",
			diff:   Diff{ActorUpdates: map[string]ActorUpdate{"Guard Chen": {Status: "awake"}}},
			actor:  "guard_chen",
			status: "awake",
		},
		{
			name:   "creates entry for declared actor missing from state",
			diff:   Diff{ActorUpdates: map[string]ActorUpdate{"inmate_torres": {Status: "awake"}}},
			actor:  "inmate_torres",
			status: "awake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dw.Apply(cellWorldState(), tt.diff)
			if got := result.Actors[tt.actor].Status; got != tt.status {
				t.Errorf("expected %s status %q, got %q", tt.actor, tt.status, got)
			}
		})
	}
}

func TestDiffWorker_ActorNotesMerge(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	ws := cellWorldState()
	ws.Actors["guard_rodriguez"] = ActorState{
		Scene:  "cell_block",
		Status: "awake",
		Notes:  map[string]string{"mood": "bored"},
	}

	result := dw.Apply(ws, Diff{ActorUpdates: map[string]ActorUpdate{
		"guard_rodriguez": {Notes: map[string]string{"suspects": "player"}},
	}})

	notes := result.Actors["guard_rodriguez"].Notes
	if notes["mood"] != "bored" || notes["suspects"] != "player" {
		t.Errorf("expected merged notes, got %v", notes)
	}
	if result.Actors["guard_rodriguez"].Status != "awake" {
		t.Errorf("expected status untouched when only notes change")
	}
}

func TestDiffWorker_UnknownActorIgnored(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	result := dw.Apply(cellWorldState(), Diff{
		ActorUpdates: map[string]ActorUpdate{"ghost_actor": {Status: "awake"}},
		ActorMovedTo: map[string]string{"ghost_actor": "cell"},
	})

	if _, ok := result.Actors["ghost_actor"]; ok {
		t.Error("expected no entry for unknown actor")
	}
	if len(result.Actors) != 2 {
		t.Errorf("expected actors map unchanged, got %d entries", len(result.Actors))
	}
}

func TestDiffWorker_ActorMoves(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	tests := []struct {
		name  string
		scene string
		want  string
	}{
		{"declared scene", "guard_room", "guard_room"},
		{"offstage", "offstage", "offstage"},
		{"unknown scene rejected", "mars", "cell_block"},
		{"scene by display name", "Guard Room", "guard_room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dw.Apply(cellWorldState(), Diff{ActorMovedTo: map[string]string{"guard_rodriguez": tt.scene}})
			if got := result.Actors["guard_rodriguez"].Scene; got != tt.want {
				t.Errorf("expected scene %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDiffWorker_PlayerMoves(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	tests := []struct {
		name  string
		scene string
		want  string
	}{
		{"adjacent exit", "vent_shaft", "vent_shaft"},
		{"locked exit is still adjacent", "cell_block", "cell_block"},
		{"non-adjacent scene", "guard_room", "cell"},
		{"unknown scene", "moon", "cell"},
		{"offstage", "offstage", "cell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dw.Apply(cellWorldState(), Diff{PlayerMovedTo: tt.scene})
			if result.PlayerScene != tt.want {
				t.Errorf("expected player scene %q, got %q", tt.want, result.PlayerScene)
			}
		})
	}
}

func TestDiffWorker_ObjectUpdates(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	result := dw.Apply(cellWorldState(), Diff{ObjectUpdates: map[string]ObjectUpdate{
		"loose_grate": {Status: "removed"},
		"keyring":     {Status: "taken", Scene: stringPtr("")},
	}})

	if got := result.Objects["loose_grate"]; got.Status != "removed" || got.Scene != "cell" {
		t.Errorf("expected grate removed in cell, got %+v", got)
	}
	if got := result.Objects["keyring"]; got.Status != "taken" || got.Scene != "" {
		t.Errorf("expected carried keyring, got %+v", got)
	}
	if len(result.ImprovisedObjects) != 0 {
		t.Errorf("expected no improvised objects, got %v", result.ImprovisedObjects)
	}
}

func TestDiffWorker_ImprovisedObjects(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	result := dw.Apply(cellWorldState(), Diff{ObjectUpdates: map[string]ObjectUpdate{
		"sharpened_spoon": {},
		"blanket_dummy":   {Status: "arranged", Scene: stringPtr("cell")},
		"chalk":           {Scene: stringPtr("mars")},
	}})

	spoon, ok := result.ImprovisedObjects["sharpened_spoon"]
	if !ok {
		t.Fatal("expected sharpened_spoon to be improvised")
	}
	if spoon.Status != StatusAcquired || spoon.Scene != "" {
		t.Errorf("expected carried acquired spoon, got %+v", spoon)
	}
	if dummy := result.ImprovisedObjects["blanket_dummy"]; dummy.Status != "arranged" || dummy.Scene != "cell" {
		t.Errorf("expected arranged dummy in cell, got %+v", dummy)
	}
	if chalk := result.ImprovisedObjects["chalk"]; chalk.Scene != "" || chalk.Status != StatusAcquired {
		t.Errorf("expected unknown scene dropped for chalk, got %+v", chalk)
	}
	if _, ok := result.Objects["sharpened_spoon"]; ok {
		t.Error("improvised object must not enter the objects map")
	}
}

func TestDiffWorker_ImprovisedUnknownSceneIsLogged(t *testing.T) {
	s := loadScenario(t, "")
	var buf bytes.Buffer
	dw := NewDiffWorker(s, 1, slog.New(slog.NewTextHandler(&buf, nil)))

	ws := cellWorldState()
	ws.ImprovisedObjects["chalk"] = ImprovisedObject{Status: "drawn", Scene: "vent_shaft"}
	result := dw.Apply(ws, Diff{ObjectUpdates: map[string]ObjectUpdate{
		"chalk": {Scene: stringPtr("mars")},
	}})

	if chalk := result.ImprovisedObjects["chalk"]; chalk.Scene != "vent_shaft" {
		t.Errorf("expected chalk to stay in the vent shaft, got %+v", chalk)
	}
	out := buf.String()
	if !strings.Contains(out, "Dropping improvised object scene") || !strings.Contains(out, "scene=mars") {
		t.Errorf("expected a warning for the unknown scene, got %q", out)
	}
}

func TestDiffWorker_LocalizedSlugResolution(t *testing.T) {
	s := loadScenario(t, "pl")
	dw := NewDiffWorker(s, 1, nil)

	result := dw.Apply(cellWorldState(), Diff{
		ActorUpdates:  map[string]ActorUpdate{"wiezien_torres": {Status: "awake"}},
		ObjectUpdates: map[string]ObjectUpdate{"poluzowana_kratka_wentylacyjna": {Status: "removed"}},
		PlayerMovedTo: "szyb_wentylacyjny",
	})

	if got := result.Actors["inmate_torres"].Status; got != "awake" {
		t.Errorf("expected inmate_torres awake, got %q", got)
	}
	if got := result.Objects["loose_grate"].Status; got != "removed" {
		t.Errorf("expected loose_grate removed, got %q", got)
	}
	if result.PlayerScene != "vent_shaft" {
		t.Errorf("expected player in vent_shaft, got %q", result.PlayerScene)
	}
}

func TestDiffWorker_DoesNotMutateInput(t *testing.T) {
	s := loadScenario(t, "")
	dw := NewDiffWorker(s, 1, nil)

	ws := cellWorldState()
	before, err := json.Marshal(ws)
	if err != nil {
		t.Fatal(err)
	}

	dw.Apply(ws, Diff{
		ActorUpdates:  map[string]ActorUpdate{"guard_rodriguez": {Status: "alerted", Notes: map[string]string{"a": "b"}}},
		ObjectUpdates: map[string]ObjectUpdate{"loose_grate": {Status: "removed"}, "spoon": {}},
		ActorMovedTo:  map[string]string{"guard_chen": "cell_block"},
		PlayerMovedTo: "vent_shaft",
	})

	after, err := json.Marshal(ws)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("input world state was mutated:\nbefore: %s\nafter:  %s", before, after)
	}
}
