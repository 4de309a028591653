package state

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Diff is a proposed partial change to a world state, produced by narration
// or by scripted events. Keys are actor/object ids or display-name slugs.
type Diff struct {
	ActorUpdates  map[string]ActorUpdate  `json:"actor_updates,omitempty"`
	ObjectUpdates map[string]ObjectUpdate `json:"object_updates,omitempty"`
	ActorMovedTo  map[string]string       `json:"actor_moved_to,omitempty"`
	PlayerMovedTo string                  `json:"player_moved_to,omitempty"`
}

// ActorUpdate sets an actor's status and merges notes.
type ActorUpdate struct {
	Status string            `json:"status,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// ObjectUpdate sets an object's status and, when Scene is non-nil, its scene.
// A non-nil empty Scene means the player carries the object.
type ObjectUpdate struct {
	Status string  `json:"status,omitempty"`
	Scene  *string `json:"scene,omitempty"`
}

// IsEmpty reports whether the diff proposes no change.
func (d Diff) IsEmpty() bool {
	return len(d.ActorUpdates) == 0 && len(d.ObjectUpdates) == 0 &&
		len(d.ActorMovedTo) == 0 && d.PlayerMovedTo == ""
}

// ChangeKind discriminates Change.
type ChangeKind int

const (
	ChangeActorUpdate ChangeKind = iota + 1
	ChangeObjectUpdate
	ChangeActorMove
	ChangePlayerMove
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeActorUpdate:
		return "actor_update"
	case ChangeObjectUpdate:
		return "object_update"
	case ChangeActorMove:
		return "actor_move"
	case ChangePlayerMove:
		return "player_move"
	default:
		return "unknown"
	}
}

// Change is one entry of a diff. Kind selects which fields are meaningful:
// Actor for actor updates, Object for object updates, Scene for moves.
// Target is empty for player moves.
type Change struct {
	Kind   ChangeKind
	Target string
	Actor  ActorUpdate
	Object ObjectUpdate
	Scene  string
}

// Changes flattens the diff into an ordered list: actor updates, object
// updates, actor moves, then the player move. Keys are sorted within a kind.
func (d Diff) Changes() []Change {
	var out []Change
	for _, id := range sortedKeys(d.ActorUpdates) {
		out = append(out, Change{Kind: ChangeActorUpdate, Target: id, Actor: d.ActorUpdates[id]})
	}
	for _, id := range sortedKeys(d.ObjectUpdates) {
		out = append(out, Change{Kind: ChangeObjectUpdate, Target: id, Object: d.ObjectUpdates[id]})
	}
	for _, id := range sortedKeys(d.ActorMovedTo) {
		out = append(out, Change{Kind: ChangeActorMove, Target: id, Scene: d.ActorMovedTo[id]})
	}
	if d.PlayerMovedTo != "" {
		out = append(out, Change{Kind: ChangePlayerMove, Scene: d.PlayerMovedTo})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ParseDiff decodes a diff from generative output. Entries with the wrong
// shape are skipped rather than failing the whole diff; the error is only
// returned when raw is not a JSON object at all.
func ParseDiff(raw json.RawMessage) (Diff, error) {
	var d Diff
	if len(raw) == 0 || string(raw) == "null" {
		return d, nil
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return d, fmt.Errorf("diff is not an object: %w", err)
	}

	if entries := rawEntries(sections["actor_updates"]); len(entries) > 0 {
		d.ActorUpdates = make(map[string]ActorUpdate)
		for id, v := range entries {
			if u, ok := parseActorUpdate(v); ok {
				d.ActorUpdates[id] = u
			}
		}
	}
	if entries := rawEntries(sections["object_updates"]); len(entries) > 0 {
		d.ObjectUpdates = make(map[string]ObjectUpdate)
		for id, v := range entries {
			if u, ok := parseObjectUpdate(v); ok {
				d.ObjectUpdates[id] = u
			}
		}
	}
	if entries := rawEntries(sections["actor_moved_to"]); len(entries) > 0 {
		d.ActorMovedTo = make(map[string]string)
		for id, v := range entries {
			var scene string
			if json.Unmarshal(v, &scene) == nil && scene != "" {
				d.ActorMovedTo[id] = scene
			}
		}
	}
	if v, ok := sections["player_moved_to"]; ok {
		var scene string
		if json.Unmarshal(v, &scene) == nil {
			d.PlayerMovedTo = strings.TrimSpace(scene)
		}
	}
	return d, nil
}

func rawEntries(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func parseActorUpdate(raw json.RawMessage) (ActorUpdate, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ActorUpdate{}, false
	}
	var u ActorUpdate
	if v, ok := fields["status"]; ok {
		_ = json.Unmarshal(v, &u.Status)
	}
	if v, ok := fields["notes"]; ok {
		var notes map[string]string
		var note string
		switch {
		case json.Unmarshal(v, &notes) == nil:
			u.Notes = notes
		case json.Unmarshal(v, &note) == nil && note != "":
			u.Notes = map[string]string{"note": note}
		}
	}
	return u, u.Status != "" || len(u.Notes) > 0
}

func parseObjectUpdate(raw json.RawMessage) (ObjectUpdate, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ObjectUpdate{}, false
	}
	var u ObjectUpdate
	if v, ok := fields["status"]; ok {
		_ = json.Unmarshal(v, &u.Status)
	}
	if v, ok := fields["scene"]; ok {
		var scene string
		if string(v) == "null" || json.Unmarshal(v, &scene) == nil {
			u.Scene = &scene
		}
	}
	return u, true
}
