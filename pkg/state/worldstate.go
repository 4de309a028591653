package state

import (
	"maps"
	"slices"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

// Starting resources for a new game.
const (
	InitialHealth      = 100
	InitialDangerLevel = 40
	InitialMomentum    = 0

	MinMomentum    = -3
	MaxMomentum    = 5
	MaxDangerLevel = 100
)

// Offstage is a valid scene for actors and objects that are out of play.
const Offstage = "offstage"

// StatusAcquired is the default status of an improvised object.
const StatusAcquired = "acquired"

// WorldState is the mutable per-game document recording numeric resources
// and entity placement/status.
type WorldState struct {
	ScenarioSlug      string                      `json:"scenario_slug"`
	Health            int                         `json:"health"`
	DangerLevel       int                         `json:"danger_level"`
	Momentum          int                         `json:"momentum"`
	ActNumber         int                         `json:"act_number"`
	ActTurn           int                         `json:"act_turn"`
	PlayerScene       string                      `json:"player_scene"`
	Actors            map[string]ActorState       `json:"actors"`
	Objects           map[string]ObjectState      `json:"objects"`
	ImprovisedObjects map[string]ImprovisedObject `json:"improvised_objects"`
	FiredEvents       []string                    `json:"fired_events"`
}

// ActorState is the placement of a scenario actor. Statuses, when set,
// holds several simultaneous statuses and takes precedence over Status.
type ActorState struct {
	Scene    string            `json:"scene,omitempty"`
	Status   string            `json:"status,omitempty"`
	Statuses []string          `json:"statuses,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ObjectState is the placement of a scenario object.
type ObjectState struct {
	Scene    string   `json:"scene,omitempty"`
	Status   string   `json:"status,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
}

// ImprovisedObject is a player-introduced item with no scenario definition.
// An empty Scene means the player carries it.
type ImprovisedObject struct {
	Status string `json:"status"`
	Scene  string `json:"scene,omitempty"`
}

// New builds the initial world state of a scenario at the given act.
func New(s *scenario.Scenario, actNumber int) *WorldState {
	ws := &WorldState{
		ScenarioSlug: s.Slug,
		Health:       InitialHealth,
		DangerLevel:  InitialDangerLevel,
		Momentum:     InitialMomentum,
	}
	ws.ResetForAct(s, actNumber)
	return ws
}

// ResetForAct rebuilds actor/object placement from the act's defaults, puts
// the player in the act's first scene and resets the within-act counter.
// Improvised objects from the previous act are discarded. Numeric resources
// and fired events carry over.
func (ws *WorldState) ResetForAct(s *scenario.Scenario, actNumber int) {
	act, ok := s.Act(actNumber)
	if !ok {
		act = s.FirstAct()
	}

	ws.ActNumber = actNumber
	ws.ActTurn = 0
	ws.Actors = make(map[string]ActorState)
	ws.Objects = make(map[string]ObjectState)
	ws.ImprovisedObjects = make(map[string]ImprovisedObject)
	ws.PlayerScene = ""
	if act == nil {
		return
	}
	if len(act.Scenes) > 0 {
		ws.PlayerScene = act.Scenes[0].ID
	}
	for _, a := range act.Actors {
		ws.Actors[a.ID] = ActorState{Scene: a.Scene, Status: a.DefaultStatus}
	}
	for _, o := range act.Objects {
		ws.Objects[o.ID] = ObjectState{Scene: o.Scene, Status: o.DefaultStatus}
	}
}

// Clone returns a deep copy.
func (ws *WorldState) Clone() *WorldState {
	if ws == nil {
		return nil
	}
	c := *ws
	c.Actors = make(map[string]ActorState, len(ws.Actors))
	for id, a := range ws.Actors {
		a.Statuses = slices.Clone(a.Statuses)
		a.Notes = maps.Clone(a.Notes)
		c.Actors[id] = a
	}
	c.Objects = make(map[string]ObjectState, len(ws.Objects))
	for id, o := range ws.Objects {
		o.Statuses = slices.Clone(o.Statuses)
		c.Objects[id] = o
	}
	c.ImprovisedObjects = maps.Clone(ws.ImprovisedObjects)
	if c.ImprovisedObjects == nil {
		c.ImprovisedObjects = make(map[string]ImprovisedObject)
	}
	c.FiredEvents = slices.Clone(ws.FiredEvents)
	return &c
}

// HasFired reports whether a one-shot event already triggered.
func (ws *WorldState) HasFired(eventID string) bool {
	return slices.Contains(ws.FiredEvents, eventID)
}

// MarkFired records a one-shot event.
func (ws *WorldState) MarkFired(eventID string) {
	if !ws.HasFired(eventID) {
		ws.FiredEvents = append(ws.FiredEvents, eventID)
	}
}

// ActorStatuses returns the effective statuses of an actor: the recorded
// multi-status list, else the recorded status, else def.
func (ws *WorldState) ActorStatuses(id, def string) []string {
	if a, ok := ws.Actors[id]; ok {
		if len(a.Statuses) > 0 {
			return a.Statuses
		}
		if a.Status != "" {
			return []string{a.Status}
		}
	}
	if def == "" {
		return nil
	}
	return []string{def}
}

// ObjectStatuses mirrors ActorStatuses for objects.
func (ws *WorldState) ObjectStatuses(id, def string) []string {
	if o, ok := ws.Objects[id]; ok {
		if len(o.Statuses) > 0 {
			return o.Statuses
		}
		if o.Status != "" {
			return []string{o.Status}
		}
	}
	if def == "" {
		return nil
	}
	return []string{def}
}

// ActorStatus returns the primary status of an actor, or "" when unknown.
func (ws *WorldState) ActorStatus(id string) string {
	if statuses := ws.ActorStatuses(id, ""); len(statuses) > 0 {
		return statuses[0]
	}
	return ""
}

// ObjectStatus returns the primary status of an object, or "" when unknown.
func (ws *WorldState) ObjectStatus(id string) string {
	if statuses := ws.ObjectStatuses(id, ""); len(statuses) > 0 {
		return statuses[0]
	}
	return ""
}
