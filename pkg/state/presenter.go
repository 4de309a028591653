package state

import (
	"slices"
	"strings"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

// Presenter derives point-in-time views of a scenario act.
type Presenter struct {
	scenario *scenario.Scenario
	act      *scenario.Act
}

// NewPresenter resolves the effective act: the requested number, else the
// first act of the scenario.
func NewPresenter(s *scenario.Scenario, actNumber int) *Presenter {
	act, ok := s.Act(actNumber)
	if !ok {
		act = s.FirstAct()
	}
	if act == nil {
		act = &scenario.Act{}
	}
	return &Presenter{scenario: s, act: act}
}

func (p *Presenter) Scenario() *scenario.Scenario {
	return p.scenario
}

func (p *Presenter) Act() *scenario.Act {
	return p.act
}

func (p *Presenter) Scenes() []scenario.Scene {
	return p.act.Scenes
}

func (p *Presenter) Actors() []scenario.ActorDef {
	return p.act.Actors
}

func (p *Presenter) Objects() []scenario.ObjectDef {
	return p.act.Objects
}

func (p *Presenter) Conditions() []scenario.Condition {
	return p.act.Conditions
}

func (p *Presenter) Events() []scenario.Event {
	return p.act.Events
}

// TurnLimit is the scenario turn limit, defaulting to 20.
func (p *Presenter) TurnLimit() int {
	return p.scenario.TurnLimitOrDefault()
}

// SceneContext is everything present in one scene.
type SceneContext struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Actors      []ActorView     `json:"actors"`
	Objects     []ObjectView    `json:"objects"`
	Exits       []scenario.Exit `json:"exits"`
}

type ActorView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	StatusOptions []string `json:"status_options,omitempty"`
}

type ObjectView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	StatusOptions []string `json:"status_options,omitempty"`
	Improvised    bool     `json:"improvised,omitempty"`
}

// SceneContext builds the view of sceneID. It returns false when the scene
// is not part of the act.
func (p *Presenter) SceneContext(ws *WorldState, sceneID string) (*SceneContext, bool) {
	scene, ok := p.act.Scene(sceneID)
	if !ok {
		return nil, false
	}
	if ws == nil {
		ws = &WorldState{}
	}

	ctx := &SceneContext{
		ID:          scene.ID,
		Name:        scene.Name,
		Description: scene.Description,
		Actors:      []ActorView{},
		Objects:     []ObjectView{},
		Exits:       slices.Clone(scene.Exits),
	}

	for _, a := range p.act.Actors {
		if p.actorScene(ws, a) != sceneID {
			continue
		}
		statuses := ws.ActorStatuses(a.ID, a.DefaultStatus)
		view := ActorView{
			ID:            a.ID,
			Name:          a.Name,
			Description:   a.Description,
			Statuses:      statuses,
			StatusOptions: a.StatusOptions,
		}
		if len(statuses) > 0 {
			view.Status = statuses[0]
		}
		ctx.Actors = append(ctx.Actors, view)
	}

	for _, o := range p.act.Objects {
		if scene := p.objectScene(ws, o); scene != "" && scene != sceneID {
			continue
		}
		statuses := ws.ObjectStatuses(o.ID, o.DefaultStatus)
		view := ObjectView{
			ID:            o.ID,
			Name:          o.Name,
			Description:   o.Description,
			Statuses:      statuses,
			StatusOptions: o.StatusOptions,
		}
		if len(statuses) > 0 {
			view.Status = statuses[0]
		}
		ctx.Objects = append(ctx.Objects, view)
	}

	for _, id := range sortedKeys(ws.ImprovisedObjects) {
		obj := ws.ImprovisedObjects[id]
		if obj.Scene != "" && obj.Scene != sceneID {
			continue
		}
		status := obj.Status
		if status == "" {
			status = StatusAcquired
		}
		ctx.Objects = append(ctx.Objects, ObjectView{
			ID:         id,
			Name:       strings.ReplaceAll(id, "_", " "),
			Status:     status,
			Statuses:   []string{status},
			Improvised: true,
		})
	}

	return ctx, true
}

func (p *Presenter) actorScene(ws *WorldState, a scenario.ActorDef) string {
	if st, ok := ws.Actors[a.ID]; ok && st.Scene != "" {
		return st.Scene
	}
	return a.Scene
}

// objectScene returns "" for carried objects.
func (p *Presenter) objectScene(ws *WorldState, o scenario.ObjectDef) string {
	if st, ok := ws.Objects[o.ID]; ok {
		return st.Scene
	}
	return o.Scene
}

// DeltaEntry describes an actor or object that departs from its defaults.
// Scene is only set when the entity moved.
type DeltaEntry struct {
	Type   string `json:"type"` // "actor" or "object"
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Scene  string `json:"scene,omitempty"`
}

// WorldStateDelta lists entities whose status or scene differs from the
// scenario defaults, in declaration order.
func (p *Presenter) WorldStateDelta(ws *WorldState) []DeltaEntry {
	var out []DeltaEntry
	if ws == nil {
		return out
	}
	for _, a := range p.act.Actors {
		st, ok := ws.Actors[a.ID]
		if !ok {
			continue
		}
		status := ws.ActorStatus(a.ID)
		moved := st.Scene != "" && st.Scene != a.Scene
		if status == a.DefaultStatus && !moved {
			continue
		}
		entry := DeltaEntry{Type: "actor", ID: a.ID, Name: a.Name, Status: status}
		if moved {
			entry.Scene = st.Scene
		}
		out = append(out, entry)
	}
	for _, o := range p.act.Objects {
		st, ok := ws.Objects[o.ID]
		if !ok {
			continue
		}
		status := ws.ObjectStatus(o.ID)
		moved := st.Scene != o.Scene
		if status == o.DefaultStatus && !moved {
			continue
		}
		entry := DeltaEntry{Type: "object", ID: o.ID, Name: o.Name, Status: status}
		if moved {
			entry.Scene = st.Scene
		}
		out = append(out, entry)
	}
	return out
}

// AdjacentSceneIDs returns the exit destinations of sceneID.
func (p *Presenter) AdjacentSceneIDs(sceneID string) []string {
	scene, ok := p.act.Scene(sceneID)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(scene.Exits))
	for _, exit := range scene.Exits {
		ids = append(ids, exit.To)
	}
	return ids
}

// IsExitScene reports whether any exit of sceneID leaves the story.
func (p *Presenter) IsExitScene(sceneID string) bool {
	scene, ok := p.act.Scene(sceneID)
	if !ok {
		return false
	}
	return slices.ContainsFunc(scene.Exits, func(e scenario.Exit) bool { return e.ExitsStory })
}

// LeavesStory reports whether the exit from fromID to toID leaves the story.
func (p *Presenter) LeavesStory(fromID, toID string) bool {
	scene, ok := p.act.Scene(fromID)
	if !ok {
		return false
	}
	return slices.ContainsFunc(scene.Exits, func(e scenario.Exit) bool { return e.ExitsStory && e.To == toID })
}
