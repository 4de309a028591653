package state

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

// DiffWorker applies diffs to world states for one act. Unknown actor and
// scene references are dropped and logged, unknown objects become
// improvised objects, and player moves must follow a declared exit.
type DiffWorker struct {
	presenter *Presenter
	logger    *slog.Logger

	actorIDs  idIndex
	objectIDs idIndex
	sceneIDs  idIndex
}

// idIndex resolves a loose reference to a canonical id: first the literal
// id, then the slug of the reference against ids and display-name slugs.
type idIndex struct {
	ids   map[string]bool
	names map[string]string
}

func newIDIndex() idIndex {
	return idIndex{ids: make(map[string]bool), names: make(map[string]string)}
}

func (ix idIndex) add(id, name string) {
	ix.ids[id] = true
	if slug := Slugify(name); slug != "" {
		if _, taken := ix.names[slug]; !taken {
			ix.names[slug] = id
		}
	}
}

func (ix idIndex) resolve(ref string) (string, bool) {
	if ix.ids[ref] {
		return ref, true
	}
	slug := Slugify(ref)
	if ix.ids[slug] {
		return slug, true
	}
	id, ok := ix.names[slug]
	return id, ok
}

// NewDiffWorker indexes the actors, objects and scenes of the act resolved
// by NewPresenter(s, actNumber).
func NewDiffWorker(s *scenario.Scenario, actNumber int, logger *slog.Logger) *DiffWorker {
	if logger == nil {
		logger = slog.Default()
	}
	p := NewPresenter(s, actNumber)
	dw := &DiffWorker{
		presenter: p,
		logger:    logger,
		actorIDs:  newIDIndex(),
		objectIDs: newIDIndex(),
		sceneIDs:  newIDIndex(),
	}
	for _, a := range p.Actors() {
		dw.actorIDs.add(a.ID, a.Name)
	}
	for _, o := range p.Objects() {
		dw.objectIDs.add(o.ID, o.Name)
	}
	for _, sc := range p.Scenes() {
		dw.sceneIDs.add(sc.ID, sc.Name)
	}
	dw.sceneIDs.add(Offstage, "")
	return dw
}

// Apply returns a copy of ws with the diff applied. ws is never modified.
func (dw *DiffWorker) Apply(ws *WorldState, d Diff) *WorldState {
	if ws == nil {
		ws = &WorldState{}
	}
	out := ws.Clone()
	if out.Actors == nil {
		out.Actors = make(map[string]ActorState)
	}
	if out.Objects == nil {
		out.Objects = make(map[string]ObjectState)
	}

	for _, ch := range d.Changes() {
		switch ch.Kind {
		case ChangeActorUpdate:
			dw.applyActorUpdate(out, ch.Target, ch.Actor)
		case ChangeObjectUpdate:
			dw.applyObjectUpdate(out, ch.Target, ch.Object)
		case ChangeActorMove:
			dw.applyActorMove(out, ch.Target, ch.Scene)
		case ChangePlayerMove:
			dw.applyPlayerMove(out, ch.Scene)
		}
	}
	return out
}

func (dw *DiffWorker) actorState(ws *WorldState, id string) ActorState {
	if st, ok := ws.Actors[id]; ok {
		return st
	}
	if def, ok := dw.presenter.Act().Actor(id); ok {
		return ActorState{Scene: def.Scene, Status: def.DefaultStatus}
	}
	return ActorState{}
}

func (dw *DiffWorker) applyActorUpdate(ws *WorldState, ref string, u ActorUpdate) {
	id, ok := dw.actorIDs.resolve(ref)
	if !ok {
		dw.logger.Warn("Dropping update for unknown actor", "actor", ref)
		return
	}
	st := dw.actorState(ws, id)
	if u.Status != "" {
		st.Status = u.Status
		st.Statuses = nil
	}
	if len(u.Notes) > 0 {
		if st.Notes == nil {
			st.Notes = make(map[string]string, len(u.Notes))
		}
		maps.Copy(st.Notes, u.Notes)
	}
	ws.Actors[id] = st
}

func (dw *DiffWorker) applyObjectUpdate(ws *WorldState, ref string, u ObjectUpdate) {
	id, known := dw.objectIDs.resolve(ref)
	if !known {
		dw.applyImprovised(ws, ref, u)
		return
	}

	st, ok := ws.Objects[id]
	if !ok {
		if def, found := dw.presenter.Act().Object(id); found {
			st = ObjectState{Scene: def.Scene, Status: def.DefaultStatus}
		}
	}
	if u.Status != "" {
		st.Status = u.Status
		st.Statuses = nil
	}
	if u.Scene != nil {
		if scene, ok := dw.resolveObjectScene(*u.Scene); ok {
			st.Scene = scene
		} else {
			dw.logger.Warn("Dropping object move to unknown scene", "object", id, "scene", *u.Scene)
		}
	}
	ws.Objects[id] = st
}

func (dw *DiffWorker) applyImprovised(ws *WorldState, id string, u ObjectUpdate) {
	if ws.ImprovisedObjects == nil {
		ws.ImprovisedObjects = make(map[string]ImprovisedObject)
	}
	obj, exists := ws.ImprovisedObjects[id]
	if u.Status != "" {
		obj.Status = u.Status
	}
	if obj.Status == "" {
		obj.Status = StatusAcquired
	}
	if u.Scene != nil {
		if scene, ok := dw.resolveObjectScene(*u.Scene); ok {
			obj.Scene = scene
		} else {
			dw.logger.Warn("Dropping improvised object scene", "object", id, "scene", *u.Scene, "kept_scene", obj.Scene)
		}
	}
	ws.ImprovisedObjects[id] = obj
	if !exists {
		dw.logger.Debug("Recorded improvised object", "object", id, "status", obj.Status, "scene", obj.Scene)
	}
}

// resolveObjectScene accepts "" as carried.
func (dw *DiffWorker) resolveObjectScene(ref string) (string, bool) {
	if ref == "" {
		return "", true
	}
	return dw.sceneIDs.resolve(ref)
}

func (dw *DiffWorker) applyActorMove(ws *WorldState, actorRef, sceneRef string) {
	id, ok := dw.actorIDs.resolve(actorRef)
	if !ok {
		dw.logger.Warn("Dropping move for unknown actor", "actor", actorRef, "scene", sceneRef)
		return
	}
	scene, ok := dw.sceneIDs.resolve(sceneRef)
	if !ok {
		dw.logger.Warn("Dropping actor move to unknown scene", "actor", id, "scene", sceneRef)
		return
	}
	st := dw.actorState(ws, id)
	st.Scene = scene
	ws.Actors[id] = st
}

func (dw *DiffWorker) applyPlayerMove(ws *WorldState, sceneRef string) {
	scene, ok := dw.sceneIDs.resolve(sceneRef)
	if !ok || scene == Offstage {
		dw.logger.Warn("Dropping player move to unknown scene", "scene", sceneRef)
		return
	}
	if !slices.Contains(dw.presenter.AdjacentSceneIDs(ws.PlayerScene), scene) {
		dw.logger.Warn("Rejecting non-adjacent player move", "from", ws.PlayerScene, "to", scene)
		return
	}
	ws.PlayerScene = scene
}
