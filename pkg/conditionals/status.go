// Package conditionals evaluates scripted scenario events and end conditions
// against a world state.
package conditionals

import (
	"slices"

	"github.com/jwebster45206/story-arena/pkg/state"
)

func actorHasStatus(p *state.Presenter, ws *state.WorldState, actorID, status string) bool {
	def := ""
	if a, ok := p.Act().Actor(actorID); ok {
		def = a.DefaultStatus
	}
	return slices.Contains(ws.ActorStatuses(actorID, def), status)
}

func objectHasStatus(p *state.Presenter, ws *state.WorldState, objectID, status string) bool {
	def := ""
	if o, ok := p.Act().Object(objectID); ok {
		def = o.DefaultStatus
	}
	return slices.Contains(ws.ObjectStatuses(objectID, def), status)
}
