package conditionals

import (
	"log/slog"

	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// EventsForTurn returns the act's events that fire at this step, in
// declaration order. turnNumber is the game-wide turn number; ws.ActTurn is
// the within-act counter for the same turn.
func EventsForTurn(p *state.Presenter, ws *state.WorldState, turnNumber int) []scenario.Event {
	var fired []scenario.Event
	for _, ev := range p.Events() {
		if ev.StateIndexed() {
			if ws.HasFired(ev.ID) || !triggerHolds(p, ws, ev.Trigger) {
				continue
			}
			fired = append(fired, ev)
			continue
		}

		switch {
		case ev.ActTurn > 0:
			if ev.ActTurn != ws.ActTurn {
				continue
			}
		case ev.TriggerTurn > 0:
			if ev.TriggerTurn != turnNumber {
				continue
			}
		default:
			continue
		}
		if ev.Condition != nil && ev.Condition.ActorStatus != nil {
			c := ev.Condition.ActorStatus
			if !actorHasStatus(p, ws, c.ID, c.Status) {
				continue
			}
		}
		fired = append(fired, ev)
	}
	return fired
}

func triggerHolds(p *state.Presenter, ws *state.WorldState, t *scenario.EventTrigger) bool {
	switch {
	case t.ActorStatus != nil:
		return actorHasStatus(p, ws, t.ActorStatus.Actor, t.ActorStatus.Status)
	case t.ObjectStatus != nil:
		return objectHasStatus(p, ws, t.ObjectStatus.Object, t.ObjectStatus.Status)
	case t.PlayerAtScene != "":
		return ws.PlayerScene == t.PlayerAtScene
	default:
		return false
	}
}

// EventDiff translates an event action into a world-state diff. World flags
// and unknown actions produce an empty diff.
func EventDiff(ev scenario.Event) state.Diff {
	var d state.Diff
	if ev.Action.Type != scenario.ActionActorEnters || ev.Action.ActorID == "" {
		return d
	}
	if ev.Action.Scene != "" {
		d.ActorMovedTo = map[string]string{ev.Action.ActorID: ev.Action.Scene}
	}
	if ev.Action.NewStatus != "" {
		d.ActorUpdates = map[string]state.ActorUpdate{ev.Action.ActorID: {Status: ev.Action.NewStatus}}
	}
	return d
}

// ApplyEvents selects the events for this step and applies each through its
// own diff application. State-indexed events are recorded in fired_events.
// The input world state is not modified.
func ApplyEvents(dw *state.DiffWorker, p *state.Presenter, ws *state.WorldState, turnNumber int, logger *slog.Logger) (*state.WorldState, []scenario.Event) {
	if logger == nil {
		logger = slog.Default()
	}
	events := EventsForTurn(p, ws, turnNumber)
	out := ws.Clone()
	for _, ev := range events {
		out = dw.Apply(out, EventDiff(ev))
		if ev.StateIndexed() {
			out.MarkFired(ev.ID)
		}
		logger.Info("Scenario event fired",
			"event", ev.ID,
			"action", ev.Action.Type,
			"turn_number", turnNumber,
			"act_turn", ws.ActTurn)
	}
	return out, events
}
