package conditionals

import (
	"testing"

	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
)

func loadScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	c, err := scenario.LoadCatalog("../../data/scenarios", nil)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	s, err := c.Get("prison_break", "")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func eventIDs(events []scenario.Event) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

func TestEventsForTurn_ActTurnIndexed(t *testing.T) {
	s := loadScenario(t)
	p := state.NewPresenter(s, 1)

	tests := []struct {
		name    string
		actTurn int
		chen    string
		want    int
	}{
		{"fires on its act turn", 4, "asleep", 1},
		{"condition not met", 4, "awake", 0},
		{"other turn", 3, "asleep", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := state.New(s, 1)
			ws.ActTurn = tt.actTurn
			ws.Actors["guard_chen"] = state.ActorState{Scene: "guard_room", Status: tt.chen}

			events := EventsForTurn(p, ws, 10)
			if len(events) != tt.want {
				t.Errorf("expected %d events, got %v", tt.want, eventIDs(events))
			}
		})
	}
}

func TestEventsForTurn_GlobalTurnIndexed(t *testing.T) {
	s := &scenario.Scenario{Acts: []scenario.Act{{
		Number: 1,
		Scenes: []scenario.Scene{{ID: "square"}},
		Events: []scenario.Event{
			{ID: "watch", TriggerTurn: 5, Action: scenario.EventAction{Type: scenario.ActionWorldFlag}},
		},
	}}}
	p := state.NewPresenter(s, 1)
	ws := state.New(s, 1)

	if got := EventsForTurn(p, ws, 5); len(got) != 1 {
		t.Errorf("expected watch on turn 5, got %v", eventIDs(got))
	}
	if got := EventsForTurn(p, ws, 6); len(got) != 0 {
		t.Errorf("expected nothing on turn 6, got %v", eventIDs(got))
	}
}

func TestApplyEvents_StateIndexedIsIdempotent(t *testing.T) {
	s := loadScenario(t)
	p := state.NewPresenter(s, 1)
	dw := state.NewDiffWorker(s, 1, nil)

	ws := state.New(s, 1)
	ws.ActTurn = 2
	ws.Actors["guard_rodriguez"] = state.ActorState{Scene: "cell_block", Status: "alerted"}

	out, events := ApplyEvents(dw, p, ws, 2, nil)
	if len(events) != 1 || events[0].ID != "alarm_raised" {
		t.Fatalf("expected alarm_raised, got %v", eventIDs(events))
	}
	chen := out.Actors["guard_chen"]
	if chen.Scene != "cell_block" || chen.Status != "alerted" {
		t.Errorf("expected chen alerted in the block, got %+v", chen)
	}
	if !out.HasFired("alarm_raised") {
		t.Error("expected alarm_raised recorded as fired")
	}
	if ws.HasFired("alarm_raised") || ws.Actors["guard_chen"].Scene != "guard_room" {
		t.Error("input world state was modified")
	}

	out.ActTurn = 3
	_, again := ApplyEvents(dw, p, out, 3, nil)
	if len(again) != 0 {
		t.Errorf("expected no refire, got %v", eventIDs(again))
	}
}

func TestApplyEvents_PlayerAtScene(t *testing.T) {
	s := loadScenario(t)
	p := state.NewPresenter(s, 2)
	dw := state.NewDiffWorker(s, 2, nil)

	ws := state.New(s, 2)
	ws.PlayerScene = "yard"
	ws.Actors["tower_guard"] = state.ActorState{Scene: "offstage", Status: "distracted"}

	out, events := ApplyEvents(dw, p, ws, 8, nil)
	if len(events) != 1 || events[0].ID != "tower_watch" {
		t.Fatalf("expected tower_watch, got %v", eventIDs(events))
	}
	if g := out.Actors["tower_guard"]; g.Scene != "wall" || g.Status != "watching" {
		t.Errorf("expected tower guard back on the wall, got %+v", g)
	}
}

func TestEventDiff(t *testing.T) {
	enter := scenario.Event{Action: scenario.EventAction{
		Type: scenario.ActionActorEnters, ActorID: "guard_chen", Scene: "cell_block", NewStatus: "awake",
	}}
	d := EventDiff(enter)
	if d.ActorMovedTo["guard_chen"] != "cell_block" || d.ActorUpdates["guard_chen"].Status != "awake" {
		t.Errorf("unexpected diff %+v", d)
	}

	noStatus := EventDiff(scenario.Event{Action: scenario.EventAction{
		Type: scenario.ActionActorEnters, ActorID: "guard_chen", Scene: "cell_block",
	}})
	if len(noStatus.ActorUpdates) != 0 {
		t.Error("expected no status update without new_status")
	}

	if !EventDiff(scenario.Event{Action: scenario.EventAction{Type: scenario.ActionWorldFlag}}).IsEmpty() {
		t.Error("expected empty diff for a world flag")
	}
}

func TestCheckEnd(t *testing.T) {
	s := loadScenario(t)

	tests := []struct {
		name   string
		turn   int
		setup  func(ws *state.WorldState)
		wantID string
		goal   bool
	}{
		{
			name:   "nothing matches",
			turn:   3,
			setup:  func(ws *state.WorldState) {},
			wantID: "",
		},
		{
			name:   "turn limit first",
			turn:   20,
			setup:  func(ws *state.WorldState) { ws.Health = 0; ws.PlayerScene = "laundry" },
			wantID: TurnLimitReached,
		},
		{
			name:   "health depleted before scenario conditions",
			turn:   5,
			setup:  func(ws *state.WorldState) { ws.Health = 0; ws.PlayerScene = "laundry" },
			wantID: HealthDepleted,
		},
		{
			name:   "act goal",
			turn:   5,
			setup:  func(ws *state.WorldState) { ws.PlayerScene = "laundry" },
			wantID: "reached_laundry",
			goal:   true,
		},
		{
			name: "all actors have status",
			turn: 5,
			setup: func(ws *state.WorldState) {
				ws.Actors["guard_rodriguez"] = state.ActorState{Scene: "cell_block", Status: "alerted"}
				ws.Actors["guard_chen"] = state.ActorState{Scene: "cell_block", Statuses: []string{"awake", "alerted"}}
			},
			wantID: "caught_in_block",
		},
		{
			name: "only one actor alerted",
			turn: 5,
			setup: func(ws *state.WorldState) {
				ws.Actors["guard_rodriguez"] = state.ActorState{Scene: "cell_block", Status: "alerted"}
			},
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := state.New(s, 1)
			tt.setup(ws)
			result := CheckEnd(s, ws, tt.turn)
			if tt.wantID == "" {
				if result != nil {
					t.Errorf("expected no end condition, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatalf("expected %s, got nil", tt.wantID)
			}
			if result.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, result.ID)
			}
			if result.IsGoal() != tt.goal {
				t.Errorf("expected goal=%v for %s", tt.goal, result.ID)
			}
		})
	}
}

func TestCheckEnd_UsesCurrentAct(t *testing.T) {
	s := loadScenario(t)
	ws := state.New(s, 2)

	ws.Actors["tower_guard"] = state.ActorState{Scene: "wall", Status: "alerted"}
	result := CheckEnd(s, ws, 9)
	if result == nil || result.ID != "spotted" || result.IsGoal() {
		t.Errorf("expected spotted failure, got %+v", result)
	}

	ws.Actors["tower_guard"] = state.ActorState{Scene: "wall", Status: "watching"}
	ws.PlayerScene = "freedom"
	result = CheckEnd(s, ws, 9)
	if result == nil || result.ID != "escaped" || result.Type != scenario.ConditionGoal || result.NextAct != 0 {
		t.Errorf("expected escaped goal, got %+v", result)
	}
}

func TestCheckExit(t *testing.T) {
	s := loadScenario(t)

	tests := []struct {
		name       string
		from, to   string
		wantExited bool
	}{
		{name: "over the wire", from: "wall", to: "freedom", wantExited: true},
		{name: "back to the yard", from: "wall", to: "yard"},
		{name: "stayed on the wall", from: "wall", to: "wall"},
		{name: "scene without a story exit", from: "yard", to: "freedom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := state.New(s, 2)
			ws.PlayerScene = tt.to
			result := CheckExit(s, ws, tt.from)
			if !tt.wantExited {
				if result != nil {
					t.Errorf("expected no ending, got %+v", result)
				}
				return
			}
			if result == nil || result.ID != StoryExited || !result.IsGoal() {
				t.Errorf("expected story exit goal, got %+v", result)
			}
		})
	}
}
