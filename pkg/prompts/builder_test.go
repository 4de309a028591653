package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/chat"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/state"
)

func cellScene() *state.SceneContext {
	return &state.SceneContext{
		ID:          "cell",
		Name:        "Your Cell",
		Description: "A narrow concrete cell.",
		Actors: []state.ActorView{
			{ID: "inmate_torres", Name: "Inmate Torres", Status: "asleep", StatusOptions: []string{"asleep", "awake"}},
		},
		Objects: []state.ObjectView{
			{ID: "loose_grate", Name: "Loose Grate", Status: "in_place"},
			{ID: "spoon", Name: "spoon", Status: "acquired", Improvised: true},
		},
		Exits: []scenario.Exit{
			{To: "vent_shaft", Label: "Ventilation grate"},
			{To: "cell_block", Locked: true},
		},
	}
}

func TestBuild_RequiresScene(t *testing.T) {
	if _, err := New(KindRating).Build(); err == nil {
		t.Error("Expected error when scene is missing")
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	if _, err := New(Kind("poem")).WithScene(cellScene()).Build(); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestBuild_SystemPromptPerKind(t *testing.T) {
	cases := map[Kind]string{
		KindRating:    RatingSystemPrompt,
		KindNarration: NarratorSystemPrompt,
		KindEpilogue:  EpilogueSystemPrompt,
		KindPrologue:  PrologueSystemPrompt,
	}
	for kind, want := range cases {
		msgs, err := New(kind).WithScene(cellScene()).Build()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if len(msgs) != 2 {
			t.Fatalf("%s: expected 2 messages, got %d", kind, len(msgs))
		}
		if msgs[0].Role != chat.ChatRoleSystem || !strings.HasPrefix(msgs[0].Content, want) {
			t.Errorf("%s: system message does not start with the kind's prompt", kind)
		}
		if msgs[1].Role != chat.ChatRoleUser {
			t.Errorf("%s: expected user role, got %s", kind, msgs[1].Role)
		}
	}
}

func TestBuild_SystemAdditions(t *testing.T) {
	msgs, err := New(KindNarration).
		WithScene(cellScene()).
		WithWorldContext("1962, Alcatraz.").
		WithNarratorStyle("Terse noir.").
		WithLanguage("pl").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sys := msgs[0].Content
	for _, want := range []string{"1962, Alcatraz.", "Terse noir.", `"pl"`} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	rating, _ := New(KindRating).WithScene(cellScene()).WithNarratorStyle("Terse noir.").Build()
	if strings.Contains(rating[0].Content, "Terse noir.") {
		t.Error("rating prompt should not carry the narrative style")
	}
}

func TestBuild_UserMessage(t *testing.T) {
	msgs, err := New(KindNarration).
		WithScene(cellScene()).
		WithHero(actor.Profile{Name: "Frank", HP: 12, MaxHP: 12, AC: 11, Attributes: map[string]int{"intelligence": 15, "dexterity": 14}}).
		WithDelta([]state.DeltaEntry{{Type: "actor", ID: "guard_chen", Name: "Guard Chen", Status: "awake"}}).
		WithMemory([]string{"Frank pried at the grate."}).
		WithRecentActions([]narration.RecentAction{{TurnNumber: 1, Action: "look around", ResolutionTag: "success"}}).
		WithLine("OUTCOME: %s", "partial").
		WithAction("climb into the vent").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user := msgs[1].Content
	for _, want := range []string{
		"HERO: Frank",
		"HP 12/12, AC 11, dexterity 14, intelligence 15",
		"SCENE: Your Cell (id: cell)",
		"- Inmate Torres (id: inmate_torres) status: asleep options: asleep, awake",
		"- spoon (id: spoon) status: acquired [improvised]",
		"- Ventilation grate (to: vent_shaft)",
		"- cell_block (to: cell_block) [locked]",
		"- actor Guard Chen is awake",
		"- Frank pried at the grate.",
		"- turn 1: look around (success)",
		"OUTCOME: partial",
		"PLAYER ACTION: climb into the vent",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user message missing %q\n%s", want, user)
		}
	}
	if !strings.HasSuffix(user, "PLAYER ACTION: climb into the vent") {
		t.Error("player action should close the user message")
	}
}
