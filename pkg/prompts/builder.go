package prompts

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/story-arena/pkg/actor"
	"github.com/jwebster45206/story-arena/pkg/chat"
	"github.com/jwebster45206/story-arena/pkg/narration"
	"github.com/jwebster45206/story-arena/pkg/state"
)

// Kind selects the system prompt of a builder.
type Kind string

const (
	KindRating    Kind = "rating"
	KindNarration Kind = "narration"
	KindEpilogue  Kind = "epilogue"
	KindPrologue  Kind = "prologue"
)

func (k Kind) systemPrompt() (string, error) {
	switch k {
	case KindRating:
		return RatingSystemPrompt, nil
	case KindNarration:
		return NarratorSystemPrompt, nil
	case KindEpilogue:
		return EpilogueSystemPrompt, nil
	case KindPrologue:
		return PrologueSystemPrompt, nil
	}
	return "", fmt.Errorf("unknown prompt kind %q", k)
}

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	kind          Kind
	worldContext  string
	narratorStyle string
	language      string
	hero          *actor.Profile
	scene         *state.SceneContext
	delta         []state.DeltaEntry
	memory        []string
	recent        []narration.RecentAction
	action        string
	lines         []string
}

// New creates a new prompt builder for the given kind.
func New(kind Kind) *Builder {
	return &Builder{kind: kind}
}

// WithWorldContext sets the scenario's world context.
func (b *Builder) WithWorldContext(s string) *Builder {
	b.worldContext = s
	return b
}

// WithNarratorStyle sets the scenario's narrative style.
func (b *Builder) WithNarratorStyle(s string) *Builder {
	b.narratorStyle = s
	return b
}

// WithLanguage sets the output language code. Empty means unspecified.
func (b *Builder) WithLanguage(code string) *Builder {
	b.language = code
	return b
}

// WithHero sets the hero profile.
func (b *Builder) WithHero(p actor.Profile) *Builder {
	b.hero = &p
	return b
}

// WithScene sets the current scene context.
func (b *Builder) WithScene(sc *state.SceneContext) *Builder {
	b.scene = sc
	return b
}

// WithDelta sets the changes relative to scenario defaults.
func (b *Builder) WithDelta(d []state.DeltaEntry) *Builder {
	b.delta = d
	return b
}

// WithMemory sets the story-so-far notes, oldest first.
func (b *Builder) WithMemory(notes []string) *Builder {
	b.memory = notes
	return b
}

// WithRecentActions sets the player's last few actions.
func (b *Builder) WithRecentActions(r []narration.RecentAction) *Builder {
	b.recent = r
	return b
}

// WithAction sets the player's action.
func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

// WithLine appends a free-form line to the user message, e.g. the outcome.
func (b *Builder) WithLine(format string, args ...any) *Builder {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
	return b
}

// Build returns a system message followed by one user message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	system, err := b.kind.systemPrompt()
	if err != nil {
		return nil, err
	}
	if b.scene == nil {
		return nil, fmt.Errorf("scene is required")
	}

	var sb strings.Builder
	sb.WriteString(system)
	if b.worldContext != "" {
		sb.WriteString("\n\n" + worldContextHeader + b.worldContext)
	}
	if b.narratorStyle != "" && b.kind != KindRating {
		sb.WriteString("\n\n" + narratorStyleHeader + b.narratorStyle)
	}
	if b.language != "" {
		sb.WriteString("\n\n" + fmt.Sprintf(languageInstruction, b.language))
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: sb.String()},
		{Role: chat.ChatRoleUser, Content: b.userMessage()},
	}, nil
}

func (b *Builder) userMessage() string {
	var sb strings.Builder

	if b.hero != nil {
		sb.WriteString("HERO: " + b.hero.Name)
		if b.hero.Description != "" {
			sb.WriteString(" - " + b.hero.Description)
		}
		sb.WriteString(fmt.Sprintf("\nHP %d/%d, AC %d", b.hero.HP, b.hero.MaxHP, b.hero.AC))
		for k, v := range sortedAttributes(b.hero.Attributes) {
			sb.WriteString(fmt.Sprintf(", %s %d", k, v))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("SCENE: %s (id: %s)\n", b.scene.Name, b.scene.ID))
	if b.scene.Description != "" {
		sb.WriteString(b.scene.Description + "\n")
	}
	if len(b.scene.Actors) > 0 {
		sb.WriteString("\nPEOPLE HERE:\n")
		for _, a := range b.scene.Actors {
			sb.WriteString(fmt.Sprintf("- %s (id: %s) status: %s", a.Name, a.ID, a.Status))
			if len(a.StatusOptions) > 0 {
				sb.WriteString(" options: " + strings.Join(a.StatusOptions, ", "))
			}
			sb.WriteString("\n")
		}
	}
	if len(b.scene.Objects) > 0 {
		sb.WriteString("\nOBJECTS:\n")
		for _, o := range b.scene.Objects {
			sb.WriteString(fmt.Sprintf("- %s (id: %s) status: %s", o.Name, o.ID, o.Status))
			if o.Improvised {
				sb.WriteString(" [improvised]")
			}
			sb.WriteString("\n")
		}
	}
	if len(b.scene.Exits) > 0 {
		sb.WriteString("\nEXITS:\n")
		for _, e := range b.scene.Exits {
			label := e.Label
			if label == "" {
				label = e.To
			}
			sb.WriteString(fmt.Sprintf("- %s (to: %s)", label, e.To))
			if e.Locked {
				sb.WriteString(" [locked]")
			}
			sb.WriteString("\n")
		}
	}

	if len(b.delta) > 0 {
		sb.WriteString("\nCHANGES SO FAR:\n")
		for _, d := range b.delta {
			sb.WriteString(fmt.Sprintf("- %s %s is %s", d.Type, d.Name, d.Status))
			if d.Scene != "" {
				sb.WriteString(" in " + d.Scene)
			}
			sb.WriteString("\n")
		}
	}

	if len(b.memory) > 0 {
		sb.WriteString("\nSTORY SO FAR:\n")
		for _, m := range b.memory {
			sb.WriteString("- " + m + "\n")
		}
	}

	if len(b.recent) > 0 {
		sb.WriteString("\nRECENT ACTIONS:\n")
		for _, r := range b.recent {
			sb.WriteString(fmt.Sprintf("- turn %d: %s", r.TurnNumber, r.Action))
			if r.ResolutionTag != "" {
				sb.WriteString(" (" + r.ResolutionTag + ")")
			}
			sb.WriteString("\n")
		}
	}

	if len(b.lines) > 0 {
		sb.WriteString("\n")
		for _, l := range b.lines {
			sb.WriteString(l + "\n")
		}
	}

	if b.action != "" {
		sb.WriteString("\nPLAYER ACTION: " + b.action + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func sortedAttributes(attrs map[string]int) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			if !yield(k, attrs[k]) {
				return
			}
		}
	}
}
