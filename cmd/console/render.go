package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/pkg/game"
)

const AgentName = "Narrator"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

// renderTranscript formats every stored turn of the game as chat content.
func renderTranscript(v *flows.View, outcomes map[int]string, width int) string {
	if width < 20 {
		width = 20
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY ARENA") + "\n\n")
	if v == nil || v.Game == nil {
		content.WriteString("Type your actions below to interact with the story.\n\n")
		return content.String()
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width-6)) + "\n\n")

	for _, t := range v.Turns {
		if t.Flags.Prologue {
			content.WriteString(titleStyle.Render(fmt.Sprintf("ACT %d", t.Flags.ActNumber)) + "\n\n")
		}
		if t.IsPlayerTurn() {
			content.WriteString(renderPlayerLine(t.OptionSelected, width))
			if o := outcomes[t.TurnNumber]; o != "" {
				content.WriteString(systemStyle.Render(o) + "\n\n")
			}
		}
		if t.Content != "" {
			content.WriteString(formatNarratorResponse(t.Content, width) + "\n\n")
		}
		switch {
		case t.Flags.Ending:
			content.WriteString(titleStyle.Render(endingBanner(t.Flags.EndingStatus)) + "\n\n")
		case t.Flags.ActTransition:
			content.WriteString(separatorStyle.Render(fmt.Sprintf("── End of act %d ──", t.Flags.ActNumber)) + "\n\n")
		}
	}
	return content.String()
}

func endingBanner(status string) string {
	if status == game.StatusCompleted {
		return "THE END"
	}
	return "THE END (failed)"
}

func renderPlayerLine(action string, width int) string {
	return userStyle.Render("You: ") + wordwrap.String(action, max(width-6, 10)) + "\n\n"
}

func formatNarratorResponse(response string, width int) string {
	// Check if response already has a speaker prefix
	hasPrefix := false
	if idx := strings.Index(response, ":"); idx > 0 && idx <= 20 {
		speaker := response[:idx]
		if len(strings.Fields(speaker)) <= 2 {
			hasPrefix = true
		}
	}

	// If no prefix, we'll add "Narrator: " so reduce available width
	wrapWidth := width
	if !hasPrefix {
		wrapWidth = width - len(AgentName+": ")
	}

	wrappedResponse := wordwrap.String(response, wrapWidth)
	lines := strings.Split(wrappedResponse, "\n")
	formattedLines := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			formattedLines = append(formattedLines, "")
			continue
		}

		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			rest := trimmed[idx+1:]
			if len(strings.Fields(speaker)) <= 2 {
				formattedLines = append(formattedLines, speakerStyle.Render(speaker+":")+rest)
				continue
			}
		}

		formattedLines = append(formattedLines, line)
	}

	result := strings.Join(formattedLines, "\n")
	if !hasPrefix {
		result = narratorStyle.Render(AgentName+": ") + result
	}
	return result
}

// outcomeSummary is the one-line resolution shown under a player action.
func outcomeSummary(res *flows.TurnResult) string {
	o := res.Outcome
	var b strings.Builder
	b.WriteString("[" + strings.ReplaceAll(o.Tag, "_", " "))
	if o.Rolled() {
		fmt.Fprintf(&b, ": rolled %d, total %d vs %d", o.Roll, o.Total, o.Threshold)
	}
	if o.HealthLoss > 0 {
		fmt.Fprintf(&b, ", -%d health", o.HealthLoss)
	}
	b.WriteString("]")
	return b.String()
}

func writeMetadata(v *flows.View) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")
	if v == nil || v.Game == nil {
		content.WriteString("No game loaded\n")
		return content.String()
	}
	g := v.Game
	ws := g.WorldState

	content.WriteString("Game ID:\n")
	content.WriteString(g.ID.String()[:8] + "...\n\n")

	content.WriteString("Scenario:\n")
	content.WriteString(g.ScenarioSlug + "\n\n")

	if v.Hero != nil {
		content.WriteString("Hero:\n")
		content.WriteString(v.Hero.Name + "\n\n")
	}

	fmt.Fprintf(&content, "Status: %s\n", g.Status)
	fmt.Fprintf(&content, "Act %d, turn %d\n\n", ws.ActNumber, ws.ActTurn)
	fmt.Fprintf(&content, "Health:   %d\n", ws.Health)
	fmt.Fprintf(&content, "Danger:   %d\n", ws.DangerLevel)
	fmt.Fprintf(&content, "Momentum: %d\n\n", ws.Momentum)

	if sc := v.Scene; sc != nil {
		content.WriteString("Location:\n")
		content.WriteString(sc.Name + "\n\n")
		if len(sc.Exits) > 0 {
			content.WriteString("Exits:\n")
			for _, e := range sc.Exits {
				label := e.Label
				if label == "" {
					label = e.To
				}
				if e.Locked {
					label += " (locked)"
				}
				content.WriteString("• " + label + "\n")
			}
			content.WriteString("\n")
		}
		if len(sc.Actors) > 0 {
			content.WriteString("Present:\n")
			for _, a := range sc.Actors {
				line := "• " + a.Name
				if a.Status != "" {
					line += " (" + a.Status + ")"
				}
				content.WriteString(line + "\n")
			}
			content.WriteString("\n")
		}
		if len(sc.Objects) > 0 {
			content.WriteString("Objects:\n")
			for _, o := range sc.Objects {
				content.WriteString("• " + o.Name + "\n")
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

func renderSaves(saves []game.Save) string {
	if len(saves) == 0 {
		return systemStyle.Render("No saves yet. Use /save [label].")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Saves:") + "\n")
	for i, s := range saves {
		fmt.Fprintf(&b, "%d. %s (act %d, turn %d)\n", i+1, s.Label, s.ActNumber, s.TurnNumber)
	}
	b.WriteString(systemStyle.Render("Use /load <n> to restore one."))
	return b.String()
}

// lastNarrative returns the most recent narrator text.
func lastNarrative(v *flows.View) string {
	if v == nil {
		return ""
	}
	for i := len(v.Turns) - 1; i >= 0; i-- {
		if v.Turns[i].Content != "" {
			return v.Turns[i].Content
		}
	}
	return ""
}
