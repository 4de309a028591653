package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/pkg/game"
)

const PlaceHolderText = "What do you do?"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *APIClient
	gameID       uuid.UUID
	view         *flows.View
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// pending is the action awaiting the narrator.
	pending  string
	outcomes map[int]string
	notices  []string
	saves    []game.Save

	// Scenario selection state
	showScenarioModal bool
	scenarios         []ScenarioSummary
	selectedScenario  int
	loadingScenarios  bool

	// Quit confirmation state
	showQuitModal bool
}

type scenariosLoadedMsg struct {
	scenarios []ScenarioSummary
	err       error
}

type gameStartedMsg struct {
	result *flows.StartResult
	err    error
}

type turnMsg struct {
	result *flows.TurnResult
	err    error
}

type viewMsg struct {
	view *flows.View
	err  error
}

type savesMsg struct {
	saves []game.Save
	err   error
}

// commandDoneMsg reports a slash command; refresh reloads the game view.
type commandDoneMsg struct {
	notice  string
	refresh bool
	err     error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return ConsoleUI{
		config:            cfg,
		api:               api,
		textarea:          ta,
		chatViewport:      chatVp,
		metaViewport:      metaVp,
		spinner:           sp,
		outcomes:          make(map[int]string),
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.loadScenarios(), m.spinner.Tick)
}

// layout sizes the panels for the current window.
func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// refreshContent rebuilds both panels from the last game view.
func (m *ConsoleUI) refreshContent() {
	content := renderTranscript(m.view, m.outcomes, m.chatViewport.Width-6)
	if m.pending != "" {
		content += renderPlayerLine(m.pending, m.chatViewport.Width-6)
	}
	for _, n := range m.notices {
		content += n + "\n\n"
	}
	if m.loading {
		content += m.spinner.View() + loadingStyle.Render(" The narrator is thinking...") + "\n"
	}
	m.chatViewport.SetContent(content)
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.view))
}

func (m *ConsoleUI) notice(text string) {
	m.notices = append(m.notices, text)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sp, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(sp)
		if m.loading && !m.showScenarioModal {
			m.refreshContent()
		}
		return m, cmd
	}

	// Handle scenario modal first
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.notices = nil
			m.loading = true
			m.pending = input
			m.refreshContent()
			return m, m.sendTurn(input)
		}

	case turnMsg:
		m.loading = false
		m.pending = ""
		if msg.err != nil {
			m.notice(errorStyle.Render("Error: " + msg.err.Error()))
			m.refreshContent()
			return m, nil
		}
		res := msg.result
		if res.Turn != nil {
			m.outcomes[res.Turn.TurnNumber] = outcomeSummary(res)
		}
		if res.Game != nil && !res.Game.IsActive() {
			m.notice(systemStyle.Render("The story is over. Use /replay <act> or /load <n> to play on."))
		}
		return m, m.refreshView()

	case viewMsg:
		if msg.err != nil {
			m.notice(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.view = msg.view
		}
		m.refreshContent()

	case savesMsg:
		if msg.err != nil {
			m.notice(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.saves = msg.saves
			m.notice(renderSaves(m.saves))
		}
		m.refreshContent()

	case commandDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.notice(errorStyle.Render("Error: " + msg.err.Error()))
			m.refreshContent()
			return m, nil
		}
		if msg.notice != "" {
			m.notice(systemStyle.Render(msg.notice))
		}
		m.refreshContent()
		if msg.refresh {
			return m, m.refreshView()
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	name, arg := parseCommand(input)

	switch name {
	case "/help":
		m.notice(helpText)

	case "/save":
		return m, m.runCommand(func(ctx context.Context) (string, bool, error) {
			save, err := m.api.Save(ctx, m.gameID, arg)
			if err != nil {
				return "", false, err
			}
			return fmt.Sprintf("Saved %q.", save.Label), false, nil
		})

	case "/saves":
		return m, m.listSaves()

	case "/load":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(m.saves) {
			m.notice(errorStyle.Render("Usage: /load <n>, where n is a number from /saves"))
			break
		}
		save := m.saves[n-1]
		m.outcomes = make(map[int]string)
		return m, m.runCommand(func(ctx context.Context) (string, bool, error) {
			if err := m.api.Load(ctx, m.gameID, save.ID); err != nil {
				return "", false, err
			}
			return fmt.Sprintf("Loaded %q.", save.Label), true, nil
		})

	case "/replay":
		act, err := strconv.Atoi(arg)
		if err != nil || act < 1 {
			m.notice(errorStyle.Render("Usage: /replay <act number>"))
			break
		}
		m.outcomes = make(map[int]string)
		m.saves = nil
		return m, m.runCommand(func(ctx context.Context) (string, bool, error) {
			if err := m.api.Replay(ctx, m.gameID, act); err != nil {
				return "", false, err
			}
			return fmt.Sprintf("Replaying act %d.", act), true, nil
		})

	case "/copy":
		text := lastNarrative(m.view)
		if text == "" {
			m.notice(errorStyle.Render("Nothing to copy yet."))
			break
		}
		if err := clipboard.WriteAll(text); err != nil {
			m.notice(errorStyle.Render("Clipboard unavailable: " + err.Error()))
			break
		}
		m.notice(systemStyle.Render("Copied the last narration to the clipboard."))

	case "/quit":
		m.showQuitModal = true

	default:
		m.notice(errorStyle.Render("Unknown command " + name + ". Type /help for commands."))
	}

	m.refreshContent()
	return m, nil
}

// parseCommand splits "/name rest of line" into a lowercase name and its argument.
func parseCommand(input string) (string, string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

const helpText = `Commands:
• /help - Show this help
• /save [label] - Save the game
• /saves - List saves
• /load <n> - Load a save from /saves
• /replay <act> - Restart an act
• /copy - Copy the last narration
• /quit - Quit

How to play:
• Type your actions and press Enter
• Bold, risky actions roll higher stakes`

func (m ConsoleUI) sendTurn(action string) tea.Cmd {
	api, id := m.api, m.gameID
	return func() tea.Msg {
		res, err := api.Turn(context.Background(), id, action)
		return turnMsg{res, err}
	}
}

func (m ConsoleUI) refreshView() tea.Cmd {
	api, id := m.api, m.gameID
	return func() tea.Msg {
		v, err := api.GetGame(context.Background(), id)
		return viewMsg{v, err}
	}
}

func (m ConsoleUI) listSaves() tea.Cmd {
	api, id := m.api, m.gameID
	return func() tea.Msg {
		saves, err := api.ListSaves(context.Background(), id)
		return savesMsg{saves, err}
	}
}

func (m ConsoleUI) runCommand(fn func(ctx context.Context) (string, bool, error)) tea.Cmd {
	return func() tea.Msg {
		notice, refresh, err := fn(context.Background())
		return commandDoneMsg{notice: notice, refresh: refresh, err: err}
	}
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		list, err := api.ListScenarios(context.Background())
		return scenariosLoadedMsg{list, err}
	}
}

func (m ConsoleUI) startGame(slug string) tea.Cmd {
	api, lang := m.api, m.config.Language
	return func() tea.Msg {
		res, err := api.StartGame(context.Background(), slug, lang)
		return gameStartedMsg{res, err}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.scenarios = msg.scenarios
		}

	case gameStartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.gameID = msg.result.Game.ID
		m.showScenarioModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.ready = true
		m.textarea.Focus()
		return m, tea.Batch(textarea.Blink, m.refreshView())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
		if m.loadingScenarios || m.loading || m.err != nil {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				m.loading = true
				return m, m.startGame(m.scenarios[m.selectedScenario].Slug)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?\nUnsaved progress stays on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingScenarios:
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + loadingStyle.Render(" Please wait while we fetch available scenarios..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Game..."))
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + loadingStyle.Render(" Setting up your adventure..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, s := range m.scenarios {
			line := fmt.Sprintf("%s (%d acts)", s.Title, s.Acts)
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
			} else {
				content.WriteString(modalItemStyle.Render("  " + line))
			}
			content.WriteString("\n")
		}
		if len(m.scenarios) > 0 {
			if desc := m.scenarios[m.selectedScenario].Description; desc != "" {
				content.WriteString("\n" + promptStyle.Render(desc) + "\n")
			}
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
