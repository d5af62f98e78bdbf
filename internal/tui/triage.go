package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Pane int

const (
	PaneLeft Pane = iota
	PaneRight
)

type TriageModel struct {
	session    *TriageSession
	styles     *Styles
	cursor     int // current item index
	viewport   viewport.Model
	activePane Pane
	width      int
	height     int
	quitting   bool
	inputMode  bool // true when typing a note
	textInput  textinput.Model
	help       help.Model
	keys       keyMap
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	Retry    key.Binding
	Skip     key.Binding
	Escalate key.Binding
	Note     key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Escape   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		km.Up,
		km.Down,
		km.Tab,
		km.Retry,
		km.Skip,
		km.Escalate,
		km.Note,
		km.Quit,
	}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Retry, km.Skip, km.Escalate, km.Note},
		{km.Enter, km.Escape, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev task"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next task"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Escalate: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "escalate"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "note"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func NewTriageModel(session *TriageSession) TriageModel {
	ti := textinput.New()
	ti.Placeholder = "Note for this decision..."
	ti.Width = 50

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	return TriageModel{
		session:    session,
		styles:     DefaultStyles(),
		cursor:     0,
		viewport:   vp,
		activePane: PaneLeft,
		width:      80,
		height:     24,
		quitting:   false,
		inputMode:  false,
		textInput:  ti,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func (m TriageModel) Init() tea.Cmd {
	return nil
}

func (m TriageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width/2 - 4
		m.viewport.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		if m.inputMode {
			switch msg.String() {
			case "enter":
				if m.cursor < len(m.session.Items) {
					m.session.Items[m.cursor].Note = m.textInput.Value()
				}
				m.inputMode = false
				m.textInput.SetValue("")
				return m, nil
			case "esc":
				m.inputMode = false
				m.textInput.SetValue("")
				return m, nil
			default:
				m.textInput, cmd = m.textInput.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.session.Items)-1 {
				m.cursor++
			}
			return m, nil

		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "tab":
			if m.activePane == PaneLeft {
				m.activePane = PaneRight
			} else {
				m.activePane = PaneLeft
			}
			return m, nil

		case "r":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionRetry
			}
			return m, nil

		case "s":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionSkip
			}
			return m, nil

		case "e":
			if m.cursor < len(m.session.Items) {
				m.session.Items[m.cursor].Decision = DecisionEscalated
			}
			return m, nil

		case "n":
			m.inputMode = true
			m.textInput.Focus()
			return m, nil

		case "q", "esc":
			m.quitting = true
			return m, tea.Quit

		}
	}

	return m, nil
}

func (m TriageModel) View() string {
	if m.quitting {
		return ""
	}

	if len(m.session.Items) == 0 {
		return m.styles.StatusSuccess.Render("No stuck tasks to triage")
	}

	var sections []string

	topBar := m.renderTopBar()
	sections = append(sections, topBar)

	navigator := m.renderNavigator()
	sections = append(sections, navigator)

	panels := m.renderPanels()
	sections = append(sections, panels)

	bottom := m.renderBottom()
	sections = append(sections, bottom)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m TriageModel) renderTopBar() string {
	title := fmt.Sprintf("Task Triage - %s", m.session.GraphName)
	scoreText := fmt.Sprintf("health %.1f", m.session.HealthScore)
	scoreBadge := ScoreColor(m.session.HealthScore).Render(scoreText)

	titleStyled := m.styles.Title.Render(title)
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyled, "  ", scoreBadge)
}

func (m TriageModel) renderNavigator() string {
	if m.cursor >= len(m.session.Items) {
		return ""
	}

	item := m.session.Items[m.cursor]
	position := fmt.Sprintf("[%d/%d]", m.cursor+1, len(m.session.Items))
	name := fmt.Sprintf("%s (%s)", item.TaskID, item.Status)
	priority := fmt.Sprintf("P%d", item.Priority)
	decision := m.formatDecision(item.Decision)

	parts := []string{position, name, priority}
	if !item.Deadline.IsZero() {
		parts = append(parts, "due "+item.Deadline.Format(time.RFC3339))
	}
	parts = append(parts, decision)
	return m.styles.Subtitle.Render(strings.Join(parts, "  "))
}

func (m TriageModel) formatDecision(decision TriageDecision) string {
	switch decision {
	case DecisionRetry:
		return m.styles.StatusSuccess.Render("[Retry]")
	case DecisionSkip:
		return m.styles.StatusFailed.Render("[Skip]")
	case DecisionEscalated:
		return m.styles.StatusPartial.Render("[Escalated]")
	case DecisionPending:
		return m.styles.StatusPending.Render("[Pending]")
	default:
		return m.styles.StatusPending.Render("[Pending]")
	}
}

func (m TriageModel) renderPanels() string {
	if m.cursor >= len(m.session.Items) {
		return ""
	}

	item := m.session.Items[m.cursor]

	leftPanel := m.renderTextPanel("Task", item.Detail, m.activePane == PaneLeft)
	rightPanel := m.renderTextPanel("Impact", item.Impact, m.activePane == PaneRight)

	panelWidth := (m.width - 6) / 2
	leftPanel = lipgloss.NewStyle().Width(panelWidth).Render(leftPanel)
	rightPanel = lipgloss.NewStyle().Width(panelWidth).Render(rightPanel)

	separator := m.styles.Border.Render("│\n│\n│\n│\n│\n│\n│\n│\n│\n│")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, separator, rightPanel)
}

func (m TriageModel) renderTextPanel(title string, content string, active bool) string {
	style := m.styles.Border
	if active {
		style = m.styles.ActiveBorder
	}

	titleStyled := m.styles.Tab.Render(title)
	if active {
		titleStyled = m.styles.ActiveTab.Render(title)
	}

	lines := strings.Split(content, "\n")
	maxLines := m.height - 12
	if maxLines < 1 {
		maxLines = 1
	}

	var clipped []string
	for i, line := range lines {
		if i >= maxLines {
			break
		}
		clipped = append(clipped, m.truncateLine(line, (m.width/2)-10))
	}

	body := m.styles.CodeBlock.Render(strings.Join(clipped, "\n"))

	panel := lipgloss.JoinVertical(lipgloss.Left, titleStyled, body)
	return style.Render(panel)
}

func (m TriageModel) truncateLine(line string, maxWidth int) string {
	if len(line) <= maxWidth {
		return line
	}
	if maxWidth < 3 {
		return "..."
	}
	return line[:maxWidth-3] + "..."
}

func (m TriageModel) renderBottom() string {
	if m.inputMode {
		return m.styles.Help.Render("Note: " + m.textInput.View())
	}

	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.Up,
		m.keys.Down,
		m.keys.Tab,
		m.keys.Retry,
		m.keys.Skip,
		m.keys.Escalate,
		m.keys.Note,
		m.keys.Quit,
	})

	return m.styles.Help.Render(helpView)
}
