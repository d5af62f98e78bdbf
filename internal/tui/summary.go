package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryModel displays the final triage summary after the pass is complete
type SummaryModel struct {
	session  *TriageSession
	styles   *Styles
	width    int
	height   int
	quitting bool
}

// NewSummaryModel creates a new summary screen
func NewSummaryModel(session *TriageSession) SummaryModel {
	return SummaryModel{
		session: session,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model
func (m SummaryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m SummaryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := m.styles.Title.Render("Triage Summary")
	b.WriteString(title)
	b.WriteString("\n\n")

	total := len(m.session.Items)
	retry := 0
	skip := 0
	escalated := 0
	pending := 0

	for _, item := range m.session.Items {
		switch item.Decision {
		case DecisionRetry:
			retry++
		case DecisionSkip:
			skip++
		case DecisionEscalated:
			escalated++
		case DecisionPending:
			pending++
		}
	}

	statsTable := m.renderStatsTable(total, retry, skip, escalated, pending)
	b.WriteString(statsTable)
	b.WriteString("\n\n")

	scoreLabel := fmt.Sprintf("Schedule Health: %.1f", m.session.HealthScore)
	scoreBadge := ScoreColor(m.session.HealthScore).Render(scoreLabel)
	b.WriteString(scoreBadge)
	b.WriteString("\n\n")

	if escalated > 0 || pending > 0 {
		b.WriteString(m.styles.Subtitle.Render("Tasks Requiring Attention:"))
		b.WriteString("\n\n")

		for _, item := range m.session.Items {
			if item.Decision == DecisionEscalated || item.Decision == DecisionPending {
				b.WriteString(m.renderItemDetail(item))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	help := m.styles.Help.Render("Press enter to save and exit")
	b.WriteString(help)

	return b.String()
}

// renderStatsTable creates a formatted stats table
func (m SummaryModel) renderStatsTable(total, retry, skip, escalated, pending int) string {
	var b strings.Builder

	b.WriteString(m.styles.Subtitle.Render("Decisions"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Stuck tasks:           %d\n", total))

	retryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)).Bold(true)
	b.WriteString(fmt.Sprintf("  Retry:                 %s\n", retryStyle.Render(fmt.Sprintf("%d", retry))))

	skipStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)).Bold(true)
	b.WriteString(fmt.Sprintf("  Skip:                  %s\n", skipStyle.Render(fmt.Sprintf("%d", skip))))

	escalatedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)).Bold(true)
	b.WriteString(fmt.Sprintf("  Escalated:             %s\n", escalatedStyle.Render(fmt.Sprintf("%d", escalated))))

	pendingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray))
	b.WriteString(fmt.Sprintf("  Undecided:             %s\n", pendingStyle.Render(fmt.Sprintf("%d", pending))))

	return b.String()
}

// renderItemDetail renders a single item with decision and blocked count
func (m SummaryModel) renderItemDetail(item *TriageItem) string {
	var b strings.Builder

	b.WriteString(m.styles.Subtitle.Render(item.TaskID))
	b.WriteString(" ")

	var badge string
	switch item.Decision {
	case DecisionEscalated:
		badge = m.styles.StatusPartial.Render("ESCALATED")
	case DecisionPending:
		badge = m.styles.StatusPending.Render("UNDECIDED")
	}
	b.WriteString(badge)
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("  blocks %d downstream task(s)\n", item.BlockedCount))
	if item.Note != "" {
		b.WriteString(fmt.Sprintf("  note: %s\n", item.Note))
	}

	return b.String()
}
