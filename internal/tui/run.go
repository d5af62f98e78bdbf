package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTriage starts the interactive triage program. It shows the triage
// screen, then transitions to the summary. Returns the final TriageSession
// with the operator's decisions.
func RunTriage(session *TriageSession) (*TriageSession, error) {
	triageModel := NewTriageModel(session)
	p := tea.NewProgram(triageModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := finalModel.(TriageModel)

	summaryModel := NewSummaryModel(final.session)
	sp := tea.NewProgram(summaryModel, tea.WithAltScreen())
	_, err = sp.Run()
	if err != nil {
		return nil, fmt.Errorf("summary error: %w", err)
	}

	return final.session, nil
}

// TriageReport represents the JSON structure for the triage report
type TriageReport struct {
	Timestamp   string              `json:"timestamp"`
	Graph       string              `json:"graph"`
	HealthScore float64             `json:"health_score"`
	Items       []TriageReportItem  `json:"items"`
	Summary     TriageReportSummary `json:"summary"`
}

// TriageReportItem represents a single task in the report
type TriageReportItem struct {
	Task     string `json:"task"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
	Blocked  int    `json:"blocked_downstream"`
	Decision string `json:"decision"`
	Note     string `json:"note,omitempty"`
}

// TriageReportSummary represents the summary statistics
type TriageReportSummary struct {
	Total     int `json:"total"`
	Retry     int `json:"retry"`
	Skip      int `json:"skip"`
	Escalated int `json:"escalated"`
}

// SaveTriageReport writes a JSON report of the triage decisions.
func SaveTriageReport(session *TriageSession, outputPath string) error {
	total := len(session.Items)
	retry := 0
	skip := 0
	escalated := 0

	items := make([]TriageReportItem, 0, total)
	for _, item := range session.Items {
		switch item.Decision {
		case DecisionRetry:
			retry++
		case DecisionSkip:
			skip++
		case DecisionEscalated:
			escalated++
		}

		items = append(items, TriageReportItem{
			Task:     item.TaskID,
			Status:   item.Status,
			Priority: item.Priority,
			Blocked:  item.BlockedCount,
			Decision: item.Decision.String(),
			Note:     item.Note,
		})
	}

	report := TriageReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Graph:       session.GraphName,
		HealthScore: session.HealthScore,
		Items:       items,
		Summary: TriageReportSummary{
			Total:     total,
			Retry:     retry,
			Skip:      skip,
			Escalated: escalated,
		},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
