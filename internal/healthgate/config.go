package healthgate

import "fmt"

// GateConfig defines the configuration for health gates.
type GateConfig struct {
	Enabled             bool    `mapstructure:"enabled" json:"enabled"`
	HealthScoreMin      float64 `mapstructure:"health_score_min" json:"health_score_min"`
	HealthScoreSeverity string  `mapstructure:"health_score_severity" json:"health_score_severity"`

	CyclesForbidden bool `mapstructure:"cycles_forbidden" json:"cycles_forbidden"`

	MaxFailRate     float64 `mapstructure:"max_fail_rate" json:"max_fail_rate"`
	FailureSeverity string  `mapstructure:"failure_severity" json:"failure_severity"`

	MaxOverdue       int    `mapstructure:"max_overdue" json:"max_overdue"`
	DeadlineSeverity string `mapstructure:"deadline_severity" json:"deadline_severity"`

	MaxConflicts     int    `mapstructure:"max_conflicts" json:"max_conflicts"`
	ConflictSeverity string `mapstructure:"conflict_severity" json:"conflict_severity"`

	SyncSeverity string `mapstructure:"sync_severity" json:"sync_severity"`
}

// DefaultConfig returns sensible default gate configuration.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Enabled:             true,
		HealthScoreMin:      50,
		HealthScoreSeverity: "required",
		CyclesForbidden:     true,
		MaxFailRate:         0.1,
		FailureSeverity:     "required",
		MaxOverdue:          0,
		DeadlineSeverity:    "advisory",
		MaxConflicts:        0,
		ConflictSeverity:    "advisory",
		SyncSeverity:        "required",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()

	if cfg.CyclesForbidden {
		p.AddGate(NewCycleGate(SeverityCritical))
	}

	if cfg.HealthScoreMin > 0 {
		p.AddGate(NewHealthScoreGate(cfg.HealthScoreMin, parseSeverity(cfg.HealthScoreSeverity)))
	}

	if cfg.MaxFailRate >= 0 {
		p.AddGate(NewFailureGate(cfg.MaxFailRate, parseSeverity(cfg.FailureSeverity)))
	}

	if cfg.MaxOverdue >= 0 {
		p.AddGate(NewDeadlineGate(cfg.MaxOverdue, parseSeverity(cfg.DeadlineSeverity)))
	}

	if cfg.MaxConflicts >= 0 {
		p.AddGate(NewConflictGate(cfg.MaxConflicts, parseSeverity(cfg.ConflictSeverity)))
	}

	p.AddGate(NewSyncGate(parseSeverity(cfg.SyncSeverity)))

	return p
}

// FormatReport returns a human-readable health gate report.
func FormatReport(result *PipelineResult) string {
	var s string
	s += "╔══════════════════════════════════════════╗\n"
	s += "║        Schedule Health Report            ║\n"
	s += "╠══════════════════════════════════════════╣\n"

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}

		severity := ""
		switch gr.Severity {
		case SeverityCritical:
			severity = "[CRITICAL]"
		case SeverityRequired:
			severity = "[REQUIRED]"
		case SeverityAdvisory:
			severity = "[ADVISORY]"
		}

		s += fmt.Sprintf("║ %s %-14s %-10s %s\n", icon, gr.Name, severity, gr.Message)
		for _, d := range gr.Details {
			s += fmt.Sprintf("║   → %s\n", d)
		}
	}

	s += "╠══════════════════════════════════════════╣\n"
	status := "PASSED"
	if result.Status == GateFailed {
		status = "FAILED"
	}
	s += fmt.Sprintf("║ Result: %s (%s)\n", status, result.Summary)
	s += "╚══════════════════════════════════════════╝\n"

	return s
}
