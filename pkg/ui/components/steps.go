// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StepState is the display state of a step row.
type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepWarning
	StepFailed
)

// StepRow is one line of the step list.
type StepRow struct {
	Label  string
	State  StepState
	Detail string
}

// StepsComponent renders the ordered deployment steps.
type StepsComponent struct {
	rows []StepRow
}

// NewStepsComponent creates a step list with every label pending.
func NewStepsComponent(labels []string) *StepsComponent {
	rows := make([]StepRow, len(labels))
	for i, l := range labels {
		rows[i] = StepRow{Label: l}
	}
	return &StepsComponent{rows: rows}
}

// Set updates the row at index i. Out of range indexes are ignored.
func (s *StepsComponent) Set(i int, state StepState, detail string) {
	if i < 0 || i >= len(s.rows) {
		return
	}
	s.rows[i].State = state
	s.rows[i].Detail = detail
}

// Row returns the row at index i.
func (s *StepsComponent) Row(i int) (StepRow, bool) {
	if i < 0 || i >= len(s.rows) {
		return StepRow{}, false
	}
	return s.rows[i], true
}

// View renders the list. frame is the current spinner frame for running rows.
func (s *StepsComponent) View(frame string) string {
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	success := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	running := lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))
	warning := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failed := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	for _, row := range s.rows {
		var icon string
		var style lipgloss.Style

		switch row.State {
		case StepRunning:
			icon, style = frame, running
		case StepDone:
			icon, style = "✓", success
		case StepWarning:
			icon, style = "!", warning
		case StepFailed:
			icon, style = "✗", failed
		default:
			icon, style = "○", muted
		}

		line := fmt.Sprintf("  %s %-24s", style.Render(icon), row.Label)
		if row.Detail != "" {
			line += " " + muted.Render(row.Detail)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
