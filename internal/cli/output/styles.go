package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the CLI.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Spinner lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusRunning lipgloss.Style
}

// NewStyles builds the styles for a lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Key:     lr.NewStyle().Foreground(lipgloss.Color("14")),
		Spinner: lr.NewStyle().Foreground(lipgloss.Color("13")),

		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("10")),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("9")),
		StatusRunning: lr.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Status returns the style for a run or step status.
func (s *Styles) Status(status string) lipgloss.Style {
	switch status {
	case "success", "completed":
		return s.StatusSuccess
	case "failed", "cancelled":
		return s.StatusFailed
	default:
		return s.StatusRunning
	}
}

// StatusIcon returns the symbol printed in front of a status line.
func StatusIcon(status string) string {
	switch status {
	case "success", "completed":
		return "✓"
	case "failed", "cancelled":
		return "✗"
	case "skipped":
		return "-"
	default:
		return "•"
	}
}
