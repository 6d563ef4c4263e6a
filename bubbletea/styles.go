package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/edabot/markdown"
)

// Styles maps a Theme to lipgloss styles for the chrome around answers.
type Styles struct {
	Question lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t markdown.Theme) Styles {
	return Styles{
		Question: lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Muted:    lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:   lipgloss.NewStyle().Foreground(ansiColor(t.Accent)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
