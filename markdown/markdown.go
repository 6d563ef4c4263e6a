// Package markdown renders answers to ANSI-styled terminal output using
// goldmark for parsing and lipgloss for styling.
package markdown

import (
	"fmt"

	"github.com/fwojciec/edabot"
)

// Theme maps semantic roles to ANSI color indices (0-15). A negative index
// disables the color.
type Theme struct {
	Accent int // headings, links
	Muted  int // code gutters, URLs, table rules
	Error  int // failed outcomes
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{Accent: 5, Muted: 8, Error: 1}
}

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks keep their
// lines as they are. Tables are aligned by display width.
func Render(source string, width int, theme Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme).render([]byte(source), width)
}

// RenderEnvelope renders an answer. Anything other than a full answer is
// headed by its outcome in the error color.
func RenderEnvelope(env edabot.Envelope, width int, theme Theme) string {
	body := Render(env.Text, width, theme)
	if env.Outcome == "" || env.Outcome == edabot.OutcomeAnswered {
		return body
	}
	r := newRenderer(theme)
	return fmt.Sprintf("%s\n\n%s", r.err.Render("["+string(env.Outcome)+"]"), body)
}
