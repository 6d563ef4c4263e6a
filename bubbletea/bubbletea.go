// Package bubbletea provides an interactive Bubble Tea session for asking
// follow-up questions about one dataset.
package bubbletea

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/edabot"
)

// AnswerFunc answers the newest user turn of a conversation. It blocks until
// the answer is ready or the context is cancelled.
type AnswerFunc func(ctx context.Context, conv edabot.Conversation) (edabot.Envelope, error)

// Run creates and runs the Bubble Tea program and returns the model it
// finished with. The context is used for graceful shutdown: when cancelled,
// the program quits and any answer in flight is cancelled with it.
func Run(ctx context.Context, m Model) (Model, error) {
	m.ctx = ctx
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	fm, err := p.Run()
	if err != nil {
		return m, err
	}
	final, ok := fm.(Model)
	if !ok {
		return m, fmt.Errorf("bubbletea: unexpected final model %T", fm)
	}
	return final, nil
}

// AnswerMsg carries the result of an answer run back to the model.
type AnswerMsg struct {
	Envelope edabot.Envelope
	Err      error
}
