package bubbletea

import "context"

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// SetRunningWithCancel puts the model in a running state with a cancel
// function.
func SetRunningWithCancel(m Model, cancel func()) Model {
	m.running = true
	m.cancel = cancel
	return m
}

// SetContext sets the context answers are derived from, as Run does.
func SetContext(m Model, ctx context.Context) Model {
	m.ctx = ctx
	return m
}
