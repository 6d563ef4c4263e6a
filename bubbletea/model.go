package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/markdown"
)

var _ tea.Model = Model{}

// entry is one rendered exchange item: a question or an answer.
type entry struct {
	question string
	answer   *edabot.Envelope
}

// Model is the Bubble Tea model for a chat session over one dataset.
type Model struct {
	// Input is the question input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model
	// Spinner is shown while an answer is being computed.
	Spinner spinner.Model

	answer  AnswerFunc
	dataset edabot.Attachment
	conv    edabot.Conversation
	theme   markdown.Theme
	styles  Styles
	entries []entry

	// ctx bounds every answer; set by Run.
	ctx     context.Context
	running bool
	cancel  context.CancelFunc
	err     error
	ready   bool
}

// New creates a chat Model. Every question is sent with dataset attached.
// Turns already in conv are shown when the session starts.
func New(answer AnswerFunc, dataset edabot.Attachment, conv edabot.Conversation, theme markdown.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about " + datasetName(dataset) + "..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Accent))

	m := Model{
		Input:   ti,
		Spinner: sp,
		answer:  answer,
		dataset: dataset,
		conv:    conv.Clone(),
		theme:   theme,
		styles:  styles,
	}
	return m.loadConversation()
}

// Running returns whether an answer is being computed.
func (m Model) Running() bool { return m.running }

// Err returns the last answer error, if any.
func (m Model) Err() error { return m.err }

// Conversation returns the turns exchanged so far, including prior history.
// Failed questions are not part of it.
func (m Model) Conversation() edabot.Conversation { return m.conv.Clone() }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case AnswerMsg:
		return m.handleAnswer(msg)
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2
	vpHeight := msg.Height - inputH - statusHeight - borderHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Width = msg.Width - lipgloss.Width(m.Input.Prompt) - 1
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if !m.running {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)
	}

	if m.running {
		return m, nil
	}

	// Character keys type into the input; the rest also scroll.
	var cmd tea.Cmd
	var cmds []tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(question string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil

	m.conv = append(m.conv.Clone(), edabot.Turn{
		Role:        edabot.RoleUser,
		Content:     question,
		Attachments: []edabot.Attachment{m.dataset},
	})
	m.entries = append(m.entries, entry{question: question})
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	parent := m.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.running = true

	return m, tea.Batch(
		startAnswer(ctx, m.answer, m.conv.Clone()),
		m.Spinner.Tick,
	)
}

func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.running = false

	if msg.Err != nil {
		// The unanswered question is dropped so the next one starts clean.
		if n := len(m.conv); n > 0 && m.conv[n-1].Role == edabot.RoleUser {
			m.conv = m.conv[:n-1]
		}
		if errors.Is(msg.Err, context.Canceled) {
			if n := len(m.entries); n > 0 && m.entries[n-1].answer == nil {
				m.entries = m.entries[:n-1]
			}
		} else {
			m.err = msg.Err
			env := edabot.FormatStreamFailure(msg.Err)
			m.entries = append(m.entries, entry{answer: &env})
		}
	} else {
		env := msg.Envelope
		m.conv = append(m.conv, edabot.Turn{Role: edabot.RoleAssistant, Content: env.Text})
		m.entries = append(m.entries, entry{answer: &env})
	}

	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m, m.Input.Focus()
}

// loadConversation creates entries for turns that predate the session.
func (m Model) loadConversation() Model {
	for _, t := range m.conv {
		switch t.Role {
		case edabot.RoleUser:
			m.entries = append(m.entries, entry{question: t.Content})
		case edabot.RoleAssistant:
			env := edabot.Envelope{Text: t.Content, Outcome: edabot.OutcomeAnswered}
			m.entries = append(m.entries, entry{answer: &env})
		}
	}
	return m
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.answer != nil {
			b.WriteString(markdown.RenderEnvelope(*e.answer, width, m.theme))
			continue
		}
		b.WriteString(m.styles.Question.Width(width).Render("> " + e.question))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		return m.Spinner.View() + m.styles.Muted.Render(" Analysing "+datasetName(m.dataset)+"...")
	}
	return m.styles.Muted.Render("Enter to ask, Ctrl+C to quit")
}

func datasetName(a edabot.Attachment) string {
	if a.Name != "" {
		return a.Name
	}
	if a.URL != "" {
		return a.URL
	}
	return "the dataset"
}

// startAnswer runs the answer function and reports its result.
func startAnswer(ctx context.Context, answer AnswerFunc, conv edabot.Conversation) tea.Cmd {
	return func() tea.Msg {
		env, err := answer(ctx, conv)
		return AnswerMsg{Envelope: env, Err: err}
	}
}
