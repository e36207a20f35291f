// Package tui is the terminal presentation layer: a transcript viewport, a
// composer, and a status line. All conversation logic lives in the chat
// engine; the model here only renders snapshots and forwards input.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cvscreener/cvchat/internal/chat"
	"github.com/cvscreener/cvchat/internal/models"
)

// SnapshotMsg delivers a conversation snapshot from the controller's notify
// callback into the bubbletea update loop.
type SnapshotMsg chat.Snapshot

type submitDoneMsg struct{ err error }

type historyLoadedMsg struct{ err error }

const composerHeight = 3

// Model is the top-level bubbletea model for the chat screen.
type Model struct {
	ctrl    *chat.Controller
	session models.Session
	onReset func() error
	logger  *slog.Logger
	th      theme

	vp       viewport.Model
	ta       textarea.Model
	messages []models.ChatMessage
	state    chat.State
	note     string

	width  int
	height int
	ready  bool
}

// New creates the chat screen model. onReset clears the persisted session
// when the user asks for a reset; the program quits afterwards.
func New(ctrl *chat.Controller, session models.Session, onReset func() error, logger *slog.Logger) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the CVs..."
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.Focus()

	return Model{
		ctrl:     ctrl,
		session:  session,
		onReset:  onReset,
		logger:   logger.With(slog.String("module", "tui")),
		th:       defaultTheme(),
		ta:       ta,
		messages: ctrl.Transcript(),
		state:    chat.StateIdle,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadHistoryCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - composerHeight - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.ta.SetWidth(msg.Width - 4)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.ctrl.Cancel()
			return m, tea.Quit
		case "esc":
			if m.state != chat.StateIdle {
				m.ctrl.Cancel()
				m.note = "Canceled."
				return m, nil
			}
			return m, tea.Quit
		case "ctrl+r":
			return m.reset()
		case "enter":
			text := m.ta.Value()
			m.ta.Reset()
			m.note = ""
			return m, m.submitCmd(text)
		}

	case SnapshotMsg:
		m.messages = msg.Messages
		m.state = msg.State
		m.refreshViewport()
		m.vp.GotoBottom()
		return m, nil

	case submitDoneMsg:
		if msg.err != nil {
			m.note = submitNote(msg.err)
		}
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.logger.Error("Failed to load history", slog.String("err", msg.err.Error()))
			m.note = "Could not load earlier messages."
		}
		return m, nil
	}

	var taCmd, vpCmd tea.Cmd
	m.ta, taCmd = m.ta.Update(msg)
	m.vp, vpCmd = m.vp.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.th.header.Render(fmt.Sprintf("CV Screener · %s", m.session.UserName))
	if status := m.statusText(); status != "" {
		header += "  " + m.th.status.Render(status)
	}

	help := m.th.help.Render("enter send · esc cancel/quit · ctrl+r reset session")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.vp.View(),
		m.th.composer.Width(m.width-2).Render(m.ta.View()),
		help,
	)
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderMessage(msg))
	}
	m.vp.SetContent(lipgloss.NewStyle().Width(m.vp.Width).Render(sb.String()))
}

func (m *Model) renderMessage(msg models.ChatMessage) string {
	label := m.th.botLabel.Render("assistant")
	if msg.Role == models.RoleUser {
		label = m.th.userLabel.Render(m.session.UserName)
	}

	content := msg.Content
	if content == "" && msg.Role == models.RoleAssistant {
		content = "…"
	}

	out := label + "\n" + m.th.message.Render(content)
	if len(msg.Sources) > 0 {
		out += "\n" + m.th.sources.Render("Sources: "+strings.Join(msg.Sources, ", "))
	}
	return out
}

func (m Model) statusText() string {
	switch m.state {
	case chat.StateSending:
		return "Sending..."
	case chat.StateStreaming:
		return "Streaming..."
	}
	return m.note
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: m.ctrl.Submit(context.Background(), text)}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{err: m.ctrl.LoadHistory(context.Background())}
	}
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	m.ctrl.Reset()
	if err := m.onReset(); err != nil {
		m.logger.Error("Failed to reset session", slog.String("err", err.Error()))
		m.note = "Could not clear the stored session."
		return m, nil
	}
	return m, tea.Sequence(tea.Printf("Session cleared. Run cvchat again to start over."), tea.Quit)
}

func submitNote(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "Type a message first."
	case errors.Is(err, chat.ErrBusy):
		return "Wait for the current reply to finish."
	case errors.Is(err, chat.ErrNoThread):
		return "No conversation thread; reset the session with ctrl+r."
	case err != nil:
		// The transcript already carries the error; keep the status short.
		return "Something went wrong."
	}
	return ""
}
