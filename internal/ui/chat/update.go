// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	chatsvc "github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// Operation names carried by OpDoneMsg.
const (
	opCreate = "create"
	opDelete = "delete"
	opSelect = "select"
	opReload = "reload"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key other than a second Ctrl+D disarms a pending delete.
	armed := m.pendingDelete
	m.pendingDelete = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleHelp):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		cmd := m.submit()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.showHelp:
			m.showHelp = false
			m.layout()
		case m.snap.State.Active():
			m.session.Cancel()
		case m.snap.Flags.Error != nil || m.snap.State.Terminal():
			m.session.Dismiss()
		}
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		if !m.snap.CanRetry {
			return m, nil
		}
		return m, m.retryCmd()

	case key.Matches(msg, m.keys.NewChat):
		return m, m.opCmd(opCreate, func() error {
			_, err := m.session.CreateSession(m.ctx)
			return err
		})

	case key.Matches(msg, m.keys.DeleteChat):
		id := m.snap.SelectedID
		if id == "" {
			return m, nil
		}
		if armed != id {
			m.pendingDelete = id
			cmd := m.toast(m.toasts.Status("Press Ctrl+D again to delete this chat"))
			return m, cmd
		}
		return m, m.opCmd(opDelete, func() error {
			return m.session.DeleteSession(m.ctx, id)
		})

	case key.Matches(msg, m.keys.PrevChat):
		return m, m.selectRelative(-1)

	case key.Matches(msg, m.keys.NextChat):
		return m, m.selectRelative(1)

	case key.Matches(msg, m.keys.Reload):
		return m, m.opCmd(opReload, func() error {
			if err := m.session.RefreshSessions(m.ctx); err != nil {
				return err
			}
			return m.session.Reload(m.ctx)
		})

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input. While the session is busy the input is kept and
// nothing is sent.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m.snap.Busy() {
		return m.toast(m.toasts.Status(chatsvc.Describe(chatsvc.ErrBusy)))
	}
	m.input.Reset()

	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		x, err := s.Send(ctx, text)
		return SentMsg{Input: text, Exchange: x, Err: err}
	}
}

func (m Model) retryCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		x, err := s.Retry(ctx)
		return SentMsg{Exchange: x, Err: err}
	}
}

// opCmd runs a session operation off the update loop.
func (m Model) opCmd(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: op, Err: fn()}
	}
}

// selectRelative selects the session delta places from the current one,
// wrapping around the list.
func (m Model) selectRelative(delta int) tea.Cmd {
	list := m.snap.Sessions
	if len(list) < 2 {
		return nil
	}
	cur := 0
	for i, cs := range list {
		if cs.ID == m.snap.SelectedID {
			cur = i
			break
		}
	}
	next := ((cur+delta)%len(list) + len(list)) % len(list)
	id := list[next].ID
	return m.opCmd(opSelect, func() error {
		return m.session.SelectSession(m.ctx, id)
	})
}

func (m Model) copyLastReply() tea.Cmd {
	var reply string
	for i := len(m.snap.Messages) - 1; i >= 0; i-- {
		msg := m.snap.Messages[i]
		if msg.IsAssistant() && !msg.IsEmpty() && msg.ID != m.snap.StreamingID {
			reply = msg.Content
			break
		}
	}
	if reply == "" {
		return nil
	}
	return func() tea.Msg {
		return CopiedMsg{Chars: len([]rune(reply)), Err: clipboard.WriteAll(reply)}
	}
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

func (m Model) handleSent(msg SentMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// Rejections leave the text where it was so it is not lost. Open
		// failures are retryable and show in the error box instead.
		var cmd tea.Cmd
		if errors.Is(msg.Err, chatsvc.ErrBusy) || errors.Is(msg.Err, chatsvc.ErrNoSession) {
			if msg.Input != "" && m.input.Value() == "" {
				m.input.SetValue(msg.Input)
				m.input.CursorEnd()
			}
			cmd = m.toast(m.toasts.Error(chatsvc.Describe(msg.Err)))
		}
		m.sync()
		return m, cmd
	}
	m.replyID = msg.Exchange.ID
	m.sync()
	cmd := tea.Batch(waitForReply(msg.Exchange), m.startSpinner())
	return m, cmd
}

func (m Model) handleReplyDone(msg ReplyDoneMsg) (tea.Model, tea.Cmd) {
	if msg.ExchangeID != m.replyID {
		return m, nil
	}
	m.replyID = 0
	m.sync()

	var cmd tea.Cmd
	if errors.Is(msg.Err, chatsvc.ErrCanceled) {
		cmd = m.toast(m.toasts.Status("Reply cancelled"))
	}
	return m, cmd
}

func (m Model) handleOpDone(msg OpDoneMsg) (tea.Model, tea.Cmd) {
	m.sync()

	var cmd tea.Cmd
	switch {
	case msg.Err != nil && errors.Is(msg.Err, chatsvc.ErrHistoryUnavailable):
		// Shown in the error box from the snapshot.
	case msg.Err != nil:
		cmd = m.toast(m.toasts.Error(chatsvc.Describe(msg.Err)))
	case msg.Op == opDelete:
		cmd = m.toast(m.toasts.Success("Chat deleted"))
	}
	return m, cmd
}

// handleConfigReloaded applies the display settings and log level from a
// changed config file. Connection settings take effect on restart.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		cmd := m.toast(m.toasts.Error("Config not reloaded: " + msg.Err.Error()))
		return m, cmd
	}
	cfg := msg.Config
	logging.SetLevel(cfg.Log.Level)

	m.opts = Options{
		Theme:          cfg.UI.Theme,
		RenderMarkdown: cfg.UI.RenderMarkdown,
		ShowTimestamps: cfg.UI.ShowTimestamps,
	}
	m.applyTheme(styles.NewTheme(cfg.UI.Theme))
	m.cache.reset()

	cmd := m.toast(m.toasts.Success("Settings reloaded"))
	return m, cmd
}

func (m *Model) applyTheme(theme *styles.Theme) {
	theme.SetSize(m.width, m.height)
	m.theme = theme
	m.md.SetStyle(theme.GlamourStyle())
	m.statusBar.SetTheme(theme)
	m.input.PromptStyle = theme.InputPrompt
	m.spinner.Style = theme.Spinner
}
