// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	chatsvc "github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/ui/components"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// Options are the display settings taken from config.
type Options struct {
	Theme          string
	RenderMarkdown bool
	ShowTimestamps bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen: session list, transcript, input and status bar,
// all driven by a chat session.
type Model struct {
	ctx     context.Context
	session *chatsvc.Session
	snap    chatsvc.Snapshot
	opts    Options

	theme     *styles.Theme
	md        *styles.Markdown
	cache     *renderCache
	keys      KeyMap
	help      help.Model
	showHelp  bool
	statusBar *components.StatusBar
	toasts    components.Toasts

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	spinning bool

	// pendingDelete is the session a first Ctrl+D armed for deletion.
	pendingDelete string
	// replyID is the exchange whose outcome is awaited.
	replyID uint64

	width  int
	height int
	ready  bool
}

// New creates the chat screen for session. ctx bounds every backend call the
// screen makes.
func New(ctx context.Context, session *chatsvc.Session, opts Options) Model {
	theme := styles.NewTheme(opts.Theme)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	m := Model{
		ctx:       ctx,
		session:   session,
		opts:      opts,
		theme:     theme,
		md:        styles.NewMarkdown(theme.GlamourStyle()),
		cache:     newRenderCache(),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		statusBar: components.NewStatusBar(theme),
		toasts:    components.NewToasts(),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
	}
	m.snap = session.Snapshot()
	return m
}

// Init starts listening for session changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.session))
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case ChangedMsg:
		m.sync()
		cmd := tea.Batch(waitForChange(m.session), m.startSpinner())
		return m, cmd

	case SentMsg:
		return m.handleSent(msg)

	case ReplyDoneMsg:
		return m.handleReplyDone(msg)

	case OpDoneMsg:
		return m.handleOpDone(msg)

	case CopiedMsg:
		var cmd tea.Cmd
		if msg.Err != nil {
			cmd = m.toast(m.toasts.Error("Copy failed: " + msg.Err.Error()))
		} else {
			cmd = m.toast(m.toasts.Success(fmt.Sprintf("Copied reply to clipboard (%d chars)", msg.Chars)))
		}
		return m, cmd

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case components.ToastExpiredMsg:
		m.toasts.Expire(msg.ID)
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		if !m.snap.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshTranscript()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startSpinner begins ticking when the session is busy and the spinner is
// not already running.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.snap.Busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// toast relays out after a toast was added and returns its expiry command.
func (m *Model) toast(cmd tea.Cmd) tea.Cmd {
	m.layout()
	return cmd
}

// sync takes a fresh snapshot and redraws from it.
func (m *Model) sync() {
	prev := m.snap
	m.snap = m.session.Snapshot()

	if m.snap.SelectedID != prev.SelectedID {
		m.pendingDelete = ""
	}

	st := components.StatusReady
	switch {
	case m.snap.Flags.LoadingHistory:
		st = components.StatusLoading
	case m.snap.Flags.Sending:
		st = components.StatusConnecting
	case m.snap.Flags.WaitingForResponse:
		st = components.StatusThinking
	case m.snap.State == chatsvc.StateReceiving:
		st = components.StatusStreaming
	case m.snap.Flags.Error != nil:
		st = components.StatusError
	}
	m.statusBar.Status = st
	m.statusBar.Offline = isOffline(m.snap.Flags.Error)
	if cs, ok := m.snap.Selected(); ok {
		m.statusBar.Title = cs.DisplayTitle()
	} else {
		m.statusBar.Title = ""
	}

	if m.snap.Busy() {
		m.input.Placeholder = "Waiting for the reply..."
	} else {
		m.input.Placeholder = "Type a message..."
	}
	m.layout()
}
