// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
	chatsvc "github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/config"
	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/server"
	"github.com/jeranaias/sumer-tui/internal/storage"
	"github.com/jeranaias/sumer-tui/internal/stream"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, responder server.Responder, width int) Model {
	t.Helper()

	opts := server.DefaultOptions()
	opts.Responder = responder
	opts.Logger = zerolog.Nop()
	ts := httptest.NewServer(server.New(opts).Handler())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	creds := auth.NewStore(storage.NewMemoryKV(), auth.NewHTTPIssuer(ts.URL))
	require.NoError(t, creds.Initialize(ctx))

	cfg := chatsvc.DefaultConfig()
	cfg.RefreshTitles = false
	sess := chatsvc.NewSession(api.NewClient(ts.URL, creds), stream.NewHTTPDialer(), cfg).
		WithRefresher(creds).
		WithLogger(zerolog.Nop())
	require.NoError(t, sess.Bootstrap(ctx))

	m := New(ctx, sess, Options{Theme: "dark"})
	return update(t, m, tea.WindowSizeMsg{Width: width, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// send types text, presses Enter and delivers the resulting SentMsg.
func send(t *testing.T, m Model, text string) (Model, SentMsg) {
	t.Helper()
	m = typeText(t, m, text)
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	sent, ok := cmd().(SentMsg)
	require.True(t, ok, "enter should start a send")
	return update(t, m, sent), sent
}

// finish waits for the exchange and delivers its outcome.
func finish(t *testing.T, m Model, x *chatsvc.Exchange) Model {
	t.Helper()
	select {
	case <-x.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reply did not finish")
	}
	return update(t, m, ReplyDoneMsg{ExchangeID: x.ID, Err: x.Err()})
}

// runOp executes a command expected to produce an OpDoneMsg.
func runOp(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(OpDoneMsg)
	require.True(t, ok, "expected an OpDoneMsg")
	return update(t, m, msg)
}

func blockingResponder() server.Responder {
	return server.ResponderFunc(func(ctx context.Context, _ []model.Message, emit func(string) error) error {
		_ = emit("partial ")
		<-ctx.Done()
		return ctx.Err()
	})
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_SendStreamsReply(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{Prefix: "echo: "}, 120)

	m, sent := send(t, m, "hello there")
	require.NoError(t, sent.Err)
	assert.Empty(t, m.input.Value(), "input cleared after send")
	assert.True(t, m.snap.Busy())

	m = finish(t, m, sent.Exchange)
	assert.False(t, m.snap.Busy())
	require.Len(t, m.snap.Messages, 2)

	view := m.View()
	assert.Contains(t, view, "hello there")
	assert.Contains(t, view, "echo: hello there")
}

func TestModel_BusyKeepsInputAndEscCancels(t *testing.T) {
	m := newTestModel(t, blockingResponder(), 120)

	m, sent := send(t, m, "first")
	require.NoError(t, sent.Err)

	m = typeText(t, m, "second")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "second", m.input.Value(), "input kept while a reply streams")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = finish(t, m, sent.Exchange)

	assert.ErrorIs(t, sent.Exchange.Err(), chatsvc.ErrCanceled)
	assert.Equal(t, chatsvc.StateIdle, m.snap.State)
	assert.Contains(t, m.View(), "Reply cancelled")
}

func TestModel_FailureShowsErrorAndRetries(t *testing.T) {
	var calls atomic.Int32
	responder := server.ResponderFunc(func(ctx context.Context, history []model.Message, emit func(string) error) error {
		if calls.Add(1) == 1 {
			return errors.New("model overloaded")
		}
		return emit("recovered")
	})
	m := newTestModel(t, responder, 120)

	m, sent := send(t, m, "please work")
	require.NoError(t, sent.Err)
	m = finish(t, m, sent.Exchange)

	require.True(t, m.snap.CanRetry)
	assert.ErrorIs(t, m.snap.Flags.Error, chatsvc.ErrStream)
	assert.Contains(t, m.View(), "Reply failed")

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	retry := cmd().(SentMsg)
	require.NoError(t, retry.Err)
	m = update(t, m, retry)
	m = finish(t, m, retry.Exchange)

	require.Len(t, m.snap.Messages, 2, "retry must not duplicate the user message")
	assert.Equal(t, "please work", m.snap.Messages[0].Content)
	assert.Equal(t, "recovered", m.snap.Messages[1].Content)
	assert.NotContains(t, m.View(), "Reply failed")
}

func TestModel_EscDismissesError(t *testing.T) {
	responder := server.ResponderFunc(func(context.Context, []model.Message, func(string) error) error {
		return errors.New("nope")
	})
	m := newTestModel(t, responder, 120)

	m, sent := send(t, m, "hi")
	m = finish(t, m, sent.Exchange)
	require.Error(t, m.snap.Flags.Error)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = update(t, m, ChangedMsg{})
	assert.NoError(t, m.snap.Flags.Error)
	assert.Equal(t, chatsvc.StateIdle, m.snap.State)
}

func TestModel_NewChatAndSwitch(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 120)
	first := m.snap.SelectedID

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = runOp(t, m, cmd)
	require.Len(t, m.snap.Sessions, 2)
	second := m.snap.SelectedID
	assert.NotEqual(t, first, second)

	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = runOp(t, m, cmd)
	assert.NotEqual(t, second, m.snap.SelectedID)

	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m = runOp(t, m, cmd)
	assert.Equal(t, second, m.snap.SelectedID)
}

func TestModel_DeleteNeedsSecondPress(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 120)
	id := m.snap.SelectedID

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, id, m.pendingDelete)
	assert.Contains(t, m.View(), "Ctrl+D again")

	// Another key disarms.
	m = typeText(t, m, "x")
	assert.Empty(t, m.pendingDelete)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m = runOp(t, m, cmd)

	assert.Empty(t, m.snap.Sessions)
	assert.Empty(t, m.snap.SelectedID)
	assert.Contains(t, m.View(), "No chat selected")
}

func TestModel_SendWithoutSessionKeepsInput(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 120)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m = runOp(t, m, cmd)
	require.Empty(t, m.snap.SelectedID)

	m, sent := send(t, m, "anyone?")
	assert.ErrorIs(t, sent.Err, chatsvc.ErrNoSession)
	assert.Equal(t, "anyone?", m.input.Value())
}

func TestModel_SidebarFollowsWidth(t *testing.T) {
	wide := newTestModel(t, server.EchoResponder{}, 120)
	assert.Contains(t, wide.View(), "Chats")

	narrow := update(t, wide, tea.WindowSizeMsg{Width: 50, Height: 30})
	assert.NotContains(t, narrow.View(), "Chats")
}

func TestModel_ViewFitsHeight(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 100)
	for i := 0; i < 5; i++ {
		var sent SentMsg
		m, sent = send(t, m, fmt.Sprintf("message number %d", i))
		require.NoError(t, sent.Err)
		m = finish(t, m, sent.Exchange)
	}
	lines := strings.Split(m.View(), "\n")
	assert.LessOrEqual(t, len(lines), 40)
}

func TestModel_ConfigReload(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 120)
	require.True(t, m.theme.IsDark)

	cfg := config.Default()
	cfg.UI.Theme = config.ThemeLight
	cfg.UI.ShowTimestamps = true
	m = update(t, m, ConfigReloadedMsg{Config: cfg})

	assert.False(t, m.theme.IsDark)
	assert.True(t, m.opts.ShowTimestamps)
	assert.Contains(t, m.View(), "Settings reloaded")

	m = update(t, m, ConfigReloadedMsg{Err: errors.New("bad toml")})
	assert.False(t, m.theme.IsDark, "a failed reload keeps the old settings")
	assert.Contains(t, m.View(), "bad toml")
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newTestModel(t, server.EchoResponder{}, 120)
	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestFatalModel(t *testing.T) {
	m := NewFatal(fmt.Errorf("%w: connection refused", auth.ErrAuthInit), "dark", "/var/log/sumer.log")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(FatalModel)

	view := m.View()
	assert.Contains(t, view, "Sign-in failed")
	assert.Contains(t, view, "/var/log/sumer.log")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
