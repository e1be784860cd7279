// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/offline"
	"github.com/jeranaias/sumer-tui/internal/stream"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeAPI struct {
	mu         sync.Mutex
	sessions   []model.ChatSession
	history    map[string][]model.Message
	historyErr error
	gate       chan struct{} // blocks GetMessages while non-nil
	deleteErr  error
	probeErr   error
	created    int
	lists      atomic.Int32
	probes     atomic.Int32
}

func newFakeAPI(ids ...string) *fakeAPI {
	f := &fakeAPI{history: map[string][]model.Message{}}
	for _, id := range ids {
		f.sessions = append(f.sessions, model.ChatSession{ID: id, Title: "chat " + id})
	}
	return f
}

func (f *fakeAPI) CreateChat(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	id := fmt.Sprintf("new-%d", f.created)
	f.sessions = append([]model.ChatSession{{ID: id, Title: model.DefaultSessionTitle}}, f.sessions...)
	return id, nil
}

func (f *fakeAPI) ListChats(context.Context) ([]model.ChatSession, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatSession(nil), f.sessions...), nil
}

func (f *fakeAPI) DeleteChat(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, cs := range f.sessions {
		if cs.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return api.StatusError(api.OpDeleteChat, 404, "Session not found")
}

func (f *fakeAPI) GetMessages(ctx context.Context, id string) ([]model.Message, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]model.Message(nil), f.history[id]...), nil
}

func (f *fakeAPI) BuildStreamRequest(sessionID, input string) api.StreamRequest {
	return api.StreamRequest{BaseURL: "http://test", SessionID: sessionID, Input: input, Token: "t"}
}

func (f *fakeAPI) Probe(context.Context) error {
	f.probes.Add(1)
	return f.probeErr
}

type fakeConn struct {
	req    api.StreamRequest
	events chan stream.Event
	once   sync.Once
	closed chan struct{}
}

func (c *fakeConn) Events() <-chan stream.Event { return c.events }

func (c *fakeConn) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *fakeConn) open() { c.events <- stream.Event{Kind: stream.EventOpen} }

func (c *fakeConn) send(data string) { c.events <- stream.Event{Kind: stream.EventMessage, Data: data} }

func (c *fakeConn) done() { c.send(api.Sentinel) }

func (c *fakeConn) failWith(e error) { c.events <- stream.Event{Kind: stream.EventError, Err: e} }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	openErr error
	opened  chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{opened: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Open(_ context.Context, req api.StreamRequest) (stream.Conn, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	c := &fakeConn{req: req, events: make(chan stream.Event, 16), closed: make(chan struct{})}
	d.opened <- c
	return c, nil
}

func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.opened:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

type countingRefresher struct{ calls atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestSession(t *testing.T, f *fakeAPI, d *fakeDialer, cfg Config) *Session {
	t.Helper()
	s := NewSession(f, d, cfg)
	require.NoError(t, s.Bootstrap(context.Background()))
	return s
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func finished(t *testing.T, x *Exchange) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := x.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "exchange did not finish")
	return err
}

func countRole(msgs []model.Message, role model.Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestBootstrap_SelectsFirstSession(t *testing.T) {
	f := newFakeAPI("a", "b")
	f.history["a"] = []model.Message{model.NewUserMessage("earlier"), model.NewAssistantMessage("reply")}

	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	snap := s.Snapshot()
	assert.Equal(t, "a", snap.SelectedID)
	assert.Len(t, snap.Sessions, 2)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "earlier", snap.Messages[0].Content)
	assert.False(t, snap.Flags.LoadingHistory)
	assert.Equal(t, StateIdle, snap.State)
}

func TestBootstrap_CreatesWhenEmpty(t *testing.T) {
	f := newFakeAPI()
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	snap := s.Snapshot()
	assert.Equal(t, "new-1", snap.SelectedID)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, model.DefaultSessionTitle, snap.Sessions[0].Title)
	assert.Empty(t, snap.Messages)
}

func TestSelectSession_HistoryFailure(t *testing.T) {
	f := newFakeAPI("a", "b")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	f.mu.Lock()
	f.historyErr = api.StatusError(api.OpGetMessages, 500, "db down")
	f.mu.Unlock()

	err := s.SelectSession(context.Background(), "b")
	require.ErrorIs(t, err, ErrHistoryUnavailable)
	assert.ErrorIs(t, err, api.ErrServer)

	snap := s.Snapshot()
	assert.Equal(t, "b", snap.SelectedID)
	assert.ErrorIs(t, snap.Flags.Error, ErrHistoryUnavailable)
	assert.False(t, snap.Flags.LoadingHistory)

	f.mu.Lock()
	f.historyErr = nil
	f.mu.Unlock()
	require.NoError(t, s.Reload(context.Background()))
	assert.NoError(t, s.Flags().Error)
}

func TestSend_RejectedWhileHistoryLoads(t *testing.T) {
	f := newFakeAPI("a", "b")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- s.SelectSession(context.Background(), "b") }()
	waitFor(t, func() bool { return s.Flags().LoadingHistory }, "history load never started")

	_, err := s.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, s.Snapshot().Busy())

	close(gate)
	require.NoError(t, <-errc)
	assert.False(t, s.Flags().LoadingHistory)
}

func TestSelectSession_LaterSelectionWins(t *testing.T) {
	f := newFakeAPI("a", "b", "c")
	f.history["c"] = []model.Message{model.NewUserMessage("from c")}
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	errb := make(chan error, 1)
	go func() { errb <- s.SelectSession(context.Background(), "b") }()
	waitFor(t, func() bool { return s.SelectedID() == "b" }, "b never selected")

	errc := make(chan error, 1)
	go func() { errc <- s.SelectSession(context.Background(), "c") }()
	waitFor(t, func() bool { return s.SelectedID() == "c" }, "c never selected")

	close(gate)
	require.NoError(t, <-errb)
	require.NoError(t, <-errc)

	snap := s.Snapshot()
	assert.Equal(t, "c", snap.SelectedID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "from c", snap.Messages[0].Content)
}

func TestDeleteSession_SelectedMovesToFirstRemaining(t *testing.T) {
	f := newFakeAPI("a", "b", "c")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	require.NoError(t, s.DeleteSession(context.Background(), "a"))

	snap := s.Snapshot()
	assert.Equal(t, "b", snap.SelectedID)
	assert.Len(t, snap.Sessions, 2)
}

func TestDeleteSession_Unselected(t *testing.T) {
	f := newFakeAPI("a", "b")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	require.NoError(t, s.DeleteSession(context.Background(), "b"))
	snap := s.Snapshot()
	assert.Equal(t, "a", snap.SelectedID)
	require.Len(t, snap.Sessions, 1)
}

func TestDeleteSession_LastClearsSelection(t *testing.T) {
	f := newFakeAPI("a")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	require.NoError(t, s.DeleteSession(context.Background(), "a"))
	snap := s.Snapshot()
	assert.Empty(t, snap.SelectedID)
	assert.Empty(t, snap.Sessions)

	_, err := s.Send(context.Background(), "anyone?")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestDeleteSession_NotFoundIsReconciled(t *testing.T) {
	f := newFakeAPI("a", "b")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	// Gone on the server already but still cached locally.
	f.mu.Lock()
	f.sessions = f.sessions[1:]
	f.mu.Unlock()

	require.NoError(t, s.DeleteSession(context.Background(), "a"))
	assert.Equal(t, "b", s.SelectedID())
}

func TestDeleteSession_ErrorKeepsCache(t *testing.T) {
	f := newFakeAPI("a", "b")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())
	f.deleteErr = api.StatusError(api.OpDeleteChat, 500, "")

	err := s.DeleteSession(context.Background(), "a")
	assert.ErrorIs(t, err, api.ErrServer)
	assert.Len(t, s.Snapshot().Sessions, 2)
	assert.Equal(t, "a", s.SelectedID())
}

func TestCreateSession_Selects(t *testing.T) {
	f := newFakeAPI("a")
	s := newTestSession(t, f, newFakeDialer(), DefaultConfig())

	id, err := s.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, s.SelectedID())
	assert.Len(t, s.Snapshot().Sessions, 2)
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_StreamsIntoPlaceholder(t *testing.T) {
	f := newFakeAPI("a")
	f.history["a"] = []model.Message{model.NewUserMessage("old")}
	d := newFakeDialer()
	s := newTestSession(t, f, d, DefaultConfig())

	x, err := s.Send(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", x.Input)

	c := d.next(t)
	assert.Equal(t, "a", c.req.SessionID)
	assert.Equal(t, "hello", c.req.Input)

	snap := s.Snapshot()
	assert.Equal(t, StateConnecting, snap.State)
	assert.True(t, snap.Flags.Sending)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "hello", snap.Messages[1].Content)
	assert.True(t, snap.Messages[2].IsEmpty())
	assert.Equal(t, snap.Messages[2].ID, snap.StreamingID)

	c.open()
	waitFor(t, func() bool { return s.Flags().WaitingForResponse }, "never waiting for response")
	assert.False(t, s.Flags().Sending)

	c.send("Hel")
	c.send("lo")
	waitFor(t, func() bool {
		msgs := s.Snapshot().Messages
		return msgs[len(msgs)-1].Content == "Hello"
	}, "increments not appended")
	assert.False(t, s.Flags().WaitingForResponse)
	assert.Equal(t, StateReceiving, s.State())

	c.done()
	require.NoError(t, finished(t, x))
	assert.Equal(t, "Hello", x.Content())
	assert.True(t, c.isClosed())

	waitFor(t, func() bool { return s.State() == StateIdle }, "completed send never settled to idle")
	snap = s.Snapshot()
	assert.Nil(t, snap.Flags.Error)
	assert.False(t, snap.CanRetry)
	assert.Empty(t, snap.StreamingID)
	assert.False(t, snap.Busy())
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, model.RoleAssistant, snap.Messages[2].Role)

	waitFor(t, func() bool { return f.lists.Load() >= 2 }, "session list not refreshed for the new title")
}

func TestSend_EmptyInput(t *testing.T) {
	s := newTestSession(t, newFakeAPI("a"), newFakeDialer(), DefaultConfig())

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, s.Snapshot().Messages)
}

func TestSend_NormalizesInput(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	_, err := s.Send(context.Background(), "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", d.next(t).req.Input)
}

func TestSend_BusyWhileStreaming(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	_, err := s.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "two")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, s.Snapshot().Messages, 2)
}

func TestSend_AfterCompletion(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	x, err := s.Send(context.Background(), "one")
	require.NoError(t, err)
	c := d.next(t)
	c.open()
	c.done()
	require.NoError(t, finished(t, x))

	_, err = s.Send(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "two", d.next(t).req.Input)

	msgs := s.Snapshot().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "", msgs[1].Content, "empty completed reply is kept")
}

func TestSend_OpenFailure(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())
	d.openErr = errors.New("bad url")

	x, err := s.Send(context.Background(), "hi")
	assert.Nil(t, x)
	require.ErrorIs(t, err, ErrStream)

	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, StateFailed, snap.State)
	assert.True(t, snap.CanRetry)
	assert.ErrorIs(t, snap.Flags.Error, ErrStream)
}

// =============================================================================
// FAILURE CLASSIFICATION TESTS
// =============================================================================

func TestFailure_Classification(t *testing.T) {
	connErr := errors.New("connect failed: connection refused")

	tests := []struct {
		name       string
		online     bool
		probeErr   error
		cause      error
		want       error
		wantProbes int32
	}{
		{"offline", false, nil, connErr, ErrOffline, 0},
		{"server down", true, api.ErrConnectivity, connErr, ErrServerUnreachable, 1},
		{"server up", true, nil, connErr, ErrStream, 1},
		{"closed early", true, nil, stream.ErrClosed, ErrStream, 1},
		{"error frame", false, nil, &stream.ServerEventError{Message: "quota"}, ErrStream, 0},
		{"http status", false, nil, api.StatusError("stream", 500, ""), ErrStream, 0},
		{"not sse", true, nil, stream.ErrNotEventStream, ErrStream, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeAPI("a")
			f.probeErr = tc.probeErr
			d := newFakeDialer()
			s := newTestSession(t, f, d, DefaultConfig())
			s.WithDetector(offline.Always(tc.online))

			x, err := s.Send(context.Background(), "hi")
			require.NoError(t, err)
			c := d.next(t)
			c.open()
			c.send("partial")
			c.failWith(tc.cause)

			err = finished(t, x)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.cause)
			assert.Equal(t, tc.wantProbes, f.probes.Load())

			snap := s.Snapshot()
			assert.Equal(t, StateFailed, snap.State)
			assert.True(t, snap.CanRetry)
			require.Len(t, snap.Messages, 1, "placeholder removed, user message kept")
			assert.True(t, snap.Messages[0].IsUser())
			assert.ErrorIs(t, snap.Flags.Error, tc.want)
		})
	}
}

func TestFailure_UnauthorizedRefreshesCredentials(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())
	r := &countingRefresher{}
	s.WithRefresher(r)

	x, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	d.next(t).failWith(api.StatusError("stream", 401, "bad token"))

	assert.ErrorIs(t, finished(t, x), ErrStream)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestFailure_Timeout(t *testing.T) {
	d := newFakeDialer()
	cfg := DefaultConfig()
	cfg.StreamTimeout = 50 * time.Millisecond
	s := newTestSession(t, newFakeAPI("a"), d, cfg)

	x, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	c := d.next(t)
	c.open()

	assert.ErrorIs(t, finished(t, x), ErrTimeout)
	assert.True(t, c.isClosed())

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	require.Len(t, snap.Messages, 1)
}

func TestFailure_TimeoutMeasuresSilence(t *testing.T) {
	d := newFakeDialer()
	cfg := DefaultConfig()
	cfg.StreamTimeout = 300 * time.Millisecond
	s := newTestSession(t, newFakeAPI("a"), d, cfg)

	x, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	c := d.next(t)
	c.open()
	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		c.send("x")
	}
	c.done()

	require.NoError(t, finished(t, x), "steady increments keep the stream alive")
	assert.Equal(t, "xxxx", x.Content())
}

// =============================================================================
// RETRY / CANCEL TESTS
// =============================================================================

func TestRetry_ResendsWithoutDuplicate(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	x, err := s.Send(context.Background(), "question")
	require.NoError(t, err)
	d.next(t).failWith(stream.ErrClosed)
	require.Error(t, finished(t, x))

	x, err = s.Retry(context.Background())
	require.NoError(t, err)
	c := d.next(t)
	assert.Equal(t, "question", c.req.Input)

	msgs := s.Snapshot().Messages
	assert.Equal(t, 1, countRole(msgs, model.RoleUser))
	assert.Equal(t, 1, countRole(msgs, model.RoleAssistant))

	c.open()
	c.send("answer")
	c.done()
	require.NoError(t, finished(t, x))
	assert.False(t, s.Snapshot().CanRetry)
}

func TestRetry_NothingToRetry(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	_, err := s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)

	x, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	c := d.next(t)
	c.done()
	require.NoError(t, finished(t, x))

	_, err = s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry, "completed sends are not retried")
}

func TestRetry_AfterDismiss(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())
	d.openErr = errors.New("nope")

	_, err := s.Send(context.Background(), "q")
	require.Error(t, err)
	s.Dismiss()

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NoError(t, snap.Flags.Error)
	assert.False(t, snap.CanRetry)
}

func TestCancel_KeepsPartialContent(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	x, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	c := d.next(t)
	c.open()
	c.send("half an ans")
	waitFor(t, func() bool { return x.Content() != "" }, "increment not delivered")

	assert.True(t, s.Cancel())
	assert.ErrorIs(t, finished(t, x), ErrCanceled)
	assert.True(t, c.isClosed())

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "half an ans", snap.Messages[1].Content)
	assert.False(t, s.Cancel(), "nothing left to cancel")
}

func TestCancel_DropsEmptyPlaceholder(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	x, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	d.next(t)

	x.Cancel()
	assert.ErrorIs(t, finished(t, x), ErrCanceled)

	msgs := s.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsUser())
}

func TestSessionSwitch_AbortsStream(t *testing.T) {
	f := newFakeAPI("a", "b")
	f.history["b"] = []model.Message{model.NewUserMessage("b history")}
	d := newFakeDialer()
	s := newTestSession(t, f, d, DefaultConfig())

	x, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	c := d.next(t)
	c.open()
	c.send("for a")

	require.NoError(t, s.SelectSession(context.Background(), "b"))
	assert.ErrorIs(t, finished(t, x), ErrCanceled)
	waitFor(t, c.isClosed, "old connection not closed")

	snap := s.Snapshot()
	assert.Equal(t, "b", snap.SelectedID)
	assert.Equal(t, StateIdle, snap.State)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "b history", snap.Messages[0].Content)

	_, err = s.Send(context.Background(), "for b")
	require.NoError(t, err)
	assert.Equal(t, "b", d.next(t).req.SessionID)
}

func TestChanges_Signaled(t *testing.T) {
	d := newFakeDialer()
	s := newTestSession(t, newFakeAPI("a"), d, DefaultConfig())

	// Drain the bootstrap signal.
	select {
	case <-s.Changes():
	default:
	}

	_, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	select {
	case <-s.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal after send")
	}
}

// =============================================================================
// DESCRIBE TESTS
// =============================================================================

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Contains(t, Describe(&SendError{Kind: ErrOffline}), "offline")
	assert.Contains(t, Describe(&SendError{Kind: ErrStream, Err: errors.New("quota")}), "quota")
	assert.Contains(t, Describe(&HistoryError{SessionID: "x", Err: errors.New("boom")}), "history")
	assert.Contains(t, Describe(api.StatusError(api.OpListChats, 404, "")), "no longer exists")
	assert.Equal(t, "plain", Describe(errors.New("plain")))
}

func TestStateHelpers(t *testing.T) {
	assert.True(t, StateConnecting.Active())
	assert.True(t, StateReceiving.Active())
	assert.False(t, StateFailed.Active())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.Equal(t, "receiving", StateReceiving.String())
}
