// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sumer-tui/internal/model"
)

// fakeCreds swaps token "old" for "new" on refresh.
type fakeCreds struct {
	mu         sync.Mutex
	token      string
	refreshes  int
	refreshErr error
}

func (f *fakeCreds) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if tok := f.Token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = "new"
	return nil
}

func newTestClient(t *testing.T, h http.Handler, creds *fakeCreds) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, creds)
}

// =============================================================================
// OPERATION TESTS
// =============================================================================

func TestClient_CreateChat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chats", r.URL.Path)
		assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"session_id":"s-1"}`)
	}), &fakeCreds{token: "old"})

	id, err := c.CreateChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)
}

func TestClient_CreateChatMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}), &fakeCreds{token: "old"})

	_, err := c.CreateChat(context.Background())
	assert.ErrorIs(t, err, ErrUnexpected)
}

func TestClient_ListChats(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sessions":[
			{"id":"a","title":"First","created_at":"2025-03-01T10:00:00Z","updated_at":"2025-03-01T10:05:00.123456"},
			{"id":"b","title":"Second"},
			{"id":"","title":"junk"}
		]}`)
	}), &fakeCreds{token: "old"})

	sessions, err := c.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "First", sessions[0].Title)
	assert.Equal(t, 2025, sessions[0].CreatedAt.Year())
	assert.False(t, sessions[0].UpdatedAt.IsZero())
	assert.True(t, sessions[1].CreatedAt.IsZero())
}

func TestClient_GetMessages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats/s%2F1/messages", r.URL.EscapedPath())
		fmt.Fprint(w, `{"messages":[
			{"role":"user","content":"hi"},
			{"role":"system","content":"hidden"},
			{"role":"assistant","content":"hello","timestamp":1700000000}
		]}`)
	}), &fakeCreds{token: "old"})

	msgs, err := c.GetMessages(context.Background(), "s/1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, int64(1700000000), msgs[1].Timestamp.Unix())
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}

func TestClient_DeleteChat(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"detail":"deleted"}`)
	}), &fakeCreds{token: "old"})

	require.NoError(t, c.DeleteChat(context.Background(), "abc"))
	assert.Equal(t, "/chats/abc", gotPath)
}

// =============================================================================
// ERROR CLASSIFICATION TESTS
// =============================================================================

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		want      error
		retryable bool
	}{
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusInternalServerError, ErrServer, true},
		{http.StatusBadGateway, ErrServer, true},
		{http.StatusForbidden, ErrAuth, false},
		{http.StatusUnprocessableEntity, ErrUnexpected, false},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"detail":"Failed to fetch sessions"}`)
			}), &fakeCreds{token: "old"})

			_, err := c.ListChats(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.retryable, IsRetryable(err))

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, OpListChats, ae.Op)
			assert.Equal(t, tc.status, ae.Status)
			assert.Contains(t, err.Error(), "Failed to fetch sessions")
		})
	}
}

func TestClient_ConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(base, &fakeCreds{token: "old"})
	err := c.DeleteChat(context.Background(), "x")

	assert.ErrorIs(t, err, ErrConnectivity)
	assert.True(t, IsRetryable(err))
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, OpDeleteChat, ae.Op)
	assert.Zero(t, ae.Status)
}

func TestClient_CanceledIsNotConnectivity(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), &fakeCreds{token: "old"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.ListChats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrConnectivity))
}

// =============================================================================
// 401 RETRY TESTS
// =============================================================================

func TestClient_RefreshAndRetryOnce(t *testing.T) {
	var calls atomic.Int32
	creds := &fakeCreds{token: "old"}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"sessions":[{"id":"a","title":"t"}]}`)
	}), creds)

	sessions, err := c.ListChats(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, creds.refreshes)
}

func TestClient_SecondUnauthorizedIsAuthError(t *testing.T) {
	var calls atomic.Int32
	creds := &fakeCreds{token: "old"}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}), creds)

	_, err := c.CreateChat(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
	assert.Equal(t, 1, creds.refreshes)
}

func TestClient_RefreshFailureIsAuthError(t *testing.T) {
	var calls atomic.Int32
	creds := &fakeCreds{token: "old", refreshErr: errors.New("issuer down")}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}), creds)

	err := c.DeleteChat(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "issuer down")
	assert.Equal(t, int32(1), calls.Load(), "no retry without fresh credentials")
}

// =============================================================================
// PROBE / STREAM REQUEST TESTS
// =============================================================================

func TestClient_Probe(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, HealthPath, r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), &fakeCreds{})
	assert.NoError(t, c.Probe(context.Background()), "any response means reachable")

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	assert.ErrorIs(t, NewClient(base, &fakeCreds{}).Probe(context.Background()), ErrConnectivity)
}

func TestClient_ProbeFollowsCallerDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), &fakeCreds{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := c.Probe(ctx)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), DefaultProbeTimeout)
}

func TestBuildStreamRequest(t *testing.T) {
	c := NewClient("http://localhost:8000/", &fakeCreds{token: "tok en"})
	req := c.BuildStreamRequest("s1", "what is 2+2?")

	u, err := url.Parse(req.URL())
	require.NoError(t, err)
	assert.Equal(t, StreamPath, u.Path)
	assert.Equal(t, "s1", u.Query().Get("session_id"))
	assert.Equal(t, "what is 2+2?", u.Query().Get("user_input"))
	assert.Equal(t, "tok en", u.Query().Get("token"))

	redacted, err := url.Parse(req.Redacted())
	require.NoError(t, err)
	assert.Equal(t, "REDACTED", redacted.Query().Get("token"))
	assert.Equal(t, "s1", redacted.Query().Get("session_id"))
	assert.NotContains(t, req.Redacted(), "tok+en")
	assert.NotContains(t, req.Redacted(), "tok%20en")
}

func TestBuildStreamRequest_NoToken(t *testing.T) {
	req := NewClient("http://h", &fakeCreds{}).BuildStreamRequest("s1", "x")
	u, err := url.Parse(req.URL())
	require.NoError(t, err)
	_, has := u.Query()["token"]
	assert.False(t, has)
}

func TestClient_RateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"sessions":[]}`)
	}), &fakeCreds{token: "old"})
	c.WithRateLimit(1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.ListChats(ctx)
	require.NoError(t, err)
	_, err = c.ListChats(ctx)
	require.Error(t, err, "second call should not fit in the window")
	assert.Equal(t, int32(1), calls.Load())
}
