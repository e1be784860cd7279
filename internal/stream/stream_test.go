// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sumer-tui/internal/api"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestReader_DataFrames(t *testing.T) {
	r := NewReader(strings.NewReader("data: Hel\n\ndata:  lo\n\n: keepalive\n\ndata: [DONE]\n\n"))

	var got []string
	for {
		_, data, err := r.ReadEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, data)
	}
	assert.Equal(t, []string{"Hel", " lo", "[DONE]"}, got, "one leading space stripped, the rest kept")
}

func TestReader_MultilineAndEventType(t *testing.T) {
	r := NewReader(strings.NewReader("event: error\r\ndata: line1\r\ndata: line2\r\n\r\n"))

	typ, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "error", typ)
	assert.Equal(t, "line1\nline2", data)
}

func TestReader_TrailingEventWithoutBlankLine(t *testing.T) {
	r := NewReader(strings.NewReader("data: tail"))

	_, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "tail", data)

	_, _, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EmptyDataField(t *testing.T) {
	r := NewReader(strings.NewReader("data:\n\n"))
	_, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", data)
}

func TestReader_TooLarge(t *testing.T) {
	big := strings.Repeat("x", MaxEventSize+1)
	r := NewReader(strings.NewReader("data: " + big + "\n\n"))
	_, _, err := r.ReadEvent()
	assert.ErrorIs(t, err, ErrEventTooLarge)
}

// =============================================================================
// DIALER TESTS
// =============================================================================

func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, f := range frames {
			fmt.Fprint(w, f)
			w.(http.Flusher).Flush()
		}
	}
}

func collect(t *testing.T, c Conn) []Event {
	t.Helper()
	var evs []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func request(base string) api.StreamRequest {
	return api.StreamRequest{BaseURL: base, SessionID: "s1", Input: "hi", Token: "t"}
}

func TestHTTPDialer_Stream(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		sseHandler("data: Hi\n\n", "data:  there\n\n", "data: [DONE]\n\n")(w, r)
	}))
	defer srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)
	defer c.Close()

	evs := collect(t, c)
	require.GreaterOrEqual(t, len(evs), 4)
	assert.Equal(t, EventOpen, evs[0].Kind)
	assert.Equal(t, Event{Kind: EventMessage, Data: "Hi"}, evs[1])
	assert.Equal(t, Event{Kind: EventMessage, Data: " there"}, evs[2])
	assert.Equal(t, Event{Kind: EventMessage, Data: api.Sentinel}, evs[3])
	assert.Contains(t, gotQuery, "token=t")
	assert.Contains(t, gotQuery, "session_id=s1")
}

func TestHTTPDialer_ServerErrorFrame(t *testing.T) {
	srv := httptest.NewServer(sseHandler("data: partial\n\n", "event: error\ndata: upstream quota exceeded\n\n"))
	defer srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)

	evs := collect(t, c)
	last := evs[len(evs)-1]
	require.Equal(t, EventError, last.Kind)
	var se *ServerEventError
	require.ErrorAs(t, last.Err, &se)
	assert.Equal(t, "upstream quota exceeded", se.Message)
}

func TestHTTPDialer_ClosedWithoutSentinel(t *testing.T) {
	srv := httptest.NewServer(sseHandler("data: a\n\n"))
	defer srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)

	evs := collect(t, c)
	last := evs[len(evs)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.ErrorIs(t, last.Err, ErrClosed)
}

func TestHTTPDialer_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)

	evs := collect(t, c)
	require.Len(t, evs, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.ErrorIs(t, evs[0].Err, api.ErrServer)
}

func TestHTTPDialer_WrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)

	evs := collect(t, c)
	require.Len(t, evs, 1)
	assert.ErrorIs(t, evs[0].Err, ErrNotEventStream)
}

func TestHTTPDialer_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewHTTPDialer().Open(context.Background(), request(base))
	require.NoError(t, err, "connect failures are asynchronous")

	evs := collect(t, c)
	require.Len(t, evs, 1)
	assert.Equal(t, EventError, evs[0].Kind)
}

func TestHTTPDialer_SynchronousFailures(t *testing.T) {
	d := NewHTTPDialer()

	_, err := d.Open(context.Background(), request("file:///tmp"))
	assert.Error(t, err)

	_, err = d.Open(context.Background(), api.StreamRequest{BaseURL: "http://localhost:1"})
	assert.Error(t, err, "no session")
}

func TestHTTPDialer_CloseStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: first\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewHTTPDialer().Open(context.Background(), request(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, EventOpen, (<-c.Events()).Kind)
	assert.Equal(t, "first", (<-c.Events()).Data)

	c.Close()
	c.Close()

	select {
	case <-c.(*httpConn).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reader goroutine did not exit after Close")
	}
	for ev := range c.Events() {
		assert.NotEqual(t, EventError, ev.Kind, "no error reported for a deliberate close")
	}
}
