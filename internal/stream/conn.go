// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/offline"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind discriminates Event.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one thing that happened on a connection.
type Event struct {
	Kind EventKind
	Data string // EventMessage payload
	Err  error  // EventError cause
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed: the server ended the response without a sentinel.
	ErrClosed = errors.New("stream closed before completion")

	// ErrNotEventStream: the response is not text/event-stream.
	ErrNotEventStream = errors.New("response is not an event stream")
)

// ServerEventError is an `event: error` frame sent by the backend.
type ServerEventError struct {
	Message string
}

func (e *ServerEventError) Error() string {
	if e.Message == "" {
		return "server reported a stream error"
	}
	return "server reported: " + e.Message
}

// =============================================================================
// DIALER
// =============================================================================

// Conn is an open (or opening) stream.
type Conn interface {
	// Events delivers connection events. It is closed after the terminal
	// event or after Close.
	Events() <-chan Event
	// Close tears the connection down. Safe to call more than once.
	Close()
}

// Dialer opens streams. An error from Open means the connection could not
// even be attempted; failures while connecting arrive as EventError.
type Dialer interface {
	Open(ctx context.Context, req api.StreamRequest) (Conn, error)
}

// HTTPDialer opens streams with a plain HTTP GET.
type HTTPDialer struct {
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPDialer creates a dialer. The client has no overall timeout; the
// caller bounds the stream through its context and its own silence timer.
func NewHTTPDialer() *HTTPDialer {
	return &HTTPDialer{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 0,
				TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		log: logging.Component("stream"),
	}
}

// WithHTTPClient replaces the HTTP client.
func (d *HTTPDialer) WithHTTPClient(c *http.Client) *HTTPDialer {
	d.client = c
	return d
}

// WithLogger replaces the logger.
func (d *HTTPDialer) WithLogger(l zerolog.Logger) *HTTPDialer {
	d.log = l
	return d
}

// Open validates and starts the request in the background.
func (d *HTTPDialer) Open(ctx context.Context, sr api.StreamRequest) (Conn, error) {
	raw := sr.URL()
	if err := offline.ValidateURL(raw); err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	if sr.SessionID == "" {
		return nil, errors.New("stream request has no session")
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c := &httpConn{
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.log.Debug().Str("url", sr.Redacted()).Msg("opening stream")
	go c.run(d.client, req, d.log)
	return c, nil
}

// =============================================================================
// HTTP CONN
// =============================================================================

type httpConn struct {
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func (c *httpConn) Events() <-chan Event { return c.events }

func (c *httpConn) Close() {
	c.once.Do(c.cancel)
}

// Done is closed once the reader goroutine has exited.
func (c *httpConn) Done() <-chan struct{} { return c.done }

// emit delivers ev unless the connection was closed. Returns false if the
// reader should stop.
func (c *httpConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *httpConn) run(client *http.Client, req *http.Request, log zerolog.Logger) {
	defer close(c.done)
	defer close(c.events)
	defer c.Close()

	resp, err := client.Do(req)
	if err != nil {
		if c.ctx.Err() == nil {
			c.emit(Event{Kind: EventError, Err: fmt.Errorf("connect failed: %w", err)})
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.emit(Event{Kind: EventError, Err: api.StatusError("stream", resp.StatusCode, strings.TrimSpace(string(body)))})
		return
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		c.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: %q", ErrNotEventStream, mt)})
		return
	}

	if !c.emit(Event{Kind: EventOpen}) {
		return
	}

	reader := NewReader(resp.Body)
	for {
		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = ErrClosed
			}
			log.Debug().Err(err).Msg("stream ended")
			c.emit(Event{Kind: EventError, Err: err})
			return
		}

		if eventType == "error" {
			c.emit(Event{Kind: EventError, Err: &ServerEventError{Message: data}})
			return
		}
		if eventType != "" && eventType != "message" {
			continue
		}
		if !c.emit(Event{Kind: EventMessage, Data: data}) {
			return
		}
	}
}
