// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/offline"
	"github.com/jeranaias/sumer-tui/internal/stream"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// API is the part of the REST client the session uses.
type API interface {
	CreateChat(ctx context.Context) (string, error)
	ListChats(ctx context.Context) ([]model.ChatSession, error)
	DeleteChat(ctx context.Context, id string) error
	GetMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	BuildStreamRequest(sessionID, userInput string) api.StreamRequest
	Probe(ctx context.Context) error
}

// Refresher renews credentials. The stream endpoint reports 401 like any
// other call, and the next attempt should carry a fresh token.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// =============================================================================
// CONFIG
// =============================================================================

// Config tunes the controller.
type Config struct {
	// StreamTimeout is the longest silence tolerated on an open stream.
	StreamTimeout time.Duration

	// ProbeTimeout bounds the reachability probe run after a transport error.
	ProbeTimeout time.Duration

	// RefreshTitles re-lists sessions after a completed reply so a
	// server-assigned title shows up.
	RefreshTitles bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StreamTimeout: 30 * time.Second,
		ProbeTimeout:  api.DefaultProbeTimeout,
		RefreshTitles: true,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the chat state for one client: session cache, selection,
// transcript and the active exchange.
type Session struct {
	api       API
	dialer    stream.Dialer
	net       offline.Detector
	refresher Refresher
	cfg       Config
	log       zerolog.Logger

	mu             sync.Mutex
	sessions       []model.ChatSession
	selectedID     string
	selectGen      uint64
	transcript     *model.Transcript
	loadingHistory bool

	state     State
	gotFirst  bool
	err       error
	active    *Exchange
	nextID    uint64
	lastInput string

	changes chan struct{}
}

// NewSession creates an empty session state with nothing selected.
func NewSession(client API, dialer stream.Dialer, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = def.StreamTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	return &Session{
		api:        client,
		dialer:     dialer,
		net:        offline.Always(true),
		cfg:        cfg,
		log:        logging.Component("chat"),
		transcript: model.NewTranscript(""),
		changes:    make(chan struct{}, 1),
	}
}

// WithDetector sets the host connectivity detector used to classify
// transport errors.
func (s *Session) WithDetector(d offline.Detector) *Session {
	s.net = d
	return s
}

// WithRefresher sets the credential refresher used when the stream endpoint
// answers 401.
func (s *Session) WithRefresher(r Refresher) *Session {
	s.refresher = r
	return s
}

// WithLogger replaces the logger.
func (s *Session) WithLogger(l zerolog.Logger) *Session {
	s.log = l
	return s
}

// Changes signals that Snapshot may return something new. Signals are
// coalesced; a receiver always sees the latest state by calling Snapshot.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns a consistent copy of the state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SelectedID: s.selectedID,
		Sessions:   append([]model.ChatSession(nil), s.sessions...),
		Messages:   s.transcript.Messages(),
		State:      s.state,
		Flags:      s.flagsLocked(),
		CanRetry:   s.state == StateFailed && s.lastInput != "",
	}
	if s.active != nil {
		snap.StreamingID = s.active.placeholderID
	}
	return snap
}

// Flags returns the derived UI flags.
func (s *Session) Flags() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flagsLocked()
}

func (s *Session) flagsLocked() Flags {
	return Flags{
		LoadingHistory:     s.loadingHistory,
		Sending:            s.state == StateConnecting,
		WaitingForResponse: s.state == StateReceiving && !s.gotFirst,
		Error:              s.err,
	}
}

// State returns the controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectedID returns the selected session id, or "".
func (s *Session) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Bootstrap loads the session list and selects the first session, creating
// one when the list is empty.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.RefreshSessions(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	first := ""
	if len(s.sessions) > 0 {
		first = s.sessions[0].ID
	}
	s.mu.Unlock()

	if first == "" {
		_, err := s.CreateSession(ctx)
		return err
	}
	return s.SelectSession(ctx, first)
}

// RefreshSessions reloads the session cache. The selection is kept even if
// the selected session disappeared from the list.
func (s *Session) RefreshSessions(ctx context.Context) error {
	list, err := s.api.ListChats(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to list sessions")
		return err
	}

	s.mu.Lock()
	s.sessions = list
	s.mu.Unlock()
	s.notify()
	return nil
}

// SelectSession switches to id and loads its history. Any in-flight reply is
// aborted first. Selecting "" clears the selection. Selecting the already
// selected session is a no-op; use Reload to refetch.
func (s *Session) SelectSession(ctx context.Context, id string) error {
	s.mu.Lock()
	if id == s.selectedID && id != "" {
		s.mu.Unlock()
		return nil
	}
	return s.loadLocked(ctx, id)
}

// Reload refetches the selected session's history, typically after a failed
// load. It refuses while a reply is streaming.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.selectedID == "" {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.active != nil {
		s.mu.Unlock()
		return ErrBusy
	}
	return s.loadLocked(ctx, s.selectedID)
}

// loadLocked is entered with s.mu held and releases it.
func (s *Session) loadLocked(ctx context.Context, id string) error {
	aborted := s.active
	s.active = nil

	s.selectGen++
	gen := s.selectGen
	s.selectedID = id
	s.transcript = model.NewTranscript(id)
	s.state = StateIdle
	s.gotFirst = false
	s.err = nil
	s.lastInput = ""
	s.loadingHistory = id != ""
	s.mu.Unlock()

	if aborted != nil {
		s.log.Debug().Uint64(logging.FieldExchange, aborted.ID).Msg("aborting reply for session switch")
		aborted.Cancel()
	}
	s.notify()

	if id == "" {
		return nil
	}

	msgs, err := s.api.GetMessages(ctx, id)

	s.mu.Lock()
	if gen != s.selectGen {
		// Superseded by a later selection; its result wins.
		s.mu.Unlock()
		return nil
	}
	s.loadingHistory = false
	if err != nil {
		s.err = &HistoryError{SessionID: id, Err: err}
		herr := s.err
		s.mu.Unlock()
		s.notify()
		s.log.Warn().Err(err).Str(logging.FieldSessionID, id).Msg("history load failed")
		return herr
	}
	s.transcript = model.NewTranscript(id, msgs...)
	s.mu.Unlock()
	s.notify()
	return nil
}

// CreateSession creates a session on the backend, refreshes the cache and
// selects it.
func (s *Session) CreateSession(ctx context.Context) (string, error) {
	id, err := s.api.CreateChat(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to create session")
		return "", err
	}

	if err := s.RefreshSessions(ctx); err != nil {
		s.log.Debug().Err(err).Msg("session list stale after create")
	}

	s.mu.Lock()
	if !containsSession(s.sessions, id) {
		s.sessions = append([]model.ChatSession{{
			ID:        id,
			Title:     model.DefaultSessionTitle,
			CreatedAt: time.Now(),
		}}, s.sessions...)
	}
	s.mu.Unlock()

	return id, s.SelectSession(ctx, id)
}

// DeleteSession deletes id on the backend and drops it from the cache. If it
// was selected, the first remaining session is selected instead, or the
// selection is cleared. A session the backend no longer knows is treated as
// already deleted.
func (s *Session) DeleteSession(ctx context.Context, id string) error {
	if err := s.api.DeleteChat(ctx, id); err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			s.log.Warn().Err(err).Str(logging.FieldSessionID, id).Msg("failed to delete session")
			return err
		}
		s.log.Info().Str(logging.FieldSessionID, id).Msg("session already gone")
	}

	s.mu.Lock()
	kept := s.sessions[:0:0]
	for _, cs := range s.sessions {
		if cs.ID != id {
			kept = append(kept, cs)
		}
	}
	s.sessions = kept
	wasSelected := s.selectedID == id
	next := ""
	if len(kept) > 0 {
		next = kept[0].ID
	}
	s.mu.Unlock()
	s.notify()

	if !wasSelected {
		return nil
	}
	if err := s.SelectSession(ctx, next); err != nil {
		return fmt.Errorf("deleted %s but failed to open the next chat: %w", id, err)
	}
	return nil
}

// Dismiss clears the current error and settles a finished send to Idle.
func (s *Session) Dismiss() {
	s.mu.Lock()
	s.err = nil
	if s.state.Terminal() {
		s.state = StateIdle
		s.lastInput = ""
	}
	s.mu.Unlock()
	s.notify()
}

func containsSession(list []model.ChatSession, id string) bool {
	for _, cs := range list {
		if cs.ID == id {
			return true
		}
	}
	return false
}
