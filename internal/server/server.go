// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the production backend listens too.
	DefaultAddr = "127.0.0.1:8000"

	// MaxInputLength bounds user_input on the stream endpoint.
	MaxInputLength = 100000

	// Version is reported by /health.
	Version = "1.0.0"
)

// Error details, matching the production backend's wording.
const (
	detailNotAuthenticated = "Not authenticated"
	detailInvalidToken     = "Invalid authentication credentials"
	detailSessionRequired  = "session_id and user_input are required"
	detailInputTooLong     = "user_input is too long"
	detailSessionNotFound  = "Session not found"
	detailSessionDeleted   = "Session deleted successfully"
)

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr      string
	Secret    []byte        // HS256 key; random when empty
	TokenTTL  time.Duration // access token lifetime
	Responder Responder
	CORS      *CORSConfig
	Logger    zerolog.Logger
}

// DefaultOptions returns options for a local dev server.
func DefaultOptions() Options {
	return Options{
		Addr:      DefaultAddr,
		TokenTTL:  DefaultTokenTTL,
		Responder: EchoResponder{Prefix: "You said: ", Delay: 40 * time.Millisecond},
		CORS:      DefaultCORSConfig(),
		Logger:    logging.Component("dev-server"),
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the in-memory chat backend.
type Server struct {
	addr      string
	router    *mux.Router
	handler   http.Handler
	store     *Store
	tokens    *TokenIssuer
	responder Responder
	log       zerolog.Logger
}

// New creates a Server. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Server {
	def := DefaultOptions()
	if opts.Addr == "" {
		opts.Addr = def.Addr
	}
	if opts.Responder == nil {
		opts.Responder = def.Responder
	}
	if opts.CORS == nil {
		opts.CORS = def.CORS
	}

	s := &Server{
		addr:      opts.Addr,
		router:    mux.NewRouter(),
		store:     NewStore(),
		tokens:    NewTokenIssuer(opts.Secret, opts.TokenTTL),
		responder: opts.Responder,
		log:       opts.Logger,
	}
	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
		CORSMiddleware(opts.CORS),
	)(s.router)
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store exposes the backing store, for tests and seeding.
func (s *Server) Store() *Store {
	return s.store
}

// Tokens exposes the token issuer, for tests.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: replies stream for as long as they take.
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := s.router

	r.HandleFunc("/auth/anonymous", s.handleAnonymous).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	r.HandleFunc("/chats", s.handleListChats).Methods(http.MethodGet)
	r.HandleFunc("/chats", s.handleCreateChat).Methods(http.MethodPost)
	r.HandleFunc("/chats/{session_id}", s.handleDeleteChat).Methods(http.MethodDelete)
	r.HandleFunc("/chats/{session_id}/messages", s.handleMessages).Methods(http.MethodGet)

	r.HandleFunc("/chat/stream", s.handleStream).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// ============================================================================
// AUTH
// ============================================================================

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireUser resolves the caller or writes a 401.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, detailNotAuthenticated)
		return "", false
	}
	uid, err := s.tokens.Verify(tok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, detailInvalidToken)
		return "", false
	}
	return uid, true
}

func (s *Server) handleAnonymous(w http.ResponseWriter, r *http.Request) {
	uid := NewAnonymousID()
	tok, err := s.tokens.Issue(uid)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sign token")
		writeError(w, http.StatusInternalServerError, "Failed to create anonymous session")
		return
	}
	s.log.Info().Str(logging.FieldUserID, uid).Msg("anonymous user created")
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":      uid,
		"access_token": tok,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": uid, "type": "anonymous"})
}

// ============================================================================
// SESSIONS
// ============================================================================

type sessionJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type messageJSON struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	list := s.store.List(uid)
	out := make([]sessionJSON, 0, len(list))
	for _, cs := range list {
		out = append(out, sessionJSON{
			ID:        cs.ID,
			Title:     cs.Title,
			CreatedAt: cs.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt: cs.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id := s.store.Create(uid)
	s.log.Info().Str(logging.FieldSessionID, id).Str(logging.FieldUserID, uid).Msg("session created")
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	if !s.store.Delete(id) {
		writeError(w, http.StatusNotFound, detailSessionNotFound)
		return
	}
	s.log.Info().Str(logging.FieldSessionID, id).Msg("session deleted")
	writeJSON(w, http.StatusOK, map[string]string{"detail": detailSessionDeleted})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	msgs := s.store.Messages(id)

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		mj := messageJSON{Role: m.Role.String(), Content: m.Content}
		if !m.Timestamp.IsZero() {
			mj.Timestamp = m.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, mj)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

// ============================================================================
// STREAMING
// ============================================================================

// handleStream stores the user message, streams the reply and stores it once
// complete. A token is optional; a bad one is rejected.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	input := q.Get("user_input")

	owner := ""
	if tok := q.Get("token"); tok != "" {
		uid, err := s.tokens.Verify(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, detailInvalidToken)
			return
		}
		owner = uid
	}

	if sessionID == "" || strings.TrimSpace(input) == "" {
		writeError(w, http.StatusUnprocessableEntity, detailSessionRequired)
		return
	}
	if len(input) > MaxInputLength {
		writeError(w, http.StatusUnprocessableEntity, detailInputTooLong)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	log := s.log.With().Str(logging.FieldSessionID, sessionID).Logger()
	log.Info().Int("input_length", len(input)).Msg("chat stream request")

	s.store.Append(sessionID, owner, model.RoleUser, input)
	history := s.store.Messages(sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	var reply strings.Builder
	err := s.responder.Respond(ctx, history, func(tok string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		reply.WriteString(tok)
		writeEvent(w, "", tok)
		flusher.Flush()
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Msg("client went away")
			return
		}
		log.Error().Err(err).Msg("error in chat stream")
		writeEvent(w, "error", err.Error())
		flusher.Flush()
		return
	}

	s.store.Append(sessionID, owner, model.RoleAssistant, reply.String())
	writeEvent(w, "", "[DONE]")
	flusher.Flush()
	log.Info().Msg("completed streaming response")
}

// writeEvent writes one SSE frame. Multi-line data becomes several data
// fields so the client reassembles it exactly.
func writeEvent(w http.ResponseWriter, event, data string) {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, _ = w.Write([]byte(b.String()))
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chatbot-api",
		"version": Version,
	})
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
