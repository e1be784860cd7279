// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/model"
)

const (
	// DefaultBaseURL is where the backend listens in development.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds each REST request.
	DefaultTimeout = 15 * time.Second

	// DefaultProbeTimeout bounds the reachability probe.
	DefaultProbeTimeout = 5 * time.Second

	// MaxResponseSize caps REST response bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// HealthPath answers HEAD/GET when the backend is up.
	HealthPath = "/health"

	userAgent = "sumer-tui/0.1"
)

// Operation names carried by *Error.
const (
	OpCreateChat  = "createChat"
	OpListChats   = "listChats"
	OpDeleteChat  = "deleteChat"
	OpGetMessages = "getMessages"
	OpProbe       = "probe"
	OpWhoAmI      = "whoAmI"
)

// Credentials is what the client needs from the auth store.
type Credentials interface {
	AuthHeaders() http.Header
	Token() string
	Refresh(ctx context.Context) error
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend's REST surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		creds:   creds,
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     logging.Component("api"),
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.httpClient.Timeout = d
	return c
}

// WithRateLimit caps outgoing requests. rps <= 0 disables the limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger replaces the logger.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateChat creates a session and returns its id.
func (c *Client) CreateChat(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, OpCreateChat, http.MethodPost, "/chats", &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &Error{Op: OpCreateChat, Status: http.StatusOK, Kind: ErrUnexpected,
			Err: errors.New("response missing session_id")}
	}
	return out.SessionID, nil
}

// ListChats returns the caller's sessions in backend order.
func (c *Client) ListChats(ctx context.Context) ([]model.ChatSession, error) {
	var out struct {
		Sessions []wireSession `json:"sessions"`
	}
	if err := c.do(ctx, OpListChats, http.MethodGet, "/chats", &out); err != nil {
		return nil, err
	}

	sessions := make([]model.ChatSession, 0, len(out.Sessions))
	for _, s := range out.Sessions {
		if s.ID == "" {
			continue
		}
		sessions = append(sessions, model.ChatSession{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt.Time,
			UpdatedAt: s.UpdatedAt.Time,
		})
	}
	return sessions, nil
}

// DeleteChat deletes a session. A missing session is ErrNotFound.
func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.do(ctx, OpDeleteChat, http.MethodDelete, "/chats/"+url.PathEscape(id), nil)
}

// GetMessages returns a session's history, oldest first. Messages get fresh
// local ids; roles other than user/assistant are dropped.
func (c *Client) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var out struct {
		Messages []wireMessage `json:"messages"`
	}
	path := "/chats/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, OpGetMessages, http.MethodGet, path, &out); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(out.Messages))
	for _, wm := range out.Messages {
		role := model.Role(wm.Role)
		if !role.Valid() {
			continue
		}
		m := model.NewMessage(role, wm.Content)
		if !wm.Timestamp.IsZero() {
			m.Timestamp = wm.Timestamp.Time
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// WhoAmI asks the backend which user the current token belongs to.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, OpWhoAmI, http.MethodGet, "/auth/me", &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Probe checks whether the backend answers at all. Any HTTP response counts
// as reachable; only transport failures are reported. The caller bounds it
// through ctx.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+HealthPath, nil)
	if err != nil {
		return &Error{Op: OpProbe, Kind: ErrConnectivity, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: OpProbe, Kind: ErrConnectivity, Err: err}
	}
	resp.Body.Close()
	return nil
}

// BuildStreamRequest describes the streaming call for a message. The token is
// embedded because the stream transport carries credentials in the query.
func (c *Client) BuildStreamRequest(sessionID, userInput string) StreamRequest {
	return StreamRequest{
		BaseURL:   c.baseURL,
		SessionID: sessionID,
		Input:     userInput,
		Token:     c.creds.Token(),
	}
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do performs one logical call: at most two HTTP attempts, the second only
// after a 401 and a successful credential refresh.
func (c *Client) do(ctx context.Context, op, method, path string, out any) error {
	status, body, err := c.attempt(ctx, op, method, path)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.log.Info().Str(logging.FieldOp, op).Msg("credentials rejected, refreshing")
		if rerr := c.creds.Refresh(ctx); rerr != nil {
			return &Error{Op: op, Status: status, Kind: ErrAuth, Err: rerr}
		}
		status, body, err = c.attempt(ctx, op, method, path)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return StatusError(op, status, errorDetail(body))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		if out != nil {
			return &Error{Op: op, Status: status, Kind: ErrUnexpected, Err: errors.New("empty response body")}
		}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Status: status, Kind: ErrUnexpected, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// attempt sends a single request with fresh credential headers.
func (c *Client) attempt(ctx context.Context, op, method, path string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &Error{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, &Error{Op: op, Kind: ErrUnexpected, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range c.creds.AuthHeaders() {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, &Error{Op: op, Err: ctxErr}
		}
		c.log.Warn().Err(err).Str(logging.FieldOp, op).Msg("no response")
		return 0, nil, &Error{Op: op, Kind: ErrConnectivity, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str(logging.FieldOp, op).
		Str(logging.FieldMethod, method).
		Str(logging.FieldPath, path).
		Int(logging.FieldStatus, resp.StatusCode).
		Int64(logging.FieldLatency, latency.Milliseconds()).
		Msg("response")

	body, err := readResponse(resp)
	if err != nil {
		return resp.StatusCode, nil, &Error{Op: op, Status: resp.StatusCode, Kind: ErrConnectivity, Err: err}
	}
	return resp.StatusCode, body, nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorDetail pulls a human message out of an error body: {"detail": "..."}
// as the backend emits, else the trimmed text.
func errorDetail(body []byte) string {
	var d struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	if json.Unmarshal(body, &d) == nil {
		for _, v := range []any{d.Detail, d.Error} {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
