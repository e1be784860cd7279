// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// AnonymousPath is the endpoint issuing anonymous identities.
	AnonymousPath = "/auth/anonymous"

	// maxIssueResponse bounds the identity response body.
	maxIssueResponse = 64 * 1024

	defaultIssueTimeout = 15 * time.Second
)

// Identity is an anonymous user and its bearer token.
type Identity struct {
	UserID string
	Token  string
}

// Valid reports whether both halves are present.
func (i Identity) Valid() bool {
	return i.UserID != "" && i.Token != ""
}

// Issuer obtains a brand-new anonymous identity.
type Issuer interface {
	Issue(ctx context.Context) (Identity, error)
}

// IssueError is a non-2xx answer from the identity endpoint.
type IssueError struct {
	Status int
	Body   string
}

func (e *IssueError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("identity endpoint returned HTTP %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("identity endpoint returned HTTP %d", e.Status)
}

// anonymousResponse is the wire shape of POST /auth/anonymous.
type anonymousResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HTTPIssuer calls POST {base}/auth/anonymous.
type HTTPIssuer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPIssuer creates an issuer for the backend at baseURL.
func NewHTTPIssuer(baseURL string) *HTTPIssuer {
	return &HTTPIssuer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultIssueTimeout,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the HTTP client.
func (i *HTTPIssuer) WithHTTPClient(c *http.Client) *HTTPIssuer {
	i.httpClient = c
	return i
}

// Issue requests a new anonymous identity.
func (i *HTTPIssuer) Issue(ctx context.Context) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+AnonymousPath, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIssueResponse))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Identity{}, &IssueError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var ar anonymousResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return Identity{}, fmt.Errorf("failed to parse identity: %w", err)
	}
	if ar.TokenType != "" && !strings.EqualFold(ar.TokenType, "bearer") {
		return Identity{}, fmt.Errorf("unsupported token type %q", ar.TokenType)
	}
	id := Identity{UserID: ar.UserID, Token: ar.AccessToken}
	if !id.Valid() {
		return Identity{}, errors.New("identity response missing user_id or access_token")
	}
	return id, nil
}
