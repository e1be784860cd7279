// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/url"
)

// StreamPath is the SSE endpoint.
const StreamPath = "/chat/stream"

// Sentinel is the data payload that ends a stream.
const Sentinel = "[DONE]"

// StreamRequest describes one streaming call. The stream transport cannot
// set headers reliably, so the token travels in the query string.
type StreamRequest struct {
	BaseURL   string
	SessionID string
	Input     string
	Token     string
}

// URL returns the full request URL.
func (r StreamRequest) URL() string {
	return r.BaseURL + StreamPath + "?" + r.query(r.Token).Encode()
}

// Redacted returns the URL with the token masked, for logs.
func (r StreamRequest) Redacted() string {
	masked := ""
	if r.Token != "" {
		masked = "REDACTED"
	}
	return r.BaseURL + StreamPath + "?" + r.query(masked).Encode()
}

func (r StreamRequest) query(token string) url.Values {
	q := url.Values{}
	q.Set("session_id", r.SessionID)
	q.Set("user_input", r.Input)
	if token != "" {
		q.Set("token", token)
	}
	return q
}
