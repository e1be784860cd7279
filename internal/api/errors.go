// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// ERRORS
// =============================================================================

// Error classes. Match with errors.Is against an *Error.
var (
	// ErrAuth: credentials rejected even after one refresh, or the refresh
	// itself failed.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound: the session does not exist (or was already deleted).
	ErrNotFound = errors.New("not found")

	// ErrServer: 5xx from the backend. Retryable by the caller.
	ErrServer = errors.New("server error")

	// ErrConnectivity: no response received at all.
	ErrConnectivity = errors.New("connectivity error")

	// ErrUnexpected: any other status or an undecodable body.
	ErrUnexpected = errors.New("unexpected response")
)

// Error carries the operation that failed and its classification.
type Error struct {
	Op     string // "createChat", "listChats", ...
	Status int    // HTTP status, 0 when no response was received
	Kind   error  // one of the sentinels above, nil for cancellation
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": "
	switch {
	case e.Kind != nil:
		msg += e.Kind.Error()
	default:
		msg += "request aborted"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause so context.Canceled and friends stay matchable.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the classification sentinel.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == ErrServer || e.Kind == ErrConnectivity
}

// IsRetryable reports whether err is an *Error that may succeed on repeat.
func IsRetryable(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Retryable()
}

// StatusError classifies a non-2xx status for op. detail is the server's
// message, if any.
func StatusError(op string, status int, detail string) *Error {
	var cause error
	if detail != "" {
		cause = errors.New(detail)
	}
	return &Error{Op: op, Status: status, Kind: kindForStatus(status), Err: cause}
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrUnexpected
	}
}
