// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNoSession          = errors.New("no session selected")
	ErrBusy               = errors.New("a reply is already in progress")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNothingToRetry     = errors.New("nothing to retry")
	ErrCanceled           = errors.New("reply canceled")
	ErrTimeout            = errors.New("timed out waiting for the reply")
	ErrOffline            = errors.New("network unavailable")
	ErrServerUnreachable  = errors.New("server unreachable")
	ErrStream             = errors.New("stream failed")
	ErrHistoryUnavailable = errors.New("history unavailable")
)

// SendError is a failed send. Kind is one of ErrTimeout, ErrOffline,
// ErrServerUnreachable or ErrStream.
type SendError struct {
	Kind error
	Err  error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) Is(target error) bool { return target == e.Kind }

// HistoryError is a failed history load for a session.
type HistoryError struct {
	SessionID string
	Err       error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("failed to load history for %s: %v", e.SessionID, e.Err)
}

func (e *HistoryError) Unwrap() error { return e.Err }

func (e *HistoryError) Is(target error) bool { return target == ErrHistoryUnavailable }

// Describe turns an error from this package (or the layers below it) into
// one line for the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrAuthInit):
		return "Could not sign in to the chat service. Is it running?"
	case errors.Is(err, ErrOffline):
		return "You're offline. Check your network connection."
	case errors.Is(err, ErrServerUnreachable):
		return "The chat server can't be reached right now."
	case errors.Is(err, ErrTimeout):
		return "The reply took too long and was abandoned."
	case errors.Is(err, ErrNoSession):
		return "No chat selected. Start a new conversation!"
	case errors.Is(err, ErrBusy):
		return "Wait for the current reply to finish."
	case errors.Is(err, ErrEmptyMessage):
		return "Type a message first."
	case errors.Is(err, api.ErrAuth):
		return "The server rejected our credentials."
	case errors.Is(err, api.ErrNotFound):
		return "That chat no longer exists."
	case errors.Is(err, api.ErrConnectivity):
		return "Could not reach the chat server."
	case errors.Is(err, api.ErrServer):
		return "The chat server had a problem. Try again."
	case errors.Is(err, ErrHistoryUnavailable):
		return "Couldn't load this chat's history."
	case errors.Is(err, ErrStream):
		return "The reply failed: " + rootCause(err)
	default:
		return err.Error()
	}
}

func rootCause(err error) string {
	var se *SendError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
