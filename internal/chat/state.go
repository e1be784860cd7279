// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/sumer-tui/internal/model"
)

// State is the streaming controller's state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReceiving
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReceiving:
		return "receiving"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a connection is open or opening.
func (s State) Active() bool {
	return s == StateConnecting || s == StateReceiving
}

// Terminal reports whether the last send has finished.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Flags are the UI-facing booleans, all derived.
type Flags struct {
	LoadingHistory     bool
	Sending            bool
	WaitingForResponse bool
	Error              error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	SelectedID string
	Sessions   []model.ChatSession
	Messages   []model.Message
	State      State
	Flags      Flags

	// CanRetry is true when Retry would re-send something.
	CanRetry bool
	// StreamingID is the id of the message receiving increments, if any.
	StreamingID string
}

// Selected returns the cached metadata of the selected session.
func (s Snapshot) Selected() (model.ChatSession, bool) {
	for _, cs := range s.Sessions {
		if cs.ID == s.SelectedID {
			return cs, true
		}
	}
	return model.ChatSession{}, false
}

// Busy reports whether input should be disabled.
func (s Snapshot) Busy() bool {
	return s.State.Active() || s.Flags.LoadingHistory
}
