// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	chatsvc "github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/config"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// ChangedMsg reports that the chat session state may have changed.
type ChangedMsg struct{}

// SentMsg is the result of starting a send or retry.
type SentMsg struct {
	Input    string
	Exchange *chatsvc.Exchange
	Err      error
}

// ReplyDoneMsg is delivered when a streamed reply reaches a terminal state.
type ReplyDoneMsg struct {
	ExchangeID uint64
	Err        error
}

// OpDoneMsg is the result of a session list operation.
type OpDoneMsg struct {
	Op  string
	Err error
}

// CopiedMsg is the result of copying a reply to the clipboard.
type CopiedMsg struct {
	Chars int
	Err   error
}

// ConfigReloadedMsg carries a config file that changed on disk. Err is set
// when the new file could not be loaded; the old settings stay.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForChange blocks until the session signals a change.
func waitForChange(s *chatsvc.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Changes()
		return ChangedMsg{}
	}
}

// waitForReply blocks until x finishes.
func waitForReply(x *chatsvc.Exchange) tea.Cmd {
	return func() tea.Msg {
		<-x.Done()
		return ReplyDoneMsg{ExchangeID: x.ID, Err: x.Err()}
	}
}
