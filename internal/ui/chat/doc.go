// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat interface.
//
// The Model renders a chat.Session: the session list on the left, the
// transcript in a scrolling viewport, and the input with an error box,
// toasts and a status bar below it. Backend work runs in tea.Cmds; the
// screen redraws whenever the session signals a change.
//
// # Keys
//
//	Enter        send
//	Esc          cancel the reply in progress, or dismiss an error
//	Ctrl+R       retry the last failed message
//	Ctrl+N       new chat
//	Ctrl+D       delete the current chat (press twice)
//	Up/Down/Tab  switch chat
//	Ctrl+L       reload the chat list and transcript
//	Ctrl+Y       copy the last reply
//	PgUp/PgDn    scroll
//	F1           key help
//	Ctrl+C       quit
//
// FatalModel is the alternative screen used when startup fails.
package chat
