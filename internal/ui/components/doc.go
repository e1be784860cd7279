// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable pieces of the sumer TUI: the status
// bar, transient toasts, and boxed error displays including the fatal
// screen shown when sign-in fails at startup.
//
// Components render with a *styles.Theme and hold no references to the
// chat session; the chat view translates session state into their fields.
package components
