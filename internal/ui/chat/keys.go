// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/sumer-tui/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Submit     key.Binding
	NewChat    key.Binding
	DeleteChat key.Binding
	PrevChat   key.Binding
	NextChat   key.Binding
	Retry      key.Binding
	Cancel     key.Binding
	Copy       key.Binding
	Reload     key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	ToggleHelp key.Binding
	Quit       key.Binding
	FatalQuit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("^n", "new"),
		),
		DeleteChat: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("^d", "delete"),
		),
		PrevChat: key.NewBinding(
			key.WithKeys("up", "shift+tab"),
			key.WithHelp("up", "prev chat"),
		),
		NextChat: key.NewBinding(
			key.WithKeys("down", "tab"),
			key.WithHelp("down", "next chat"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("^r", "retry"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("^y", "copy reply"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("^l", "reload"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("^c", "quit"),
		),
		FatalQuit: key.NewBinding(
			key.WithKeys("q", "esc", "enter", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar for the current
// situation, most useful first.
func (k KeyMap) ShortHelp(streaming, canRetry bool) []key.Binding {
	if streaming {
		return []key.Binding{k.Cancel, k.PageUp, k.Quit}
	}
	if canRetry {
		return []key.Binding{k.Retry, k.Cancel, k.NewChat, k.Quit}
	}
	return []key.Binding{k.Submit, k.NewChat, k.NextChat, k.Copy, k.ToggleHelp, k.Quit}
}

// FullHelp groups every binding for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Retry, k.Cancel, k.Copy},
		{k.NewChat, k.DeleteChat, k.PrevChat, k.NextChat, k.Reload},
		{k.PageUp, k.PageDown, k.ToggleHelp, k.Quit},
	}
}

// shortcuts converts bindings to status bar hints.
func shortcuts(bindings []key.Binding) []components.Shortcut {
	out := make([]components.Shortcut, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	return out
}
