// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sumer-tui/internal/ui/styles"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT - bottom status bar
// =============================================================================

// Status is what the status bar reports on its left edge.
type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusConnecting
	StatusThinking
	StatusStreaming
	StatusError
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusLoading:
		return "Loading..."
	case StatusConnecting:
		return "Connecting..."
	case StatusThinking:
		return "Thinking..."
	case StatusStreaming:
		return "Streaming..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape for the status so it reads without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusLoading, StatusConnecting, StatusThinking:
		return styles.StatusIndicators.Pending
	case StatusStreaming:
		return styles.StatusIndicators.Active
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: status, current chat and key hints.
type StatusBar struct {
	Status    Status
	Title     string
	Shortcuts []Shortcut
	Width     int
	Offline   bool

	theme *styles.Theme
}

// NewStatusBar creates a status bar in the ready state.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Status: StatusReady, Width: 80, theme: theme}
}

// SetTheme swaps the theme after a config reload.
func (s *StatusBar) SetTheme(theme *styles.Theme) {
	s.theme = theme
}

// View renders the status bar. Shortcuts are dropped from the right until
// the line fits.
func (s *StatusBar) View() string {
	t := s.theme
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	left := s.statusStyle().Render(s.Status.Icon() + " " + s.Status.String())
	if s.Offline {
		left = t.ErrorStyle.Bold(true).Render("OFFLINE") + sep + left
	}
	if s.Title != "" && t.GetLayoutMode() != styles.LayoutNarrow {
		room := s.Width / 3
		left += sep + t.SessionMeta.Render(util.TruncateWidth(util.SingleLine(s.Title), room))
	}

	used := lipgloss.Width(left)
	var hints []string
	for _, sc := range s.Shortcuts {
		h := t.ShortcutKey.Render(sc.Key) + " " + t.ShortcutDesc.Render(sc.Desc)
		w := lipgloss.Width(h) + 2
		if used+w > s.Width-1 {
			break
		}
		hints = append(hints, h)
		used += w
	}

	line := left
	if len(hints) > 0 {
		right := strings.Join(hints, "  ")
		gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		line = left + strings.Repeat(" ", gap) + right
	}
	return t.StatusBar.Width(s.Width).Render(line)
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusReady:
		return s.theme.SuccessStyle
	case StatusError:
		return s.theme.ErrorStyle
	case StatusStreaming:
		return s.theme.InfoStyle
	default:
		return s.theme.WarningStyle
	}
}
