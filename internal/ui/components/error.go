// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
	"github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// ErrorDisplay is a boxed error with a title, message and optional tips.
type ErrorDisplay struct {
	Title       string
	Message     string
	Suggestions []string
	// Fatal switches to the full-screen style with no dismiss hint.
	Fatal bool
}

// NewErrorDisplay builds a display for err with a title and tips matched to
// the failure kind.
func NewErrorDisplay(err error) ErrorDisplay {
	d := ErrorDisplay{Title: "Error", Message: chat.Describe(err)}
	switch {
	case errors.Is(err, auth.ErrAuthInit):
		d.Title = "Sign-in failed"
		d.Fatal = true
		d.Suggestions = []string{
			"Check that the chat service is running and api.base_url points at it",
			"Run 'sumer auth init' to see the full error",
		}
	case errors.Is(err, chat.ErrOffline):
		d.Title = "Offline"
		d.Suggestions = []string{"Reconnect, then press Ctrl+R to retry"}
	case errors.Is(err, chat.ErrServerUnreachable), errors.Is(err, api.ErrConnectivity):
		d.Title = "Server unreachable"
		d.Suggestions = []string{"Press Ctrl+R to retry once the server is back"}
	case errors.Is(err, chat.ErrTimeout):
		d.Title = "Timed out"
		d.Suggestions = []string{"Press Ctrl+R to retry"}
	case errors.Is(err, chat.ErrStream):
		d.Title = "Reply failed"
		d.Suggestions = []string{"Press Ctrl+R to retry"}
	case errors.Is(err, chat.ErrHistoryUnavailable):
		d.Title = "History unavailable"
		d.Suggestions = []string{"Pick the chat again to reload it"}
	}
	return d
}

// View renders the box at most width columns wide.
func (d ErrorDisplay) View(theme *styles.Theme, width int) string {
	box := theme.ErrorBox
	if d.Fatal {
		box = theme.FatalBox
	}
	inner := width - box.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString(theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + d.Title))
	b.WriteString("\n")
	b.WriteString(theme.ErrorMessage.Width(inner).Render(d.Message))
	for _, s := range d.Suggestions {
		b.WriteString("\n")
		b.WriteString(theme.ErrorTip.Width(inner).Render("- " + s))
	}
	if !d.Fatal {
		b.WriteString("\n")
		b.WriteString(theme.ErrorTip.Render("Esc to dismiss"))
	}
	return box.Width(inner).Render(b.String())
}

// =============================================================================
// FATAL SCREEN
// =============================================================================

// FatalView renders d centered in a width x height screen with a quit hint
// and, when known, where the log file is.
func FatalView(theme *styles.Theme, d ErrorDisplay, logPath string, width, height int) string {
	w := width - 4
	if w > 72 {
		w = 72
	}
	body := d.View(theme, w)
	if logPath != "" {
		body += "\n" + theme.InfoStyle.Render("Log: "+logPath)
	}
	body += "\n\n" + theme.ShortcutKey.Render("q") + " " + theme.ShortcutDesc.Render("quit")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
