// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	hintStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary)

	idStyle = lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)
)

// applyColorProfile makes every style above honor NO_COLOR and pipes.
func applyColorProfile() {
	lipgloss.SetColorProfile(ColorProfile())
}
