// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	chatsvc "github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/ui/components"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if sw := m.theme.SidebarWidth(); sw > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(sw, m.viewport.Height), body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderBottom())
}

// layout sizes the viewport to whatever the header and bottom area leave
// and refreshes its content.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	mainW := m.width - m.theme.SidebarWidth()
	if mainW < 10 {
		mainW = 10
	}

	m.input.Width = mainW - 4
	if m.input.Width < 10 {
		m.input.Width = 10
	}
	m.statusBar.Width = m.width
	m.statusBar.Shortcuts = shortcuts(m.keys.ShortHelp(m.snap.State.Active(), m.snap.CanRetry))
	m.help.Width = m.width

	chrome := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderBottom())
	vpH := m.height - chrome
	if vpH < 1 {
		vpH = 1
	}
	m.viewport.Width = mainW
	m.viewport.Height = vpH
	m.refreshTranscript()
}

// refreshTranscript re-renders the messages into the viewport, following
// the tail when it was already at the bottom or the chat changed.
func (m *Model) refreshTranscript() {
	follow := m.viewport.AtBottom() || m.snap.SelectedID != m.cache.shownID
	m.cache.shownID = m.snap.SelectedID

	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	brand := t.HeaderBrand.Render("sumer")

	sub := "no chat selected"
	if cs, ok := m.snap.Selected(); ok {
		sub = cs.DisplayTitle()
	}
	if n := len(m.snap.Sessions); n > 0 {
		sub = fmt.Sprintf("%s  (%d chats)", sub, n)
	}
	room := m.width - lipgloss.Width(brand) - 4
	line := brand + "  " + t.HeaderSubtitle.Render(truncate(sub, room))
	return t.Header.Width(m.width).Render(line)
}

// renderBottom stacks the error box, toasts, input, help and status bar.
func (m Model) renderBottom() string {
	var parts []string

	if err := m.snap.Flags.Error; err != nil {
		parts = append(parts, components.NewErrorDisplay(err).View(m.theme, m.width))
	}
	if m.toasts.Len() > 0 {
		parts = append(parts, m.toasts.View(m.theme, m.width))
	}
	parts = append(parts, m.theme.InputContainer.Width(m.width).Render(m.input.View()))
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	parts = append(parts, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderSidebar(width, height int) string {
	t := m.theme
	inner := width - t.SessionList.GetHorizontalFrameSize()

	lines := []string{t.SessionListTitle.Render("Chats")}
	if len(m.snap.Sessions) == 0 {
		lines = append(lines, t.Placeholder.Render(truncate("none yet", inner)))
	}
	for _, cs := range m.snap.Sessions {
		title := truncate(cs.DisplayTitle(), inner-1)
		style := t.SessionItem
		if cs.ID == m.snap.SelectedID {
			style = t.SessionItemSelected
			if m.pendingDelete == cs.ID {
				style = style.Foreground(t.ErrorStyle.GetForeground())
			}
		}
		lines = append(lines, style.Width(inner).Render(title))
		if t.GetLayoutMode() == styles.LayoutWide {
			lines = append(lines, t.SessionMeta.Render(formatAge(cs.LastActivity())))
		}
	}

	content := strings.Join(lines, "\n")
	return t.SessionList.
		Width(width - t.SessionList.GetBorderRightSize()).
		Height(height).
		MaxHeight(height).
		Render(content)
}

// isOffline reports whether err means the host has no network.
func isOffline(err error) bool {
	return err != nil && errors.Is(err, chatsvc.ErrOffline)
}
