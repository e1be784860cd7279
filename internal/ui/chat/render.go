// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache keeps rendered markdown for finished replies so glamour runs
// once per message and width, not on every frame. It is shared by all
// copies of the Model.
type renderCache struct {
	entries map[string]string
	// shownID is the session whose transcript the viewport last showed.
	shownID string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[string]string)}
}

func (c *renderCache) key(msg model.Message, width int) string {
	return fmt.Sprintf("%s/%d/%d", msg.ID, width, len(msg.Content))
}

func (c *renderCache) reset() {
	c.entries = make(map[string]string)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript(width int) string {
	t := m.theme
	switch {
	case m.snap.SelectedID == "":
		return t.Placeholder.Render("No chat selected. Press Ctrl+N to start one.")
	case m.snap.Flags.LoadingHistory:
		return m.spinner.View() + " " + t.ThinkingText.Render("Loading history...")
	case len(m.snap.Messages) == 0:
		return t.Placeholder.Render("Start the conversation by typing below.")
	}

	blocks := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	t := m.theme

	label := t.AssistantLabel.Render(msg.Role.DisplayName())
	bubble := t.AssistantBubble
	if msg.IsUser() {
		label = t.UserLabel.Render(msg.Role.DisplayName())
		bubble = t.UserBubble
	}
	if m.opts.ShowTimestamps {
		if ts := msg.FormattedTime(); ts != "" {
			label += " " + t.Timestamp.Render(ts)
		}
	}

	inner := width - bubble.GetHorizontalFrameSize() - 1
	if inner < 10 {
		inner = 10
	}

	var body string
	streaming := msg.ID == m.snap.StreamingID
	switch {
	case streaming && msg.IsEmpty():
		status := "Thinking..."
		if m.snap.Flags.Sending {
			status = "Connecting..."
		}
		body = m.spinner.View() + " " + t.ThinkingText.Render(status)
	case streaming:
		body = lipgloss.NewStyle().Width(inner).Render(msg.Content) + " " + m.spinner.View()
	case msg.IsAssistant() && m.opts.RenderMarkdown:
		body = m.renderMarkdown(msg, inner)
	default:
		body = lipgloss.NewStyle().Width(inner).Render(msg.Content)
	}

	return label + "\n" + bubble.Render(body)
}

func (m Model) renderMarkdown(msg model.Message, width int) string {
	k := m.cache.key(msg, width)
	if out, ok := m.cache.entries[k]; ok {
		return out
	}
	out := m.md.Render(msg.Content, width)
	m.cache.entries[k] = out
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// truncate shortens s to one line of at most width columns.
func truncate(s string, width int) string {
	return util.TruncateWidth(util.SingleLine(s), width)
}

func formatAge(t time.Time) string {
	return util.FormatAge(t, time.Now())
}
