// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant replies with glamour. Renderers are costly to
// build, so one is kept per (style, width) and rebuilt only when either
// changes.
type Markdown struct {
	mu       sync.Mutex
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer using a glamour standard style ("dark",
// "light", "notty").
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style}
}

// SetStyle switches the glamour style.
func (m *Markdown) SetStyle(style string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if style != m.style {
		m.style = style
		m.renderer = nil
	}
}

// Render formats content wrapped to width. On any renderer failure the
// content is returned unchanged.
func (m *Markdown) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	if width < 20 {
		width = 20
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		m.renderer, m.width = r, width
	}

	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
