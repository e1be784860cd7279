// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the sumer TUI and CLI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColors. Which half applies is decided by
NewTheme from the configured mode rather than left to terminal detection,
so "theme = light" in the config always wins.

  - Purple - assistant messages and selections
  - Cyan - brand, user messages, key hints
  - Emerald, Amber, Rose - success, pending and failure

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme) // "dark", "light" or "auto"
	theme.SetSize(width, height)
	if theme.SidebarWidth() == 0 {
	    // narrow terminal: hide the session list
	}

# Markdown (markdown.go)

Markdown wraps glamour and caches the renderer per width:

	md := styles.NewMarkdown(theme.GlamourStyle())
	out := md.Render(reply, 80)
*/
package styles
