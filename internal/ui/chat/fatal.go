// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sumer-tui/internal/ui/components"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// FatalModel is the screen shown when the app cannot start, typically
// because no identity could be obtained. The only action is to quit.
type FatalModel struct {
	theme   *styles.Theme
	display components.ErrorDisplay
	logPath string
	keys    KeyMap
	width   int
	height  int
}

// NewFatal creates the fatal screen for err.
func NewFatal(err error, themeMode, logPath string) FatalModel {
	d := components.NewErrorDisplay(err)
	d.Fatal = true
	return FatalModel{
		theme:   styles.NewTheme(themeMode),
		display: d,
		logPath: logPath,
		keys:    DefaultKeyMap(),
		width:   80,
		height:  24,
	}
}

func (m FatalModel) Init() tea.Cmd { return nil }

func (m FatalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.FatalQuit) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m FatalModel) View() string {
	return components.FatalView(m.theme, m.display, m.logPath, m.width, m.height)
}
