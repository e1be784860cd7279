// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sumer-tui/internal/ui/styles"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindSuccess
)

// Auto-dismiss durations. Errors stay longer so they can be read.
const (
	DefaultToastDuration = 3 * time.Second
	ErrorToastDuration   = 6 * time.Second
)

// Toast is a non-blocking notification shown above the input.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be dropped at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// Toasts holds the visible toasts, newest first. It is a value owned by the
// bubbletea model and is only touched from Update.
type Toasts struct {
	items  []Toast
	nextID int
	max    int
	now    func() time.Time
}

// NewToasts creates an empty toast stack showing at most 3 at once.
func NewToasts() Toasts {
	return Toasts{nextID: 1, max: 3, now: time.Now}
}

// Add pushes a toast and returns the command that expires it.
func (m *Toasts) Add(kind ToastKind, message string) tea.Cmd {
	d := DefaultToastDuration
	if kind == ToastKindError {
		d = ErrorToastDuration
	}
	t := Toast{ID: m.nextID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++

	m.items = append([]Toast{t}, m.items...)
	if len(m.items) > m.max {
		m.items = m.items[:m.max]
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return ToastExpiredMsg{ID: t.ID} })
}

// Success, Status and Error are shorthands for Add.
func (m *Toasts) Success(message string) tea.Cmd { return m.Add(ToastKindSuccess, message) }
func (m *Toasts) Status(message string) tea.Cmd  { return m.Add(ToastKindStatus, message) }
func (m *Toasts) Error(message string) tea.Cmd   { return m.Add(ToastKindError, message) }

// Expire removes the toast with id and anything else past its time.
func (m *Toasts) Expire(id int) {
	now := m.now()
	kept := m.items[:0]
	for _, t := range m.items {
		if t.ID != id && !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	m.items = kept
}

// Items returns the visible toasts, newest first.
func (m Toasts) Items() []Toast {
	return append([]Toast(nil), m.items...)
}

// Len returns the number of visible toasts.
func (m Toasts) Len() int { return len(m.items) }

// ToastExpiredMsg is delivered when a toast's time is up.
type ToastExpiredMsg struct {
	ID int
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the toasts one per line, clipped to width.
func (m Toasts) View(theme *styles.Theme, width int) string {
	if len(m.items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.items))
	for _, t := range m.items {
		var style lipgloss.Style
		var icon string
		switch t.Kind {
		case ToastKindError:
			style, icon = theme.ErrorStyle, styles.StatusIndicators.Error
		case ToastKindSuccess:
			style, icon = theme.SuccessStyle, styles.StatusIndicators.Success
		default:
			style, icon = theme.InfoStyle, styles.StatusIndicators.Info
		}
		text := util.TruncateWidth(util.SingleLine(icon+" "+t.Message), width)
		lines = append(lines, style.Render(text))
	}
	return strings.Join(lines, "\n")
}
