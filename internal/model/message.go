// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the roles the backend produces.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a transcript.
//
// ID is assigned locally and never sent to the backend. It lets the streaming
// controller address the exact placeholder it created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh local id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a completed assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewAssistantPlaceholder creates the empty assistant message that receives
// streamed increments.
func NewAssistantPlaceholder() Message {
	return NewMessage(RoleAssistant, "")
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// IsEmpty reports whether the message carries no visible content.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// FormattedTime returns the message time as HH:MM.
func (m Message) FormattedTime() string {
	if m.Timestamp.IsZero() {
		return ""
	}
	return m.Timestamp.Format("15:04")
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// DefaultSessionTitle is what the backend names a session before its first
// user message.
const DefaultSessionTitle = "New Chat"

// ChatSession is backend-owned session metadata. The client only caches it.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DisplayTitle returns the title, falling back to the default name.
func (s ChatSession) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return DefaultSessionTitle
	}
	return s.Title
}

// LastActivity is UpdatedAt, or CreatedAt for a session never written to.
func (s ChatSession) LastActivity() time.Time {
	if s.UpdatedAt.IsZero() {
		return s.CreatedAt
	}
	return s.UpdatedAt
}

// TitleFromInput derives a session title from the first user message: the
// first four words, with an ellipsis when the message is longer.
func TitleFromInput(input string) string {
	words := strings.Fields(input)
	if len(words) == 0 {
		return DefaultSessionTitle
	}
	if len(words) <= 4 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:4], " ") + "..."
}
