// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered message list of one session.
//
// A transcript never outlives a session switch: callers replace it wholesale
// with NewTranscript instead of clearing it. It is not safe for concurrent use;
// the owner guards it.
type Transcript struct {
	sessionID string
	messages  []Message
}

// NewTranscript returns an empty transcript bound to sessionID.
func NewTranscript(sessionID string, msgs ...Message) *Transcript {
	t := &Transcript{sessionID: sessionID}
	if len(msgs) > 0 {
		t.messages = append(make([]Message, 0, len(msgs)), msgs...)
	}
	return t
}

// SessionID returns the session the transcript belongs to.
func (t *Transcript) SessionID() string {
	return t.sessionID
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the messages.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Append adds msg to the end and returns it.
func (t *Transcript) Append(msg Message) Message {
	t.messages = append(t.messages, msg)
	return msg
}

// AppendContent appends text to the message with the given id.
// Returns false if no such message exists.
func (t *Transcript) AppendContent(id, text string) bool {
	i := t.index(id)
	if i < 0 {
		return false
	}
	var b strings.Builder
	b.Grow(len(t.messages[i].Content) + len(text))
	b.WriteString(t.messages[i].Content)
	b.WriteString(text)
	t.messages[i].Content = b.String()
	return true
}

// Remove deletes the message with the given id.
// Returns false if no such message exists.
func (t *Transcript) Remove(id string) bool {
	i := t.index(id)
	if i < 0 {
		return false
	}
	t.messages = append(t.messages[:i], t.messages[i+1:]...)
	return true
}

// Get returns the message with the given id.
func (t *Transcript) Get(id string) (Message, bool) {
	i := t.index(id)
	if i < 0 {
		return Message{}, false
	}
	return t.messages[i], true
}

// Last returns the trailing message, if any.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastAssistant returns the most recent non-empty assistant message.
func (t *Transcript) LastAssistant() (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].IsAssistant() && !t.messages[i].IsEmpty() {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// index searches from the end; the mutation target is almost always trailing.
func (t *Transcript) index(id string) int {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}
