// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/sumer-tui/internal/model"
)

type storedSession struct {
	meta     model.ChatSession
	owner    string
	messages []model.Message
}

// Store holds sessions and their messages in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*storedSession
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*storedSession), now: time.Now}
}

// Create adds a session owned by owner and returns its id.
func (s *Store) Create(owner string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(uuid.NewString(), owner).meta.ID
}

func (s *Store) createLocked(id, owner string) *storedSession {
	now := s.now()
	ss := &storedSession{
		meta:  model.ChatSession{ID: id, Title: model.DefaultSessionTitle, CreatedAt: now, UpdatedAt: now},
		owner: owner,
	}
	s.sessions[id] = ss
	return ss
}

// List returns owner's sessions, most recently updated first.
func (s *Store) List(owner string) []model.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ChatSession, 0, len(s.sessions))
	for _, ss := range s.sessions {
		if ss.owner == owner {
			out = append(out, ss.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Delete removes a session. Returns false if it did not exist.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Messages returns a session's history. Unknown sessions have none.
func (s *Store) Messages(id string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return append([]model.Message(nil), ss.messages...)
}

// Append stores a message, creating the session for owner if needed. The
// first user message of a still-untitled session names it.
func (s *Store) Append(id, owner string, role model.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[id]
	if !ok {
		ss = s.createLocked(id, owner)
	}

	msg := model.NewMessage(role, content)
	msg.Timestamp = s.now()
	ss.messages = append(ss.messages, msg)
	ss.meta.UpdatedAt = msg.Timestamp

	if role == model.RoleUser && ss.meta.Title == model.DefaultSessionTitle {
		ss.meta.Title = model.TitleFromInput(content)
	}
}
