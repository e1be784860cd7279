// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/storage"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// Keys under which the identity is persisted.
const (
	KeyToken  = "auth_token"
	KeyUserID = "user_id"
)

// issueTimeout bounds a shared identity request once it no longer follows
// the caller that started it.
const issueTimeout = 30 * time.Second

// ErrAuthInit is returned by Initialize when no identity can be obtained.
// It is fatal to the client: nothing else works without a token.
var ErrAuthInit = errors.New("auth initialization failed")

// =============================================================================
// STORE
// =============================================================================

// Store holds the process-wide identity.
//
// Reads are snapshots. A Refresh racing an in-flight request may leave that
// request with the old token; the API client's single 401 retry covers it.
type Store struct {
	kv     storage.KV
	issuer Issuer
	log    zerolog.Logger

	mu       sync.RWMutex
	identity Identity

	// Concurrent refreshes (several requests hitting 401 together) share
	// one issue call.
	refreshGroup singleflight.Group
}

// NewStore creates a store and loads any persisted identity from kv.
// A half-present pair (token without user id) is treated as absent.
func NewStore(kv storage.KV, issuer Issuer) *Store {
	s := &Store{
		kv:     kv,
		issuer: issuer,
		log:    logging.Component("auth"),
	}
	s.load()
	return s
}

// WithLogger replaces the store's logger.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

func (s *Store) load() {
	tok, okTok, err := s.kv.Get(KeyToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load persisted token")
		return
	}
	uid, okUID, err := s.kv.Get(KeyUserID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load persisted user id")
		return
	}
	if !okTok || !okUID {
		return
	}
	s.identity = Identity{UserID: uid, Token: tok}
	s.log.Debug().
		Str(logging.FieldUserID, uid).
		Str(logging.FieldTokenFP, util.Fingerprint(tok)).
		Msg("loaded persisted identity")
}

// Initialize ensures an identity exists, requesting one if none is cached.
func (s *Store) Initialize(ctx context.Context) error {
	if s.IsAuthenticated() {
		return nil
	}
	if _, err := s.acquire(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthInit, err)
	}
	return nil
}

// Refresh always requests a new anonymous identity and overwrites the stored
// one. Concurrent callers share a single request.
func (s *Store) Refresh(ctx context.Context) error {
	_, err := s.acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh identity: %w", err)
	}
	return nil
}

// acquire issues a new identity. The request is shared by every concurrent
// caller, so it runs detached from the first caller's cancellation; each
// caller still stops waiting when its own ctx ends.
func (s *Store) acquire(ctx context.Context) (Identity, error) {
	ch := s.refreshGroup.DoChan("issue", func() (any, error) {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), issueTimeout)
		defer cancel()

		id, err := s.issuer.Issue(ictx)
		if err != nil {
			return Identity{}, err
		}
		s.set(id)
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.log.Debug().Msg("joined in-flight identity request")
		}
		if res.Err != nil {
			s.log.Warn().Err(res.Err).Msg("identity request failed")
			return Identity{}, res.Err
		}
		return res.Val.(Identity), nil
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// set installs id in memory and persists it. A persistence failure is
// logged, not returned: the identity is usable for this process either way.
func (s *Store) set(id Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()

	if err := s.kv.SetMany(map[string]string{
		KeyToken:  id.Token,
		KeyUserID: id.UserID,
	}); err != nil {
		s.log.Error().Err(err).Msg("failed to persist identity")
	}

	s.log.Info().
		Str(logging.FieldUserID, id.UserID).
		Str(logging.FieldTokenFP, util.Fingerprint(id.Token)).
		Msg("acquired identity")
}

// AuthHeaders returns the request headers carrying the credential. Without
// an identity it returns the no-auth set.
func (s *Store) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if tok := s.Token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// Token returns the current token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Token
}

// UserID returns the current user id or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.UserID
}

// IsAuthenticated reports whether a token is cached.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Claims decodes the current token for display.
func (s *Store) Claims() (Claims, error) {
	return ParseClaims(s.Token())
}

// Logout forgets the identity in memory and in durable storage.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.identity = Identity{}
	s.mu.Unlock()

	if err := s.kv.Delete(KeyToken, KeyUserID); err != nil {
		return fmt.Errorf("failed to clear stored identity: %w", err)
	}
	s.log.Info().Msg("logged out")
	return nil
}
