// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
	"github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/config"
	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/offline"
	"github.com/jeranaias/sumer-tui/internal/storage"
	"github.com/jeranaias/sumer-tui/internal/stream"
)

// app is the wired client stack: credentials, REST client, stream dialer
// and the chat session state on top of them.
type app struct {
	cfg     *config.Config
	kv      storage.KV
	creds   *auth.Store
	client  *api.Client
	session *chat.Session
}

// openCredentials opens the configured credential store without touching
// the network.
func openCredentials(cfg *config.Config) (*auth.Store, storage.KV, error) {
	path, err := cfg.CredentialPath()
	if err != nil {
		return nil, nil, err
	}
	kv, err := storage.Open(storage.Backend(cfg.Auth.Store), path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	issuer := auth.NewHTTPIssuer(cfg.API.BaseURL).
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()})
	creds := auth.NewStore(kv, issuer).WithLogger(logging.Component("auth"))
	return creds, kv, nil
}

// openApp builds the full stack and makes sure an identity exists. An
// unreachable backend surfaces auth.ErrAuthInit.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	creds, kv, err := openCredentials(cfg)
	if err != nil {
		return nil, err
	}
	if err := creds.Initialize(ctx); err != nil {
		kv.Close()
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL, creds).
		WithTimeout(cfg.RequestTimeout()).
		WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst).
		WithLogger(logging.Component("api"))

	dialer := stream.NewHTTPDialer().WithLogger(logging.Component("stream"))

	session := chat.NewSession(client, dialer, chat.Config{
		StreamTimeout: cfg.StreamTimeout(),
		ProbeTimeout:  cfg.ProbeTimeout(),
		RefreshTitles: true,
	}).
		WithRefresher(creds).
		WithDetector(offline.NewMonitor(cfg.API.BaseURL)).
		WithLogger(logging.Component("chat"))

	return &app{cfg: cfg, kv: kv, creds: creds, client: client, session: session}, nil
}

// Close releases the credential store.
func (a *app) Close() error {
	return a.kv.Close()
}
