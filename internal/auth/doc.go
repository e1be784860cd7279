// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the client's anonymous identity.
//
// The backend hands out anonymous identities (POST /auth/anonymous). The
// Store caches the current one in memory, persists it to a storage.KV on
// every acquisition and replaces it on demand when the API reports 401.
// There is no background refresh.
//
// # Usage
//
//	kv, _ := storage.Open(storage.BackendFile, path)
//	store := auth.NewStore(kv, auth.NewHTTPIssuer(baseURL))
//	if err := store.Initialize(ctx); err != nil {
//	    // errors.Is(err, auth.ErrAuthInit)
//	}
//	req.Header = store.AuthHeaders()
package auth
