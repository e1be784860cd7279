// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the chat backend.
//
// Every call attaches the current credentials. On 401 it refreshes them once
// and retries once. Failures come back as *Error values classified against
// the sentinels ErrAuth, ErrNotFound, ErrServer and ErrConnectivity:
//
//	sessions, err := client.ListChats(ctx)
//	if errors.Is(err, api.ErrServer) {
//	    // retryable
//	}
//
// The streaming endpoint is not called here. BuildStreamRequest only
// describes it; internal/stream opens it.
package api
