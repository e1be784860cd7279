// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is an in-memory chat backend speaking the same HTTP
// contract as the production service. It backs `sumer dev-server` and the
// end-to-end tests.
//
// # Endpoints
//
//   - POST   /auth/anonymous           - Issue an anonymous identity
//   - GET    /auth/me                  - Who the bearer token belongs to
//   - GET    /chats                    - List the caller's sessions
//   - POST   /chats                    - Create a session
//   - DELETE /chats/{id}               - Delete a session
//   - GET    /chats/{id}/messages      - Session history
//   - GET    /chat/stream              - Stream a reply as server-sent events
//   - GET    /health (HEAD too)        - Liveness
//
// Errors use the {"detail": "..."} body the client expects.
//
// # Replies
//
// A Responder produces the assistant's reply token by token. The default
// EchoResponder repeats the user's message back. Tests plug in responders
// that stall or fail to exercise the client's timeout and error paths.
//
// # Usage
//
//	srv := server.New(server.DefaultOptions())
//	go srv.ListenAndServe(ctx)
package server
