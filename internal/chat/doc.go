// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the client-side state of a chat: which session is
// selected, its transcript, and the single in-flight streamed reply.
//
// # State machine
//
// A send moves through an explicit State:
//
//	Idle -> Connecting -> Receiving -> Completed
//	                  \-> Failed  <-/
//
// Completed and Failed are resting states: they accept a new Send (and
// Failed accepts Retry) exactly like Idle. UI flags are derived from the
// state, never stored separately.
//
// # Concurrency
//
// Session is safe for concurrent use. Each send runs as an Exchange owned by
// one goroutine; every mutation it makes is fenced on still being the active
// exchange, so an aborted stream can never write into another session's
// transcript. Observers poll Snapshot after a signal on Changes.
//
// # Usage
//
//	s := chat.NewSession(apiClient, stream.NewHTTPDialer(), chat.DefaultConfig())
//	if err := s.Bootstrap(ctx); err != nil { ... }
//	x, err := s.Send(ctx, "hello")
//	<-x.Done()
//	fmt.Println(x.Content(), x.Err())
package chat
