// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream opens the server-sent-events channel that carries an
// assistant reply.
//
// A Conn reports, in order: one EventOpen once the response headers are in,
// then EventMessage per data frame, and at most one terminal EventError.
// The "[DONE]" sentinel arrives as an ordinary EventMessage; interpreting it
// is the caller's job. After Close no further events are delivered.
package stream
