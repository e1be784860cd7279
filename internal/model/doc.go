// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Message: Single message with role, content and timestamp
//   - ChatSession: Backend-owned session metadata (id, title, timestamps)
//   - Transcript: Ordered messages bound to exactly one session id
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Build a transcript for a selected session:
//
//	tr := model.NewTranscript(sessionID)
//	tr.Append(model.NewUserMessage("Hello!"))
//	placeholder := tr.Append(model.NewAssistantPlaceholder())
//	tr.AppendContent(placeholder.ID, "Hi")
package model
