// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store backing the client's
// auth identity.
//
// # Key Types
//
//   - KV: Interface for get/set/delete of string values
//   - FileKV: JSON file written atomically (default)
//   - SQLiteKV: Single-table SQLite database via the pure Go driver
//   - MemoryKV: Process-local store for tests and --ephemeral runs
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, "~/.sumer/credentials.json")
//	err = kv.SetMany(map[string]string{"auth_token": tok, "user_id": uid})
//	tok, ok, err := kv.Get("auth_token")
//
// # Storage Location
//
// By default credentials live in ~/.sumer/ next to config.toml.
package storage
