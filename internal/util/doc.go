// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the client packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - TruncateRunes, TruncateWidth: UTF-8 and display-width safe truncation
//   - Fingerprint: Short non-reversible tag for secrets in logs and status output
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	title := util.TruncateWidth(session.Title, 24)
package util
