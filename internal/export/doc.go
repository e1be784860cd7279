// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat's history to a file.
//
// # Supported Formats
//
//   - Markdown: frontmatter plus one heading per message
//   - JSON: the session and its messages, machine-readable
//   - HTML: a single self-contained page
//
// # Usage
//
//	ex, err := export.For("md", export.DefaultOptions())
//	path, err := export.ToFile(export.Chat{Session: cs, Messages: msgs}, ex, ".")
package export
