// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sumer command line.
//
// With no arguments on a terminal, sumer opens the full-screen chat. The
// same features are available as cobra subcommands for scripts:
//
//	sumer ask [question]          one message, reply streamed to stdout
//	sumer chat                    line-mode chat with slash commands
//	sumer sessions list|new|show|delete
//	sumer auth init|status|logout
//	sumer config show|path|init|keys|get|set
//	sumer dev-server              in-memory backend for local testing
//
// Every command loads config from $SUMER_HOME (default ~/.sumer), applies
// the global --api-url and --log-level flags on top, and reports failures
// as "Error: ..." on stderr with exit status 1.
package cli
