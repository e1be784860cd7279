// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sumer.
//
// Supports both TOML and JSON configuration formats, with built-in defaults,
// environment variable overrides, validation and live reload.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SUMER_*)
//   - $SUMER_HOME/config.toml (default ~/.sumer)
//   - $SUMER_HOME/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := api.NewClient(cfg.API.BaseURL, creds).WithTimeout(cfg.RequestTimeout())
//
// Values can be read and written by dotted key, which is what the
// "sumer config get/set" commands use:
//
//	_ = cfg.Set("stream.timeout_secs", "45")
//
// Watch reloads a file on edit; the TUI uses it to re-apply the theme and
// log level without restarting.
package config
