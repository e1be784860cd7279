// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline answers "does this host have a network at all" and
// validates backend URLs.
//
// The streaming controller uses a Detector to tell "you are offline" apart
// from "the server is down": only when the host still has a usable interface
// is a reachability probe worth sending.
//
// # Usage
//
//	mon := offline.NewMonitor(cfg.API.BaseURL)
//	if !mon.Online() {
//	    return chat.ErrOffline
//	}
//
//	if err := offline.ValidateURL(raw); err != nil {
//	    return err
//	}
package offline
