// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import "github.com/rs/zerolog"

// Structured field names. Tokens are never logged; use FieldTokenFP.
const (
	FieldComponent = "component"
	FieldOp        = "op"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldTokenFP   = "token_fp"
	FieldState     = "state"
	FieldExchange  = "exchange"
	FieldAttempt   = "attempt"
)

// Component returns L() tagged with a component name.
func Component(name string) zerolog.Logger {
	return L().With().Str(FieldComponent, name).Logger()
}
