// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"strings"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
	"github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/config"
)

// hintFor returns a one-line suggestion for errors the user can act on, or
// "" when the message already says everything.
func hintFor(err error) string {
	var verrs config.ValidateErrors
	switch {
	case errors.As(err, &verrs):
		return "Fix the setting with 'sumer config set <key> <value>' or edit 'sumer config path'."
	case errors.Is(err, auth.ErrAuthInit):
		return chat.Describe(err) + " Start one with 'sumer dev-server' or pass --api-url."
	case errors.Is(err, chat.ErrCanceled):
		return ""
	}
	d := chat.Describe(err)
	if d == err.Error() {
		d = ""
	}
	if api.IsRetryable(err) && !strings.Contains(strings.ToLower(d), "try again") {
		d = strings.TrimSpace(d + " It may be temporary; try again in a moment.")
	}
	return d
}
