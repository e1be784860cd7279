// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/sumer-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the session and every message, unfiltered.
type JSONExporter struct{}

type jsonChat struct {
	Session  model.ChatSession `json:"session"`
	Messages []model.Message   `json:"messages"`
}

// Export converts a chat to indented JSON.
func (e *JSONExporter) Export(c Chat) ([]byte, error) {
	if len(c.Messages) == 0 {
		return nil, ErrEmptyChat
	}
	return json.MarshalIndent(jsonChat{Session: c.Session, Messages: c.Messages}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
