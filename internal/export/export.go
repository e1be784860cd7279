// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/sumer-tui/internal/model"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// ErrEmptyChat is returned when there is nothing to export.
var ErrEmptyChat = errors.New("chat has no messages")

// Chat is what gets exported: the backend's session metadata and its history.
type Chat struct {
	Session  model.ChatSession
	Messages []model.Message
}

// Exporter converts a chat to one file format.
type Exporter interface {
	// Export returns the encoded chat.
	Export(c Chat) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeTimestamps adds per-message times to Markdown and HTML.
	IncludeTimestamps bool

	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{IncludeTimestamps: true, Now: time.Now}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"md", "json", "html"}
}

// For returns the exporter for a format name.
func For(format string, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownExporter{options: opts}, nil
	case "json":
		return &JSONExporter{}, nil
	case "html", "htm":
		return &HTMLExporter{options: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use %s)", format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports c into dir and returns the written path. The file name is
// derived from the chat title and id so repeated exports overwrite each
// other rather than piling up.
func ToFile(c Chat, ex Exporter, dir string) (string, error) {
	content, err := ex.Export(c)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(c.Session, ex))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// FileName returns the default file name for a session.
func FileName(cs model.ChatSession, ex Exporter) string {
	id := cs.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := sanitizeFilename(cs.DisplayTitle())
	if id != "" {
		name += "_" + sanitizeFilename(id)
	}
	return name + ex.FileExtension()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// any platform.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			out = append(out, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = append(out, '_')
		case r < 32 || r == 127:
			out = append(out, '-')
		case r == '.' && len(out) == 0:
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "chat"
	}
	return string(out)
}

func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "User"
	case model.RoleAssistant:
		return "Assistant"
	case "":
		return "Unknown"
	default:
		runes := []rune(string(r))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}
