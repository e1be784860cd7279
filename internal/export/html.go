// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html/template"
	"time"

	"github.com/jeranaias/sumer-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a single page with embedded CSS. Message bodies are
// shown preformatted; markdown is not rendered.
type HTMLExporter struct {
	options *Options
}

type htmlMessage struct {
	Class string
	Label string
	Time  string
	Body  string
}

type htmlPage struct {
	Title    string
	Created  string
	Exported string
	Messages []htmlMessage
}

var pageTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="sumer">
<title>{{.Title}}</title>
<style>
body { background: #1a1b26; color: #c0caf5; font-family: system-ui, sans-serif; margin: 0; }
.container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
.meta { color: #565f89; font-size: 0.85rem; margin-bottom: 2rem; }
.message { border-left: 3px solid #414868; padding: 0.5rem 1rem; margin-bottom: 1.25rem; }
.message.user { border-color: #7aa2f7; }
.message.assistant { border-color: #9ece6a; }
.label { font-weight: 600; }
.time { color: #565f89; font-size: 0.8rem; margin-left: 0.5rem; }
pre { white-space: pre-wrap; word-wrap: break-word; font-family: ui-monospace, monospace; margin: 0.5rem 0 0; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
<div class="meta">{{if .Created}}Created {{.Created}} &middot; {{end}}Exported {{.Exported}}</div>
{{range .Messages}}<div class="message {{.Class}}">
<span class="label">{{.Label}}</span>{{if .Time}}<span class="time">{{.Time}}</span>{{end}}
<pre>{{.Body}}</pre>
</div>
{{end}}</div>
</body>
</html>
`))

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(c Chat) ([]byte, error) {
	if len(c.Messages) == 0 {
		return nil, ErrEmptyChat
	}

	page := htmlPage{
		Title:    c.Session.DisplayTitle(),
		Exported: e.options.now().Format("2006-01-02 15:04"),
		Messages: make([]htmlMessage, 0, len(c.Messages)),
	}
	if !c.Session.CreatedAt.IsZero() {
		page.Created = c.Session.CreatedAt.Format("2006-01-02 15:04")
	}
	for _, m := range c.Messages {
		hm := htmlMessage{
			Class: string(m.Role),
			Label: roleLabel(m.Role),
			Body:  m.Content,
		}
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			hm.Class = "other"
		}
		if e.options.IncludeTimestamps && !m.Timestamp.IsZero() {
			hm.Time = m.Timestamp.Format(time.Kitchen)
		}
		page.Messages = append(page.Messages, hm)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}
