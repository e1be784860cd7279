// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/sumer-tui/internal/model"
)

// Responder produces a reply to the conversation so far. It calls emit for
// every token. Returning an error ends the stream with an error frame and
// the reply is not stored.
type Responder interface {
	Respond(ctx context.Context, history []model.Message, emit func(token string) error) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, history []model.Message, emit func(string) error) error

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, history []model.Message, emit func(string) error) error {
	return f(ctx, history, emit)
}

// EchoResponder repeats the last user message word by word.
type EchoResponder struct {
	// Prefix is emitted before the echo.
	Prefix string
	// Delay is slept between tokens.
	Delay time.Duration
}

// Respond implements Responder.
func (e EchoResponder) Respond(ctx context.Context, history []model.Message, emit func(string) error) error {
	var input string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsUser() {
			input = history[i].Content
			break
		}
	}

	for _, tok := range Tokenize(e.Prefix + input) {
		if e.Delay > 0 {
			select {
			case <-time.After(e.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := emit(tok); err != nil {
			return err
		}
	}
	return nil
}

// Tokenize splits text into word tokens that concatenate back to text.
// Leading whitespace stays attached to the following word, the way model
// tokenizers emit " world".
func Tokenize(text string) []string {
	var (
		toks []string
		cur  strings.Builder
		word bool
	)
	for _, r := range text {
		space := r == ' ' || r == '\t'
		if space && word {
			toks = append(toks, cur.String())
			cur.Reset()
			word = false
		}
		cur.WriteRune(r)
		if !space {
			word = true
		}
	}
	if cur.Len() > 0 {
		toks = append(toks, cur.String())
	}
	return toks
}
