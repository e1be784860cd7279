// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/jeranaias/sumer-tui/internal/stream"
)

// Exchange is one send: a user message and the reply streamed for it.
type Exchange struct {
	ID        uint64
	SessionID string
	Input     string

	userMsgID     string
	placeholderID string

	ctx    context.Context
	cancel context.CancelFunc
	conn   stream.Conn

	mu      sync.Mutex
	content strings.Builder
	err     error
	once    sync.Once
	done    chan struct{}
}

// Done is closed when the exchange reaches a terminal state.
func (x *Exchange) Done() <-chan struct{} {
	return x.done
}

// Err returns the outcome. Nil before Done and on success.
func (x *Exchange) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Content returns the reply received so far.
func (x *Exchange) Content() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.content.String()
}

// Cancel aborts the exchange. Partial content is kept in the transcript.
func (x *Exchange) Cancel() {
	x.cancel()
}

// Wait blocks until the exchange finishes or ctx ends.
func (x *Exchange) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return x.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Exchange) appendContent(s string) {
	x.mu.Lock()
	x.content.WriteString(s)
	x.mu.Unlock()
}

func (x *Exchange) finish(err error) {
	x.once.Do(func() {
		x.mu.Lock()
		x.err = err
		x.mu.Unlock()
		x.cancel()
		close(x.done)
	})
}
