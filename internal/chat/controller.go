// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/stream"
)

// =============================================================================
// SEND / RETRY / CANCEL
// =============================================================================

// Send appends text and an empty reply to the transcript and starts
// streaming the reply into it. It returns once the connection is being
// opened; the Exchange reports the outcome. ctx bounds the whole exchange.
func (s *Session) Send(ctx context.Context, text string) (*Exchange, error) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	return s.sendLocked(ctx, text)
}

// Retry re-sends the input of the last failed send. A trailing copy of that
// user message is dropped first so it is not shown twice.
func (s *Session) Retry(ctx context.Context) (*Exchange, error) {
	s.mu.Lock()
	if s.state != StateFailed || s.lastInput == "" {
		s.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	input := s.lastInput
	if s.selectedID != "" && s.active == nil && !s.loadingHistory {
		if last, ok := s.transcript.Last(); ok && last.IsUser() && last.Content == input {
			s.transcript.Remove(last.ID)
		}
	}
	return s.sendLocked(ctx, input)
}

// Cancel aborts the in-flight reply, if any. Returns false when nothing was
// streaming.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	x := s.active
	s.mu.Unlock()
	if x == nil {
		return false
	}
	x.Cancel()
	return true
}

// sendLocked is entered with s.mu held and releases it.
func (s *Session) sendLocked(ctx context.Context, text string) (*Exchange, error) {
	if s.selectedID == "" {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	if s.active != nil || s.loadingHistory {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	user := s.transcript.Append(model.NewUserMessage(text))
	placeholder := s.transcript.Append(model.NewAssistantPlaceholder())

	s.nextID++
	xctx, cancel := context.WithCancel(ctx)
	x := &Exchange{
		ID:            s.nextID,
		SessionID:     s.selectedID,
		Input:         text,
		userMsgID:     user.ID,
		placeholderID: placeholder.ID,
		ctx:           xctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	s.state = StateConnecting
	s.gotFirst = false
	s.err = nil
	s.lastInput = ""

	conn, err := s.dialer.Open(xctx, s.api.BuildStreamRequest(x.SessionID, text))
	if err != nil {
		s.transcript.Remove(user.ID)
		s.transcript.Remove(placeholder.ID)
		s.state = StateFailed
		serr := &SendError{Kind: ErrStream, Err: err}
		s.err = serr
		s.lastInput = text
		s.mu.Unlock()

		s.log.Warn().Err(err).Str(logging.FieldSessionID, x.SessionID).Msg("could not open stream")
		x.finish(serr)
		s.notify()
		return nil, serr
	}
	x.conn = conn
	s.active = x
	s.mu.Unlock()

	s.log.Debug().
		Uint64(logging.FieldExchange, x.ID).
		Str(logging.FieldSessionID, x.SessionID).
		Msg("stream opening")
	s.notify()

	go s.run(x)
	return x, nil
}

// =============================================================================
// EXCHANGE LOOP
// =============================================================================

// run consumes connection events until a terminal transition.
func (s *Session) run(x *Exchange) {
	defer x.conn.Close()

	timer := time.NewTimer(s.cfg.StreamTimeout)
	defer timer.Stop()

	events := x.conn.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if x.ctx.Err() != nil {
					s.abort(x)
				} else {
					s.fail(x, stream.ErrClosed)
				}
				return
			}
			switch ev.Kind {
			case stream.EventOpen:
				s.onOpen(x)
			case stream.EventMessage:
				if ev.Data == api.Sentinel {
					s.complete(x)
					return
				}
				s.onIncrement(x, ev.Data)
				resetTimer(timer, s.cfg.StreamTimeout)
			case stream.EventError:
				s.fail(x, ev.Err)
				return
			}

		case <-timer.C:
			s.timeout(x)
			return

		case <-x.ctx.Done():
			s.abort(x)
			return
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (s *Session) onOpen(x *Exchange) {
	s.mu.Lock()
	if s.active != x {
		s.mu.Unlock()
		return
	}
	if s.state == StateConnecting {
		s.state = StateReceiving
	}
	s.mu.Unlock()

	s.log.Debug().Uint64(logging.FieldExchange, x.ID).Str(logging.FieldState, StateReceiving.String()).Msg("stream open")
	s.notify()
}

func (s *Session) onIncrement(x *Exchange, data string) {
	s.mu.Lock()
	if s.active != x {
		s.mu.Unlock()
		return
	}
	// A message can only follow an open; tolerate transports that skip it.
	s.state = StateReceiving
	s.gotFirst = true
	s.transcript.AppendContent(x.placeholderID, data)
	s.mu.Unlock()

	x.appendContent(data)
	s.notify()
}

func (s *Session) complete(x *Exchange) {
	x.conn.Close()

	s.mu.Lock()
	if s.active != x {
		s.mu.Unlock()
		x.finish(ErrCanceled)
		return
	}
	s.active = nil
	s.state = StateCompleted
	s.mu.Unlock()

	s.log.Debug().Uint64(logging.FieldExchange, x.ID).Int("chars", len(x.Content())).Msg("reply complete")
	x.finish(nil)
	s.notify()
	s.settle()

	if s.cfg.RefreshTitles {
		go s.refreshAfterReply()
	}
}

// settle returns a completed send to Idle once observers have been told.
// A newer send that already started is left alone.
func (s *Session) settle() {
	s.mu.Lock()
	settled := s.active == nil && s.state == StateCompleted
	if settled {
		s.state = StateIdle
	}
	s.mu.Unlock()
	if settled {
		s.notify()
	}
}

// fail classifies cause, then removes the placeholder and records the error.
// Classification may probe the server, so it runs before taking the lock and
// before anything is reported.
func (s *Session) fail(x *Exchange, cause error) {
	x.conn.Close()
	kind := s.classify(x.ctx, cause)

	if x.ctx.Err() != nil {
		s.abort(x)
		return
	}

	s.mu.Lock()
	if s.active != x {
		s.mu.Unlock()
		x.finish(ErrCanceled)
		return
	}
	s.active = nil
	s.transcript.Remove(x.placeholderID)
	s.state = StateFailed
	serr := &SendError{Kind: kind, Err: cause}
	s.err = serr
	s.lastInput = x.Input
	s.mu.Unlock()

	s.log.Warn().Err(cause).Uint64(logging.FieldExchange, x.ID).Str("kind", kind.Error()).Msg("reply failed")
	x.finish(serr)
	s.notify()
}

func (s *Session) timeout(x *Exchange) {
	x.conn.Close()

	s.mu.Lock()
	if s.active != x {
		s.mu.Unlock()
		x.finish(ErrCanceled)
		return
	}
	s.active = nil
	s.transcript.Remove(x.placeholderID)
	s.state = StateFailed
	serr := &SendError{Kind: ErrTimeout}
	s.err = serr
	s.lastInput = x.Input
	s.mu.Unlock()

	s.log.Warn().Uint64(logging.FieldExchange, x.ID).Dur("after", s.cfg.StreamTimeout).Msg("reply timed out")
	x.finish(serr)
	s.notify()
}

// abort handles a canceled exchange. When the exchange is still active
// (explicit Cancel) partial content stays and an empty placeholder goes.
// When a session switch already detached it there is nothing to undo.
func (s *Session) abort(x *Exchange) {
	x.conn.Close()

	s.mu.Lock()
	if s.active == x {
		s.active = nil
		if m, ok := s.transcript.Get(x.placeholderID); ok && m.IsEmpty() {
			s.transcript.Remove(x.placeholderID)
		}
		s.state = StateIdle
		s.gotFirst = false
	}
	s.mu.Unlock()

	s.log.Debug().Uint64(logging.FieldExchange, x.ID).Msg("reply aborted")
	x.finish(ErrCanceled)
	s.notify()
}

// classify maps a transport failure to the error the user sees.
func (s *Session) classify(ctx context.Context, cause error) error {
	var (
		ae *api.Error
		se *stream.ServerEventError
	)
	switch {
	case errors.As(cause, &se), errors.Is(cause, stream.ErrNotEventStream):
		return ErrStream
	case errors.As(cause, &ae) && ae.Status != 0:
		// The server answered, so it is reachable.
		if errors.Is(ae, api.ErrAuth) && s.refresher != nil {
			if err := s.refresher.Refresh(ctx); err != nil {
				s.log.Warn().Err(err).Msg("credential refresh after stream 401 failed")
			}
		}
		return ErrStream
	}

	if !s.net.Online() {
		return ErrOffline
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	if err := s.api.Probe(pctx); err != nil {
		return ErrServerUnreachable
	}
	return ErrStream
}

func (s *Session) refreshAfterReply() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.RefreshSessions(ctx); err != nil {
		s.log.Debug().Err(err).Msg("title refresh failed")
	}
}
