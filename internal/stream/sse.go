// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxEventSize caps the accumulated data of a single event.
const MaxEventSize = 1 << 20

// ErrEventTooLarge is returned when an event exceeds MaxEventSize.
var ErrEventTooLarge = errors.New("sse event exceeds maximum size")

// =============================================================================
// SSE READER
// =============================================================================

// Reader parses Server-Sent Events.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadEvent returns the next event's type and data. Multiple data lines are
// joined with "\n". Exactly one space after the colon is stripped, so token
// payloads keep their own leading whitespace. Returns io.EOF when the stream
// ends between events.
func (s *Reader) ReadEvent() (string, string, error) {
	var (
		eventType string
		data      bytes.Buffer
		haveData  bool
	)

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && haveData {
				return eventType, data.String(), nil
			}
			return "", "", err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line dispatches the event.
		if len(line) == 0 {
			if haveData {
				return eventType, data.String(), nil
			}
			eventType = ""
			continue
		}

		// Comment.
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "event":
			eventType = string(value)
		case "data":
			if haveData {
				data.WriteByte('\n')
			}
			data.Write(value)
			haveData = true
			if data.Len() > MaxEventSize {
				return "", "", ErrEventTooLarge
			}
		}
		// id and retry are not used by this backend.
	}
}
