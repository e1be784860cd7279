// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"strings"
	"time"
)

type wireSession struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

type wireMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp wireTime `json:"timestamp"`
}

// wireTime accepts the timestamp spellings the backend has been seen to
// produce: RFC 3339, ISO 8601 without zone, unix seconds, or null. Anything
// else decodes as zero rather than failing the whole response.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		t.Time = time.Unix(int64(v), 0)
	case string:
		v = strings.TrimSpace(v)
		for _, layout := range wireTimeLayouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				t.Time = parsed
				return nil
			}
		}
	}
	return nil
}
