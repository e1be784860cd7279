// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the zerolog logger shared by every component.
//
// The TUI owns the terminal, so logs normally go to a file under the config
// directory. Commands that print to stdout log to stderr instead.
package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string
	Pretty bool
	// File, when set, receives the log instead of stderr.
	File string
}

var (
	mu      sync.RWMutex
	global  = zerolog.Nop()
	closers []io.Closer
)

// New creates a configured logger. The returned closer releases the log file,
// if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: cfg.File != ""}
	}

	logger := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return logger, closer, nil
}

// Init installs the global logger and bridges stdlib log into it.
// It may be called again; the previous log file is closed.
func Init(cfg Config) error {
	logger, closer, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	old := closers
	global = logger
	closers = []io.Closer{closer}
	mu.Unlock()

	for _, c := range old {
		c.Close()
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(logger.With().Str("source", "stdlog").Logger())
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// L returns the global logger. It is a no-op logger until Init runs.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLevel changes the level of the global logger in place.
func SetLevel(level string) {
	mu.Lock()
	global = global.Level(ParseLevel(level))
	mu.Unlock()
}

// Close releases the global log file.
func Close() {
	mu.Lock()
	old := closers
	closers = nil
	global = zerolog.Nop()
	mu.Unlock()
	for _, c := range old {
		c.Close()
	}
}

// ParseLevel maps a level name to zerolog. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether s names a level ParseLevel understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error", "off", "disabled", "":
		return true
	}
	return false
}
