// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sumer-tui/internal/auth"
	"github.com/jeranaias/sumer-tui/internal/config"
	"github.com/jeranaias/sumer-tui/internal/logging"
	uichat "github.com/jeranaias/sumer-tui/internal/ui/chat"
)

// runTUI opens the full-screen chat. The TUI owns the terminal, so logs go
// to the log file only, even with --verbose.
func runTUI(ctx context.Context, e *env) error {
	logFile, err := e.cfg.LogPath()
	if err != nil {
		return err
	}
	lc := e.cfg.Logging(logFile)
	if e.verbose {
		lc.Level = "debug"
	}
	if err := logging.Init(lc); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	log := logging.Component("tui")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := openApp(ctx, e.cfg)
	if err != nil {
		if errors.Is(err, auth.ErrAuthInit) {
			log.Error().Err(err).Msg("startup failed")
			fatal := uichat.NewFatal(err, e.cfg.UI.Theme, logFile)
			if _, runErr := tea.NewProgram(fatal, tea.WithAltScreen()).Run(); runErr != nil {
				return runErr
			}
		}
		return err
	}
	defer a.Close()

	bootErr := a.session.Bootstrap(ctx)
	if bootErr != nil {
		log.Warn().Err(bootErr).Msg("bootstrap failed; starting with no chat selected")
	}

	m := uichat.New(ctx, a.session, uichat.Options{
		Theme:          e.cfg.UI.Theme,
		RenderMarkdown: e.cfg.UI.RenderMarkdown,
		ShowTimestamps: e.cfg.UI.ShowTimestamps,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if bootErr != nil {
		go p.Send(uichat.OpDoneMsg{Op: "bootstrap", Err: bootErr})
	}
	e.watchConfig(ctx, p)

	_, err = p.Run()
	a.session.Cancel()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// watchConfig forwards config file edits to the TUI. Flag overrides from
// this run stay in force over the reloaded file.
func (e *env) watchConfig(ctx context.Context, p *tea.Program) {
	path := e.cfgPath
	if path == "" {
		p2, err := config.PathTOML()
		if err != nil {
			return
		}
		path = p2
	}

	if err := config.EnsureDir(); err != nil {
		return
	}
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err == nil && e.logLevel != "" {
			cfg.Log.Level = e.logLevel
		}
		p.Send(uichat.ConfigReloadedMsg{Config: cfg, Err: err})
	})
	if err != nil {
		log := logging.Component("tui")
		log.Warn().Err(err).Str("path", path).Msg("config watch unavailable")
	}
}
