// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/config"
	"github.com/jeranaias/sumer-tui/internal/logging"
)

// Version information (set at build time via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// env is the state shared by every command: the loaded config and the
// global flags layered on top of it.
type env struct {
	cfg     *config.Config
	cfgPath string

	apiURL   string
	logLevel string
	verbose  bool
}

// NewRootCommand builds the sumer command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "sumer",
		Short: "Terminal client for the sumer chat service",
		Long: `sumer talks to a session-based chat backend and streams replies as they
are generated.

Run without arguments in a terminal to open the full-screen chat. Every
feature is also available as a plain command for scripts and pipes.

Quick Start:
  sumer                          # Open the chat TUI
  sumer ask "what is SSE?"       # One question, reply on stdout
  sumer chat                     # Line-mode chat
  sumer sessions list            # Show your conversations
  sumer dev-server               # Run a local backend for testing`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !IsTTY() || !IsStdoutTTY() {
				return cmd.Help()
			}
			return runTUI(cmd.Context(), e)
		},
	}

	root.PersistentFlags().StringVar(&e.apiURL, "api-url", "", "Chat backend URL (overrides config and SUMER_API_URL)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Log to stderr at debug level")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCommand(e),
		newAskCommand(e),
		newSessionsCommand(e),
		newAuthCommand(e),
		newConfigCommand(e),
		newDevServerCommand(e),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads the config, applies flag overrides and starts logging.
func (e *env) load() error {
	applyColorProfile()

	cfg, path, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if e.apiURL != "" {
		cfg.API.BaseURL = e.apiURL
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	e.cfg, e.cfgPath = cfg, path

	logFile, err := cfg.LogPath()
	if err != nil {
		return err
	}
	lc := cfg.Logging(logFile)
	if e.verbose {
		lc = logging.Config{Level: "debug", Pretty: true}
	}
	if err := logging.Init(lc); err != nil {
		// The log file is optional; keep going on stderr.
		_ = logging.Init(logging.Config{Level: "warn"})
	}
	return nil
}

// printError writes err the way every command reports failure, with a
// friendlier hint when one is known.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(w, hintStyle.Render("  "+hint))
	}
}
