// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/logging"
	"github.com/jeranaias/sumer-tui/internal/server"
)

type devServerOptions struct {
	addr     string
	secret   string
	tokenTTL time.Duration
	prefix   string
	delay    time.Duration
}

func newDevServerCommand(e *env) *cobra.Command {
	opts := &devServerOptions{}

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory chat backend for local testing",
		Long: `Run an in-memory implementation of the chat backend. It issues anonymous
tokens, keeps sessions and history in memory, and streams back an echo of
each message word by word. Everything is lost when it stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Logs go to the terminal here; there is no TUI to protect.
			level := e.cfg.Log.Level
			if e.verbose {
				level = "debug"
			}
			if err := logging.Init(logging.Config{Level: level, Pretty: IsTTY()}); err != nil {
				return err
			}

			so := server.DefaultOptions()
			so.Addr = opts.addr
			so.Secret = []byte(opts.secret)
			so.TokenTTL = opts.tokenTTL
			so.Responder = server.EchoResponder{Prefix: opts.prefix, Delay: opts.delay}
			so.Logger = logging.Component("dev-server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on http://%s (Ctrl+C to stop)\n",
				welcomeStyle.Render("sumer dev-server"), opts.addr)
			if err := server.New(so).ListenAndServe(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "Listen address")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "Token signing key (random per run when empty)")
	cmd.Flags().DurationVar(&opts.tokenTTL, "token-ttl", server.DefaultTokenTTL, "Access token lifetime")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "You said: ", "Text put in front of every echoed reply")
	cmd.Flags().DurationVar(&opts.delay, "delay", 40*time.Millisecond, "Pause between streamed words")
	return cmd
}

