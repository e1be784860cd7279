// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// maxPipedInput bounds a question read from stdin.
const maxPipedInput = 1 << 20

type askOptions struct {
	session  string
	newChat  bool
	markdown bool
	raw      bool
}

func newAskCommand(e *env) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the reply to stdout",
		Long: `Send a single message and print the reply as it streams.

The message goes to the most recent chat unless --session or --new is given.
With no arguments the question is read from stdin.`,
		Example: `  sumer ask "explain server-sent events"
  sumer ask --new "start a fresh topic"
  git diff | sumer ask --markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := questionText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAsk(cmd, e, opts, text)
		},
	}

	cmd.Flags().StringVarP(&opts.session, "session", "s", "", "Chat id (or list index) to send to")
	cmd.Flags().BoolVarP(&opts.newChat, "new", "n", false, "Start a new chat")
	cmd.Flags().BoolVarP(&opts.markdown, "markdown", "m", false, "Render the reply as markdown once complete")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Never render markdown")
	cmd.MarkFlagsMutuallyExclusive("session", "new")
	cmd.MarkFlagsMutuallyExclusive("markdown", "raw")
	return cmd
}

// questionText joins args, or reads stdin when there are none.
func questionText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		return "", errors.New("no question given (pass it as an argument or pipe it on stdin)")
	}
	data, err := io.ReadAll(io.LimitReader(in, maxPipedInput))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func runAsk(cmd *cobra.Command, e *env, opts *askOptions, text string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case opts.newChat:
		if _, err := a.session.CreateSession(ctx); err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
	case opts.session != "":
		if err := a.session.RefreshSessions(ctx); err != nil {
			return err
		}
		id, err := resolveSession(a.session.Snapshot().Sessions, opts.session)
		if err != nil {
			return err
		}
		if err := a.session.SelectSession(ctx, id); err != nil {
			return err
		}
	default:
		if err := a.session.Bootstrap(ctx); err != nil {
			return err
		}
	}

	var md *styles.Markdown
	if opts.markdown || (!opts.raw && e.cfg.UI.RenderMarkdown && IsStdoutTTY()) {
		md = styles.NewMarkdown(styles.NewTheme(e.cfg.UI.Theme).GlamourStyle())
	}

	x, err := a.session.Send(ctx, text)
	if err != nil {
		return err
	}
	restore := cancelOnInterrupt(a.session, cmd.ErrOrStderr())
	defer restore()

	return printReply(a.session, x, cmd.OutOrStdout(), md, TerminalWidth())
}
