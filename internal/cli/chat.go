// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/config"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of liner the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// historyLiner wraps liner with input history persisted under the config
// directory.
type historyLiner struct {
	*liner.State
	historyFile string
}

func newHistoryLiner() *historyLiner {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &historyLiner{State: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(h.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return h
}

// Close saves history with 0600 permissions and restores the terminal.
func (h *historyLiner) Close() error {
	if err := os.MkdirAll(filepath.Dir(h.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(h.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			h.WriteHistory(f)
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCommand(e *env) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with history and slash commands",
		Long: `Chat in plain line mode. Replies stream as they arrive; Ctrl+C cancels a
reply in progress and Ctrl+D (or /quit) leaves.

Type /help for the list of slash commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Bootstrap(ctx); err != nil {
				return err
			}

			in := newHistoryLiner()
			defer in.Close()

			r := &repl{
				session: a.session,
				in:      in,
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
				width:   TerminalWidth(),
			}
			if markdown || (e.cfg.UI.RenderMarkdown && IsStdoutTTY()) {
				r.md = styles.NewMarkdown(styles.NewTheme(e.cfg.UI.Theme).GlamourStyle())
			}
			return r.run(ctx)
		},
	}
	cmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "Re-render each finished reply as markdown")
	return cmd
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	session *chat.Session
	in      lineReader
	out     io.Writer
	errOut  io.Writer
	md      *styles.Markdown
	width   int
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, welcomeStyle.Render("sumer chat")+" "+infoStyle.Render("(/help for commands, Ctrl+D to quit)"))
	r.printCurrent()

	for {
		input, err := r.in.Prompt("sumer> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or closed stdin.
			fmt.Fprintln(r.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := r.command(ctx, input)
			if err != nil {
				r.printErr(err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		x, err := r.session.Send(ctx, input)
		r.await(x, err)
	}
}

// await prints the reply of x, or the error that kept it from starting.
func (r *repl) await(x *chat.Exchange, err error) {
	if err != nil {
		r.printErr(err)
		return
	}
	restore := cancelOnInterrupt(r.session, r.errOut)
	err = printReply(r.session, x, r.out, r.md, r.width)
	restore()

	switch {
	case err == nil:
	case errors.Is(err, chat.ErrCanceled):
	default:
		r.printErr(err)
		if r.session.Snapshot().CanRetry {
			fmt.Fprintln(r.errOut, hintStyle.Render("  /retry to send it again"))
		}
	}
}

func (r *repl) printErr(err error) {
	msg := chat.Describe(err)
	fmt.Fprintf(r.errOut, "%s %s\n", errorStyle.Render("[Error]"), msg)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new              start a new chat
  /list             list chats
  /switch <#|id>    open another chat
  /delete [#|id]    delete a chat (default: the current one)
  /retry            re-send the last failed message
  /history          print the current chat again
  /reload           refetch the current chat from the server
  /quit             leave`

// command runs a slash command. It returns true when the REPL should exit.
func (r *repl) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/new":
		if _, err := r.session.CreateSession(ctx); err != nil {
			return false, err
		}
		r.printCurrent()

	case "/list", "/ls", "/sessions":
		if err := r.session.RefreshSessions(ctx); err != nil {
			return false, err
		}
		r.printList()

	case "/switch", "/open":
		if len(args) != 1 {
			return false, errors.New("usage: /switch <#|id>")
		}
		id, err := resolveSession(r.session.Snapshot().Sessions, args[0])
		if err != nil {
			return false, err
		}
		if err := r.session.SelectSession(ctx, id); err != nil {
			return false, err
		}
		r.printCurrent()

	case "/delete", "/rm":
		id := r.session.SelectedID()
		if len(args) == 1 {
			var err error
			if id, err = resolveSession(r.session.Snapshot().Sessions, args[0]); err != nil {
				return false, err
			}
		}
		if id == "" {
			return false, chat.ErrNoSession
		}
		if err := r.session.DeleteSession(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s deleted %s\n", commandStyle.Render(styles.StatusIndicators.Success), id)
		r.printCurrent()

	case "/retry":
		x, err := r.session.Retry(ctx)
		r.await(x, err)

	case "/history":
		r.printCurrent()

	case "/reload":
		if err := r.session.Reload(ctx); err != nil {
			return false, err
		}
		r.printCurrent()

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (r *repl) printCurrent() {
	snap := r.session.Snapshot()
	cs, ok := snap.Selected()
	if !ok {
		fmt.Fprintln(r.out, infoStyle.Render("No chat selected. /new starts one."))
		return
	}
	printTranscript(r.out, cs.DisplayTitle(), snap.Messages, r.md, false)
	fmt.Fprintln(r.out)
}

func (r *repl) printList() {
	snap := r.session.Snapshot()
	if len(snap.Sessions) == 0 {
		fmt.Fprintln(r.out, infoStyle.Render("No chats yet."))
		return
	}
	for i, cs := range snap.Sessions {
		marker := "  "
		title := util.TruncateWidth(util.SingleLine(cs.DisplayTitle()), titleWidth)
		if cs.ID == snap.SelectedID {
			marker = "> "
			title = selectedStyle.Render(title)
		}
		fmt.Fprintf(r.out, "%s%2d. %s %s\n", marker, i+1, title, idStyle.Render(cs.ID))
	}
}
