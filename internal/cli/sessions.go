// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/export"
	"github.com/jeranaias/sumer-tui/internal/model"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
	"github.com/jeranaias/sumer-tui/internal/util"
)

// titleWidth bounds titles in the session table.
const titleWidth = 40

func newSessionsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "List, create, inspect and delete chats",
	}
	cmd.AddCommand(
		newSessionsListCommand(e),
		newSessionsNewCommand(e),
		newSessionsDeleteCommand(e),
		newSessionsShowCommand(e),
		newSessionsExportCommand(e),
	)
	return cmd
}

func newSessionsListCommand(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your chats, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.client.ListChats(ctx)
			if err != nil {
				return fmt.Errorf("failed to list chats: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			printSessionTable(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printSessionTable(w io.Writer, list []model.ChatSession) {
	if len(list) == 0 {
		fmt.Fprintln(w, infoStyle.Render("No chats yet. Start one with 'sumer sessions new'."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tUPDATED")
	for i, cs := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i+1,
			cs.ID,
			util.TruncateWidth(util.SingleLine(cs.DisplayTitle()), titleWidth),
			formatAge(cs.LastActivity()),
		)
	}
	tw.Flush()
}

func newSessionsNewCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a chat and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.client.CreateChat(ctx)
			if err != nil {
				return fmt.Errorf("failed to create chat: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newSessionsDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|#>...",
		Aliases: []string{"rm"},
		Short:   "Delete chats",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.RefreshSessions(ctx); err != nil {
				return err
			}
			list := a.session.Snapshot().Sessions

			ids := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := resolveSession(list, arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			for _, id := range ids {
				if err := a.session.DeleteSession(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n",
					commandStyle.Render(styles.StatusIndicators.Success), id)
			}
			return nil
		},
	}
}

func newSessionsShowCommand(e *env) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id|#>",
		Short: "Print a chat's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.RefreshSessions(ctx); err != nil {
				return err
			}
			snap := a.session.Snapshot()
			id, err := resolveSession(snap.Sessions, args[0])
			if err != nil {
				return err
			}
			if err := a.session.SelectSession(ctx, id); err != nil {
				return err
			}

			var md *styles.Markdown
			if !raw && e.cfg.UI.RenderMarkdown && IsStdoutTTY() {
				md = styles.NewMarkdown(styles.NewTheme(e.cfg.UI.Theme).GlamourStyle())
			}
			snap = a.session.Snapshot()
			title := model.DefaultSessionTitle
			if cs, ok := snap.Selected(); ok {
				title = cs.DisplayTitle()
			}
			printTranscript(cmd.OutOrStdout(), title, snap.Messages, md, e.cfg.UI.ShowTimestamps)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Do not render markdown")
	return cmd
}

func newSessionsExportCommand(e *env) *cobra.Command {
	var (
		format string
		outDir string
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "export <id|#>",
		Short: "Save a chat as Markdown, JSON or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.IncludeTimestamps = e.cfg.UI.ShowTimestamps
			ex, err := export.For(format, opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.RefreshSessions(ctx); err != nil {
				return err
			}
			id, err := resolveSession(a.session.Snapshot().Sessions, args[0])
			if err != nil {
				return err
			}
			if err := a.session.SelectSession(ctx, id); err != nil {
				return err
			}
			snap := a.session.Snapshot()
			c := export.Chat{Messages: snap.Messages}
			c.Session, _ = snap.Selected()

			if stdout {
				data, err := ex.Export(c)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			path, err := export.ToFile(c, ex, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s exported to %s\n",
				commandStyle.Render(styles.StatusIndicators.Success), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory to write into")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write to stdout instead of a file")
	return cmd
}

func printTranscript(w io.Writer, title string, msgs []model.Message, md *styles.Markdown, timestamps bool) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(msgs) == 0 {
		fmt.Fprintln(w, infoStyle.Render("(no messages)"))
		return
	}
	width := TerminalWidth()
	for _, m := range msgs {
		fmt.Fprintln(w)
		label := userLabelStyle.Render("You")
		if m.IsAssistant() {
			label = assistantLabelStyle.Render("Assistant")
		}
		if timestamps && !m.Timestamp.IsZero() {
			label += " " + idStyle.Render(m.Timestamp.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(w, label)

		body := m.Content
		if md != nil && m.IsAssistant() {
			body = md.Render(body, width)
		}
		fmt.Fprintln(w, body)
	}
}

// resolveSession maps a full id, a unique id prefix or a 1-based list index
// to a session id.
func resolveSession(list []model.ChatSession, arg string) (string, error) {
	for _, cs := range list {
		if cs.ID == arg {
			return cs.ID, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(list) {
			return list[n-1].ID, nil
		}
		return "", fmt.Errorf("no chat #%d (you have %d)", n, len(list))
	}

	var match string
	for _, cs := range list {
		if strings.HasPrefix(cs.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one chat", arg)
			}
			match = cs.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no chat matches %q", arg)
	}
	return match, nil
}

// formatAge renders t relative to now for listings.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return util.FormatAge(t, time.Now())
}
