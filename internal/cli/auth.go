// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/sumer-tui/internal/api"
	"github.com/jeranaias/sumer-tui/internal/auth"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
	"github.com/jeranaias/sumer-tui/internal/util"
)

func newAuthCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the anonymous identity",
		Long: `sumer signs in anonymously: the backend issues a user id and an access
token on first use, and both are kept in the credential store.`,
	}
	cmd.AddCommand(
		newAuthInitCommand(e),
		newAuthStatusCommand(e),
		newAuthLogoutCommand(e),
	)
	return cmd
}

func newAuthInitCommand(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Obtain an identity if none is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, kv, err := openCredentials(e.cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			if force {
				if err := creds.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("%w: %v", auth.ErrAuthInit, err)
				}
			} else if err := creds.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s signed in as %s\n",
				commandStyle.Render(styles.StatusIndicators.Success), creds.UserID())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace the stored identity with a new one")
	return cmd
}

func newAuthStatusCommand(e *env) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, kv, err := openCredentials(e.cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			out := cmd.OutOrStdout()
			if !creds.IsAuthenticated() {
				fmt.Fprintln(out, infoStyle.Render("Not signed in. Run 'sumer auth init' or just start chatting."))
				return nil
			}
			printIdentity(out, creds, time.Now())

			if check {
				client := api.NewClient(e.cfg.API.BaseURL, creds).WithTimeout(e.cfg.RequestTimeout())
				uid, err := client.WhoAmI(cmd.Context())
				if err != nil {
					return fmt.Errorf("server check failed: %w", err)
				}
				fmt.Fprintf(out, "%-10s %s (server confirms %s)\n", "Server:",
					commandStyle.Render(styles.StatusIndicators.Success), uid)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Verify the token with the server")
	return cmd
}

func printIdentity(w io.Writer, creds *auth.Store, now time.Time) {
	fmt.Fprintf(w, "%-10s %s\n", "User:", selectedStyle.Render(creds.UserID()))
	fmt.Fprintf(w, "%-10s %s\n", "Token:", idStyle.Render(util.Fingerprint(creds.Token())))

	claims, err := creds.Claims()
	switch {
	case errors.Is(err, auth.ErrOpaqueToken):
		fmt.Fprintf(w, "%-10s %s\n", "Expires:", infoStyle.Render("unknown (opaque token)"))
	case err != nil:
		fmt.Fprintf(w, "%-10s %v\n", "Expires:", err)
	default:
		if !claims.IssuedAt.IsZero() {
			fmt.Fprintf(w, "%-10s %s\n", "Issued:", claims.IssuedAt.Local().Format(time.RFC1123))
		}
		switch {
		case claims.ExpiresAt.IsZero():
			fmt.Fprintf(w, "%-10s %s\n", "Expires:", "never")
		case claims.Expired(now):
			fmt.Fprintf(w, "%-10s %s %s\n", "Expires:",
				warningStyle.Render(styles.StatusIndicators.Warning),
				"expired; a new identity is obtained on next use")
		default:
			fmt.Fprintf(w, "%-10s %s (in %s)\n", "Expires:",
				claims.ExpiresAt.Local().Format(time.RFC1123),
				claims.ExpiresAt.Sub(now).Round(time.Minute))
		}
	}
}

func newAuthLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored identity",
		Long:  "Forget the stored identity. Chats belong to it and will no longer be listed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, kv, err := openCredentials(e.cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			if err := creds.Logout(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s signed out\n", commandStyle.Render(styles.StatusIndicators.Success))
			return nil
		},
	}
}
