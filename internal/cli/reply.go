// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jeranaias/sumer-tui/internal/chat"
	"github.com/jeranaias/sumer-tui/internal/ui/styles"
)

// printReply writes the reply of x to w as it streams. When md is non-nil
// the reply is buffered and printed once, rendered as markdown.
func printReply(s *chat.Session, x *chat.Exchange, w io.Writer, md *styles.Markdown, width int) error {
	printed := 0
	flush := func() {
		if md != nil {
			return
		}
		content := x.Content()
		if len(content) > printed {
			io.WriteString(w, content[printed:])
			printed = len(content)
		}
	}

	for {
		select {
		case <-s.Changes():
			flush()
		case <-x.Done():
			flush()
			if md != nil && x.Err() == nil {
				fmt.Fprintln(w, md.Render(x.Content(), width))
			} else if printed > 0 {
				fmt.Fprintln(w)
			}
			return x.Err()
		}
	}
}

// cancelOnInterrupt cancels the in-flight reply on Ctrl+C instead of killing
// the process. Call the returned func to restore default handling.
func cancelOnInterrupt(s *chat.Session, errOut io.Writer) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if s.Cancel() {
					fmt.Fprintln(errOut, "\n"+warningStyle.Render("[Cancelled]"))
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		cancel()
	}
}
