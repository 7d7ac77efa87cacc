package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/chat"
	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/editor"
	"github.com/arin/livedit/internal/preview"
	"github.com/arin/livedit/internal/status"
	"github.com/arin/livedit/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive live-editing session",
	Long: `Start a conversational session. Every answer streams into the editor
buffer that matches its content, and the previous conversation is
restored from disk.

Ctrl-C cancels the answer in flight; at the prompt it ends the session.

Commands:
  /editor [markdown|code|html]  switch to and preview a buffer (default: the active one)
  /tools [prefix]               list editor @tools
  /save                         save the conversation and editor
  /exit                         save and quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		ctx := cmd.Context()
		session, _, st, err := openSession(ctx, cfg, "chat")
		if err != nil {
			return err
		}
		defer st.Close()

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)

		fmt.Fprintln(os.Stderr)
		cyan.Fprintln(os.Stderr, "  livedit chat")
		dim.Fprintf(os.Stderr, "  %s · %d messages restored\n", cfg.Model, session.Transcript().Len())
		dim.Fprintf(os.Stderr, "  Type /exit to quit, Ctrl-C to cancel an answer.\n\n")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		save := func() {
			if err := session.Save(context.WithoutCancel(ctx)); err != nil {
				yellow.Fprintf(os.Stderr, "  ⚠ could not save: %v\n", err)
				return
			}
			dim.Fprintln(os.Stderr, "  saved.")
		}

		for {
			green.Fprint(os.Stderr, "  you → ")

			var input string
			select {
			case <-sigCh:
				fmt.Fprintln(os.Stderr)
				save()
				return nil
			case line, ok := <-lines:
				if !ok {
					fmt.Fprintln(os.Stderr)
					save()
					return nil
				}
				input = strings.TrimSpace(line)
			}
			if input == "" {
				continue
			}

			if strings.HasPrefix(input, "/") {
				if quit := runChatCommand(session, input, save); quit {
					dim.Fprintf(os.Stderr, "\n  Later! 👋\n\n")
					return nil
				}
				continue
			}

			cyan.Fprint(os.Stderr, "  ai → ")
			printer := ui.NewPrinter(os.Stdout, "", ui.NewSpinner(status.Thinking.Label()))
			done := make(chan error, 1)
			go func() { done <- session.Send(ctx, input, printer) }()

			var sendErr error
			select {
			case <-sigCh:
				sendErr = cancelTurn(session, done)
			case sendErr = <-done:
			}
			if sendErr != nil && !errors.Is(sendErr, chat.ErrEmptyPrompt) {
				color.New(color.FgRed).Fprintf(os.Stderr, "  %v\n\n", sendErr)
			}
		}
	},
}

// cancelTurn stops the turn whose result arrives on done. An interrupt
// can land before Send has installed its handle, so Cancel is retried
// until it takes or the turn ends on its own.
func cancelTurn(session *chat.Session, done <-chan error) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for !session.Cancel() {
		select {
		case err := <-done:
			return err
		case <-tick.C:
		}
	}
	return <-done
}

// runChatCommand handles a slash command and reports whether to quit.
func runChatCommand(session *chat.Session, input string, save func()) bool {
	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	dim := color.New(color.FgHiBlack)

	switch fields[0] {
	case "/exit", "/quit":
		save()
		return true
	case "/save":
		save()
	case "/editor":
		mode := session.Editor().Active()
		if arg != "" {
			m, err := editor.ParseMode(arg)
			if err != nil {
				dim.Fprintf(os.Stderr, "  %v\n\n", err)
				return false
			}
			mode = m
			session.Editor().Select(mode)
		}
		out, err := preview.New(80, !color.NoColor).Render(mode, session.Editor().Get(mode))
		if err != nil {
			dim.Fprintf(os.Stderr, "  %v\n\n", err)
			return false
		}
		dim.Fprintf(os.Stderr, "  ── %s ──\n", mode)
		fmt.Fprintln(os.Stdout, out)
	case "/tools":
		printTools(arg)
	default:
		dim.Fprintf(os.Stderr, "  unknown command %s (try /editor, /tools, /save, /exit)\n\n", fields[0])
	}
	return false
}
