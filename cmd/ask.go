package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/status"
	"github.com/arin/livedit/internal/ui"
)

const maxStdinBytes = 4000

var (
	askNoSave  bool
	askNoSpin  bool
	askShowBuf bool
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Stream a single answer into the editor",
	Long: `Send one prompt and stream the answer to the terminal. The answer is
also written to the matching editor buffer and added to the saved
conversation. Press Ctrl-C to cancel.

Piped input is appended to the prompt:
  cat index.html | livedit ask add a dark mode toggle to this page`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		prompt := strings.Join(args, " ")
		if piped := readStdin(); piped != "" {
			prompt += "\n\n" + piped
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		session, _, st, err := openSession(ctx, cfg, "ask")
		if err != nil {
			return err
		}
		defer st.Close()

		var sp *ui.Spinner
		if !askNoSpin {
			sp = ui.NewSpinner(status.Thinking.Label())
		}
		printer := ui.NewPrinter(os.Stdout, "", sp)

		fmt.Fprintln(os.Stdout)
		sendErr := session.Send(ctx, prompt, printer)

		if !askNoSave {
			if err := session.Save(context.WithoutCancel(ctx)); err != nil {
				color.New(color.FgYellow).Fprintf(os.Stderr, "  ⚠ could not save session: %v\n", err)
			}
		}
		if sendErr != nil {
			return sendErr
		}

		if askShowBuf {
			mode := session.Editor().Active()
			color.New(color.FgHiBlack).Fprintf(os.Stderr, "  → written to the %s buffer\n\n", mode)
		}
		if printer.Status() == status.Error {
			return fmt.Errorf("generation failed")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "Do not persist the conversation and editor")
	askCmd.Flags().BoolVar(&askNoSpin, "no-spinner", false, "Disable the status spinner")
	askCmd.Flags().BoolVar(&askShowBuf, "show-buffer", false, "Report which editor buffer received the answer")
}

// readStdin reads piped input if available.
func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	// Only read when data is piped in, not from a terminal.
	if (info.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(data))
	return truncate(s, maxStdinBytes)
}

// truncate cuts s to at most n bytes on a rune boundary and marks the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n... (truncated)"
}
