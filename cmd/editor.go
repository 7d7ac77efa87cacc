package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/editor"
	"github.com/arin/livedit/internal/preview"
)

var editorWidth int

var editorCmd = &cobra.Command{
	Use:   "editor",
	Short: "Inspect the saved editor buffers",
}

var editorShowCmd = &cobra.Command{
	Use:   "show [markdown|code|html]",
	Short: "Preview a saved buffer (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		session, _, st, err := openSession(cmd.Context(), cfg, "")
		if err != nil {
			return err
		}
		defer st.Close()

		mode := session.Editor().Active()
		if len(args) == 1 {
			if mode, err = editor.ParseMode(args[0]); err != nil {
				return err
			}
		}

		out, err := preview.New(editorWidth, !color.NoColor).Render(mode, session.Editor().Get(mode))
		if err != nil {
			return err
		}
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "  ── %s ──\n", mode)
		fmt.Fprintln(os.Stdout, out)
		return nil
	},
}

var editorToolsCmd = &cobra.Command{
	Use:   "tools [prefix]",
	Short: "List the @tools the editor offers",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		printTools(prefix)
	},
}

func printTools(prefix string) {
	cyan := color.New(color.FgCyan)
	dim := color.New(color.FgHiBlack)

	tools := editor.Suggest("@" + strings.TrimPrefix(prefix, "@"))
	if len(tools) == 0 {
		dim.Fprintf(os.Stderr, "  no tools match %q\n\n", prefix)
		return
	}
	for _, t := range tools {
		cyan.Fprintf(os.Stderr, "  %-12s", t.Label)
		dim.Fprintf(os.Stderr, " %s\n", t.Detail)
	}
	fmt.Fprintln(os.Stderr)
}

func init() {
	editorShowCmd.Flags().IntVarP(&editorWidth, "width", "w", 80, "Wrap Markdown at this many columns")
	editorCmd.AddCommand(editorShowCmd)
	editorCmd.AddCommand(editorToolsCmd)
}
