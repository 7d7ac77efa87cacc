package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the saved conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		session, _, st, err := openSession(cmd.Context(), cfg, "")
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		defer st.Close()

		msgs := session.Transcript().Last(historyLimit)
		if len(msgs) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		cyan := color.New(color.FgCyan)
		green := color.New(color.FgGreen)
		dim := color.New(color.FgHiBlack)

		for i, m := range msgs {
			dim.Printf("[%s] ", m.Time)
			if m.Sender == history.SenderUser {
				green.Printf("%s %s → ", m.Avatar, m.Sender)
			} else {
				cyan.Printf("%s %s → ", m.Avatar, m.Sender)
			}
			fmt.Println(strings.TrimSpace(m.Text))
			if i < len(msgs)-1 {
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of messages to show (0 for all)")
}
