package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and streaming performance",
	Long: `Display a dashboard of your livedit usage: turn counts, completion
rate, time to first chunk, how answers ended and which editor buffers
they landed in.

Data is collected automatically and stored locally in ~/.livedit/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 livedit stats\n\n")

		if summary.TotalTurns == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Ask a few things and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Turns:       ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalTurns)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Completed:   ")
		if summary.CompletionRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.CompletionRate)
		}

		green.Fprintf(os.Stderr, "  First chunk: ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstChunkMs)
		green.Fprintf(os.Stderr, "  Total time:  ")
		fmt.Fprintf(os.Stderr, "%dms avg", summary.AvgTotalMs)
		dim.Fprintf(os.Stderr, "  (%.1f chunks)\n", summary.AvgChunks)

		printBreakdown(cyan, dim, "Outcome", summary.StatusBreakdown, summary.TotalTurns)
		printBreakdown(cyan, dim, "Editor Buffer", summary.ModeBreakdown, summary.TotalTurns)
		printBreakdown(cyan, dim, "Source", summary.SourceBreakdown, summary.TotalTurns)

		if len(summary.TopPrompts) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Prompts")
			for i, tp := range summary.TopPrompts {
				p := strings.ReplaceAll(tp.Prompt, "\n", " ")
				if len(p) > 50 {
					p = p[:50] + "..."
				}
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", p)
				dim.Fprintf(os.Stderr, "(%dx)\n", tp.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}

func printBreakdown(title, label *color.Color, name string, counts map[string]int, total int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(os.Stderr)
	title.Fprintf(os.Stderr, "  %s\n", name)
	for _, k := range keys {
		pct := float64(counts[k]) / float64(total) * 100
		bar := strings.Repeat("█", int(pct/5))
		label.Fprintf(os.Stderr, "  %-10s ", k)
		fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, counts[k], pct)
	}
}
