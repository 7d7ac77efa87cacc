package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "livedit",
	Short: "A live-editing assistant backed by a local Ollama model",
	Long: `livedit streams answers from a local Ollama model straight into a
live editor. Output is sorted into Markdown, Code or HTML buffers as it
arrives, and the conversation is saved between sessions.

Examples:
  livedit ask write a debounce function in javascript
  livedit chat
  livedit serve --addr :3001
  livedit editor show code`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, format := "info", "text"
		if cfg, err := config.Load(); err == nil {
			level, format = cfg.Log.Level, cfg.Log.Format
		}
		if verbose {
			level = "debug"
		}
		logging.Setup(os.Stderr, level, format)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(editorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}
