package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage livedit configuration",
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model-name>",
	Short: "Set the Ollama model (default: codellama:7b)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetModel(args[0]); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Printf("Model set to %s.\n", args[0])
		return nil
	},
}

var setEndpointCmd = &cobra.Command{
	Use:   "set-endpoint <url>",
	Short: "Set the Ollama endpoint (default: http://localhost:11434)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetEndpoint(args[0]); err != nil {
			return fmt.Errorf("failed to save endpoint: %w", err)
		}
		fmt.Printf("Endpoint set to %s.\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("Endpoint:    %s\n", cfg.Endpoint)
		fmt.Printf("Model:       %s\n", cfg.Model)
		fmt.Printf("Sampling:    temperature=%.2f top_p=%.2f max_tokens=%d\n", cfg.Temperature, cfg.TopP, cfg.MaxTokens)
		fmt.Printf("Pacing:      %s\n", cfg.PacingDelay)
		fmt.Printf("Server:      %s (static: %s)\n", cfg.Server.Addr, cfg.Server.StaticDir)
		fmt.Printf("Store:       %s\n", storeDescription(cfg))
		fmt.Printf("Log:         %s/%s\n", cfg.Log.Level, cfg.Log.Format)
		fmt.Printf("Config Dir:  %s\n", config.Dir())
		return nil
	},
}

func storeDescription(cfg *config.Config) string {
	if cfg.Store.Backend == "sqlite" {
		return "sqlite " + cfg.Store.Path
	}
	return "file " + config.Dir()
}

func init() {
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setEndpointCmd)
	configCmd.AddCommand(showCmd)
}
