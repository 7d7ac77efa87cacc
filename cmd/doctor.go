package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/ai"
	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/store"
)

var doctorGenerate bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system health and configuration",
	Long: `Run a health check on your livedit setup.
Verifies Ollama connectivity, model availability, the config directory
and the session store. With --generate it also runs a short test
generation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 livedit doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " · %s", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		cfg, err := config.Load()
		check("Configuration loads", func() (string, error) {
			if err != nil {
				return "", err
			}
			return cfg.Model + " @ " + cfg.Endpoint, nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return nil
		}

		client := ai.NewClient(cfg)
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		reachable := false
		check("Ollama server reachable", func() (string, error) {
			models, err := client.ListModels(ctx)
			if err != nil {
				return "", fmt.Errorf("could not connect to %s (run: ollama serve)", client.Endpoint())
			}
			reachable = true
			return fmt.Sprintf("%d models installed", len(models)), nil
		})

		check(fmt.Sprintf("Model available (%s)", cfg.Model), func() (string, error) {
			if !reachable {
				return "", fmt.Errorf("warn:skipped, Ollama is not reachable")
			}
			ok, err := client.HasModel(ctx, cfg.Model)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", fmt.Errorf("model not found, run: ollama pull %s", cfg.Model)
			}
			return "ready", nil
		})

		check("Config directory", func() (string, error) {
			dir := config.Dir()
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("warn:~/.livedit not found, it will be created on first use")
			}
			if !info.IsDir() {
				return "", fmt.Errorf("~/.livedit exists but is not a directory")
			}
			return dir, nil
		})

		check("Session store", func() (string, error) {
			st, err := store.Open(cfg)
			if err != nil {
				return "", err
			}
			defer st.Close()
			if _, err := st.Get(ctx, store.KeyChatLog); err != nil && !errors.Is(err, store.ErrNotFound) {
				return "", err
			}
			return storeDescription(cfg), nil
		})

		if doctorGenerate {
			check("Test generation", func() (string, error) {
				if !reachable {
					return "", fmt.Errorf("warn:skipped, Ollama is not reachable")
				}
				genCtx, genCancel := context.WithTimeout(cmd.Context(), 60*time.Second)
				defer genCancel()
				start := time.Now()
				out, err := client.Generate(genCtx, ai.NewRequest(cfg, "Reply with the single word: ok"))
				if err != nil {
					return "", err
				}
				if out == "" {
					return "", fmt.Errorf("model returned an empty response")
				}
				return fmt.Sprintf("%dms", time.Since(start).Milliseconds()), nil
			})
		}

		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorGenerate, "generate", false, "Also run a short test generation")
}
