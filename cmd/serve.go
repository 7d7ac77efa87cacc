package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/server"
)

var (
	serveAddr   string
	serveStatic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web editor server",
	Long: `Serve the web front end, the chat API and a pass-through to Ollama.

Requests under /api/ollama are forwarded to the configured Ollama endpoint
with the prefix removed. Anything that is not an API route is served from
the static directory, falling back to index.html.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if serveStatic != "" {
			cfg.Server.StaticDir = serveStatic
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session, client, st, err := openSession(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer st.Close()

		srv, err := server.New(cfg, session, st, client)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		cyan.Fprintf(os.Stderr, "\n  livedit serve on %s\n", cfg.Server.Addr)
		dim.Fprintf(os.Stderr, "  Make sure Ollama is running at %s\n\n", cfg.Endpoint)

		if err := srv.Start(ctx); err != nil {
			return err
		}
		if err := session.Save(cmd.Context()); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :3001)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "Directory holding the front end build")
}
