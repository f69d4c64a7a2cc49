// ABOUTME: CLI command to run the HTTP API
// ABOUTME: Serves ingestion, retrieval, chat, and metrics until interrupted
package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/sitechat/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Routes:
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics
  POST /api/ingest     re-ingest the site
  GET  /api/scrape     refresh one page (?url=/projects)
  GET  /api/context    retrieved context block (?q=...&top_k=5)
  GET  /api/search     scored matches (?q=...&top_k=5)
  POST /api/chat       chat reply for {"messages": [...]}
  GET  /api/stats      index backend and vector count`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.Config.Server.Address
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.New(a.ServerDeps()).Start(ctx, addr)
}
