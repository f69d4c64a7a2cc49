// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to search and refresh the site index via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/sitechat/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var mcpReadOnly bool

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs sitechat as an MCP (Model Context Protocol) server, enabling
LLM agents to retrieve site context and refresh the index via stdio.

Tools: retrieve_context, search_site, ingest_site, ingest_page.
With --read-only the ingestion tools are not registered.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  sitechat mcp

  # Configure in the client's config file:
  # {
  #   "mcpServers": {
  #     "sitechat": {
  #       "command": "sitechat",
  #       "args": ["mcp", "--quiet"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().BoolVar(&mcpReadOnly, "read-only", false, "Only expose retrieval tools")

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("sitechat", versionInfo.Version)

	var ingester mcp.Ingester
	if !mcpReadOnly {
		ingester = a.Ingestor
	}
	handlers := mcp.RegisterTools(server, a.Hydrator, ingester, a.Logger.WithPrefix("mcp"))

	a.Logger.Info("MCP server starting on stdio", "backend", a.Index.BackendName(), "read_only", mcpReadOnly)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received, gracefully shutting down")
		handlers.Shutdown()
		a.Logger.Info("shutdown complete")

	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
