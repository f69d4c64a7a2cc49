// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Loads configuration, builds the app, and formats output
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/sitechat/internal/app"
	"github.com/harper/sitechat/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// loadApp reads .env and config, then wires every component
func loadApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := app.NewLogger(cfg.Log.Level)
	logger.SetOutput(cmd.ErrOrStderr())
	switch {
	case verbose:
		logger.SetLevel(log.DebugLevel)
	case quiet:
		logger.SetLevel(log.ErrorLevel)
	}

	return app.New(ctx, cfg, logger)
}

// wantJSON reports whether results should be printed as JSON
func wantJSON() bool {
	return outputFormat == "json"
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// oneLine flattens whitespace so previews fit in a table cell
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
