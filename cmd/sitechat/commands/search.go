// ABOUTME: CLI command to search the site index
// ABOUTME: Prints scored matches with their page and chunk position
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchLimit int

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed site content",
		Long: `Search indexed site content by semantic similarity.

The query is embedded with the configured provider and compared
against every stored chunk.

Examples:
  sitechat search "distributed systems"
  sitechat search --limit 10 "what languages do you use"
  sitechat search --format json "open source"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	a, err := loadApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	query := args[0]
	results, err := a.Hydrator.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("searching index: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No matches found for query: %s\n", query)
		}
		return nil
	}

	if wantJSON() {
		return writeJSON(out, results)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tURL\tCHUNK\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t---\t-----\t-------\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%d\t%s\n", r.Score, truncate(r.URL, 40), r.ChunkIndex, truncate(oneLine(r.Text), 60))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nFound %d result(s)\n", len(results))
	}
	return nil
}
