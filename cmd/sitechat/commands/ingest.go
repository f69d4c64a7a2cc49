// ABOUTME: CLI command to ingest site pages into the vector index
// ABOUTME: Runs a full re-ingest or refreshes individual pages
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/harper/sitechat/internal/config"
	"github.com/harper/sitechat/internal/models"
	"github.com/spf13/cobra"
)

var ingestPages bool

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [locator...]",
		Short: "Scrape, chunk, embed, and index site pages",
		Long: `Scrape, chunk, embed, and index site pages.

Without arguments every configured source is ingested after the index
is cleared. Locators given as arguments replace the configured list.
With --page each locator is refreshed on its own and the rest of the
index is left alone.

Examples:
  sitechat ingest
  sitechat ingest / /about /projects
  sitechat ingest --page /projects
  sitechat ingest --format json`,
		RunE: runIngest,
	}

	cmd.Flags().BoolVar(&ingestPages, "page", false, "Refresh the given pages without clearing the index")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestPages && len(args) == 0 {
		return fmt.Errorf("--page needs at least one locator")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Index.BackendName() == config.BackendMemory {
		a.Logger.Warn("index backend is in-process; vectors are discarded when this command exits",
			"hint", "set index.backend to charm, pgvector, or redis")
	}

	var report *models.IngestReport
	if ingestPages {
		report = refreshPages(ctx, a.Ingestor, args)
	} else if len(args) > 0 {
		report, err = a.Ingestor.RunSources(ctx, args)
	} else {
		report, err = a.Ingestor.Run(ctx)
	}
	if err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	if err := printReport(cmd, report); err != nil {
		return err
	}
	if report.Count(models.SourceFailed) == len(report.Sources) && len(report.Sources) > 0 {
		return fmt.Errorf("every source failed")
	}
	return nil
}

type pageIngester interface {
	IngestPage(ctx context.Context, locator string) (models.SourceOutcome, error)
}

// refreshPages ingests each locator independently and collects a report
func refreshPages(ctx context.Context, in pageIngester, locators []string) *models.IngestReport {
	report := &models.IngestReport{}
	for _, locator := range locators {
		outcome, _ := in.IngestPage(ctx, locator)
		report.Record(outcome)
	}
	return report
}

func printReport(cmd *cobra.Command, report *models.IngestReport) error {
	out := cmd.OutOrStdout()
	if wantJSON() {
		return writeJSON(out, report)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SOURCE\tSTATUS\tCHUNKS\tDETAIL\n")
	fmt.Fprintf(w, "------\t------\t------\t------\n")
	for _, s := range report.Sources {
		detail := s.URL
		switch s.Status {
		case models.SourceSkipped:
			detail = s.Reason
		case models.SourceFailed:
			detail = s.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Locator, s.Status, s.Chunks, truncate(oneLine(detail), 70))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nIndexed %d chunk(s): %d succeeded, %d skipped, %d failed\n",
			report.TotalChunks,
			report.Count(models.SourceSucceeded),
			report.Count(models.SourceSkipped),
			report.Count(models.SourceFailed))
	}
	return nil
}
