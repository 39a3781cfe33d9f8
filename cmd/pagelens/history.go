package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/database"
	"github.com/pagelens/pagelens/internal/model"
	"github.com/pagelens/pagelens/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Browse archived crawl reports",
		Long: `History browses the crawl archive populated by previous scans.

Without arguments it lists every audited target. With a domain it shows
the most recent report for that domain; --list shows all archived runs
instead, and --id renders one specific run.

Examples:
  # List all audited targets
  pagelens history

  # Show the latest report for a domain
  pagelens history example.com

  # List all archived runs for a domain
  pagelens history --list example.com

  # Render one archived run as JSON
  pagelens history --id 42 --json

  # Show the archived snapshot of a single page
  pagelens history --url https://example.com/pricing example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List archived runs for the domain instead of rendering the latest report")
	cmd.Flags().Int64("id", 0, "Render the archived report with this ID")
	cmd.Flags().StringP("url", "u", "", "Show the archived snapshot of one page of the domain")
	cmd.Flags().BoolP("json", "j", false, "Render the report as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Render the report as Markdown")
	cmd.Flags().String("db-dir", "", "Crawl archive directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("no crawl archive found in %s (run a scan first): %w", dbDir, err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reportID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	if reportID > 0 {
		return renderReportByID(ctx, cmd, db, reportID)
	}

	pageURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	if pageURL != "" {
		if len(args) == 0 {
			return fmt.Errorf("--url requires the audited domain as an argument")
		}
		return showPageSnapshot(ctx, cmd, db, pageURL, args[0])
	}

	if len(args) == 0 {
		return listTargets(ctx, cmd, db)
	}

	target := args[0]

	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listRuns {
		return listHistory(ctx, cmd, db, target)
	}

	return renderLatestReport(ctx, cmd, db, target)
}

// listTargets prints every audited target in the archive.
func listTargets(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "The crawl archive is empty. Run `pagelens scan <domain>` first.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Audited targets (%d):\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", target)
	}
	return nil
}

// listHistory prints the archived runs for one target as a table.
func listHistory(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, target string) error {
	history, err := db.GetHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", target, err)
	}

	if len(history) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No archived runs for %s.\n", target)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFINDINGS")
	for _, meta := range history {
		fmt.Fprintf(tw, "%d\t%s\t%s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatSeveritySummary(meta.SeveritySummary),
		)
	}
	return tw.Flush()
}

// formatSeveritySummary renders a severity summary compactly, e.g.
// "2 critical, 1 high". An empty summary renders as "none".
func formatSeveritySummary(summary map[string]int) string {
	// Fixed order keeps the table stable across runs.
	order := []string{"critical", "high", "medium", "low", "info"}

	var parts []string
	for _, severity := range order {
		if count := summary[severity]; count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count, severity))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// showPageSnapshot prints the archived snapshot of one page. The archive
// keeps the latest snapshot per URL and target, refreshed on every audit.
func showPageSnapshot(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, pageURL, target string) error {
	page, err := db.GetPageRecord(ctx, pageURL, target)
	if err != nil {
		return fmt.Errorf("failed to load page snapshot: %w", err)
	}
	if page == nil {
		return fmt.Errorf("no archived snapshot of %s for %s", pageURL, target)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "URL\t%s\n", page.URL)
	fmt.Fprintf(tw, "Archived\t%s\n", page.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Status\t%d\n", page.StatusCode)
	fmt.Fprintf(tw, "Content-Type\t%s\n", page.ContentType)
	fmt.Fprintf(tw, "Title\t%s\n", page.Title)
	fmt.Fprintf(tw, "Words\t%d\n", page.WordCount)
	return tw.Flush()
}

// renderLatestReport renders the most recent archived report for a target.
func renderLatestReport(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, target string) error {
	crawlReport, err := db.GetLatestReport(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load report for %s: %w", target, err)
	}
	if crawlReport == nil {
		return fmt.Errorf("no archived report for %s", target)
	}
	return renderArchivedReport(cmd, crawlReport)
}

// renderReportByID renders one specific archived report.
func renderReportByID(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, id int64) error {
	crawlReport, err := db.GetReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load report %d: %w", id, err)
	}
	if crawlReport == nil {
		return fmt.Errorf("no archived report with id %d", id)
	}
	return renderArchivedReport(cmd, crawlReport)
}

// renderArchivedReport writes an archived report in the requested format.
func renderArchivedReport(cmd *cobra.Command, crawlReport *model.CrawlReport) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return config.ErrConflictingReportFormats
	}

	out := cmd.OutOrStdout()

	var w report.Writer
	switch {
	case asJSON:
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case asMarkdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}

	_, err = w.Write(crawlReport)
	return err
}
