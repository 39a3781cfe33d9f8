package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pagelens/pagelens/internal/audit"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/database"
	"github.com/pagelens/pagelens/internal/log"
	"github.com/pagelens/pagelens/internal/model"
	"github.com/pagelens/pagelens/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [domain]",
		Short: "Crawl a website and audit its SEO",
		Long: `Scan crawls a website breadth-first from its home page and audits the
crawled pages for SEO issues:
- Missing or duplicated titles and meta descriptions
- Missing headings and thin content
- Broken internal links and duplicate content
- Canonical link problems and images without alt text

Examples:
  # Audit a single site
  pagelens scan example.com

  # Audit several sites concurrently
  pagelens scan site1.com site2.com site3.com

  # Raise the page budget and slow the crawl down
  pagelens scan --max-pages 200 --delay 2s example.com

  # Output a JSON report to a file
  pagelens scan --json -o report.json example.com

  # Use a custom configuration file
  pagelens scan -c myconfig.yaml example.com

Configuration file (.pagelens.yaml) example:
  defaults:
    delay: 1s
  sites:
    example.com:
      maxPages: 200
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Politeness delay between requests to the same site")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent site audits")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagelens.yaml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Archive flags
	cmd.Flags().Bool("no-archive", false,
		"Do not store the finished report in the crawl archive")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// An explicitly specified path must exist; the default search may
	// come up empty without it being an error.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noArchive, err := cmd.Flags().GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	if !noArchive {
		cfg.SaveToDB = true
		cfg.DBDir = config.XDGDataDir()
	}

	// Positional arguments are the target domains
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan for all configured targets.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"maxPages", cfg.MaxPages,
		"delay", cfg.CrawlDelay,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open the crawl archive if enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("crawl archive opened", "dir", cfg.DBDir)
	}

	client := &http.Client{Timeout: cfg.Timeout}

	// Use the batch processor for concurrent audits when multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, client, db, logger)
	}

	return runSequentialScan(ctx, cfg, client, db, logger)
}

// recentCrawlWindow is how far back the archive is consulted when telling
// the user a target was already audited recently.
const recentCrawlWindow = 24 * time.Hour

// hasRecentAudit reports whether the seed page was archived within
// recentCrawlWindow. A missing archive or a lookup error both read as
// "no recent audit": the notice is informational and must never block a scan.
func hasRecentAudit(ctx context.Context, db *database.CrawlDB, seed string) bool {
	if db == nil {
		return false
	}
	recent, err := db.HasRecentCrawl(ctx, seed, recentCrawlWindow)
	if err != nil {
		return false
	}
	return recent
}

// runSequentialScan audits targets one at a time, applying per-site
// configuration overrides.
func runSequentialScan(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		seed := crawler.SeedFromDomain(target)
		p := createPipelineForTarget(client, logger, cfg, seed)

		crawlReport := model.NewCrawlReport(target, seed, budgetFor(cfg, seed))

		if hasRecentAudit(ctx, db, seed) {
			fmt.Printf("Note: %s was audited within the last %s; `pagelens history %s` shows the stored report.\n",
				target, recentCrawlWindow, target)
		}

		fmt.Printf("Auditing %s...\n", target)
		startTime := time.Now()

		if err := p.Execute(ctx, crawlReport); err != nil {
			logger.Error("audit failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Audit error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Audit completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to archive report", "target", target, "error", err)
		}
	}

	return nil
}

// runBatchScan audits multiple targets concurrently using the batch
// processor.
func runBatchScan(ctx context.Context, cfg *config.Config, client *http.Client, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch audit of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// The factory has no target in hand, so batch mode applies the global
	// crawl settings plus config file defaults to every site.
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch mode applies global settings only; per-site overrides are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: Site-specific configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-site settings.\n\n")
	}

	bp := audit.NewBatchProcessor(
		func() *audit.Pipeline {
			return createPipelineForTarget(client, logger, cfg, "")
		},
		audit.WithConcurrency(cfg.BatchSize),
		audit.WithBudget(cfg.MaxPages),
		audit.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(crawlReport *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Audit completed: %s\n", index+1, len(cfg.Targets), crawlReport.Target)

		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "target", crawlReport.Target, "error", err)
		}

		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to archive report", "target", crawlReport.Target, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// budgetFor returns the effective page budget for a seed URL, honoring
// per-site overrides.
func budgetFor(cfg *config.Config, seed string) int {
	maxPages, _, _ := cfg.SiteOptions(hostOf(seed))
	return maxPages
}

// hostOf extracts the host from a seed URL, or returns the empty string.
func hostOf(seed string) string {
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return u.Host
}

// createPipelineForTarget creates the audit pipeline for one target.
// An empty seed builds a pipeline with the global crawl settings, which
// is what batch mode uses for every site.
func createPipelineForTarget(client *http.Client, logger *slog.Logger, cfg *config.Config, seed string) *audit.Pipeline {
	maxPages, delay, headers := cfg.SiteOptions(hostOf(seed))

	spider := crawler.NewSpider(client,
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(delay),
		crawler.WithSpiderUserAgent(cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(cfg.MaxBodySize),
		crawler.WithSpiderHeaders(headers),
		crawler.WithLogger(logger),
	)

	p := audit.New(
		audit.WithLogger(logger),
	)
	p.AddStep(audit.NewCrawlStep(spider))
	p.AddSteps(audit.CheckSteps()...)
	return p
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output)
	}

	_, err := w.Write(crawlReport)
	return err
}

// saveCrawlReport archives the report if the archive is enabled.
// If db is nil, this function is a no-op.
func saveCrawlReport(ctx context.Context, db *database.CrawlDB, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveReport(ctx, crawlReport); err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}

	logger.Info("report archived", "target", crawlReport.Target)
	return nil
}
