package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/database"
	"github.com/pagelens/pagelens/internal/model"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan [domain]" {
			t.Errorf("expected use 'scan [domain]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		flags := map[string]string{
			"timeout":   "t",
			"max-pages": "p",
			"delay":     "d",
			"batch":     "b",
			"config":    "c",
			"json":      "j",
			"markdown":  "m",
			"output":    "o",
		}
		for name, shorthand := range flags {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != shorthand {
				t.Errorf("expected shorthand %q for %s, got %q", shorthand, name, flag.Shorthand)
			}
		}
	})

	t.Run("has no-archive flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("no-archive") == nil {
			t.Error("expected no-archive flag")
		}
	})

	t.Run("does not have db-dir flag (uses XDG)", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("db-dir") != nil {
			t.Error("db-dir flag should not exist (scan always uses the XDG data directory)")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewScanCmd()
		if getVerboseFlag(cmd) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		scanCmd, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatalf("failed to find scan command: %v", err)
		}

		if !getVerboseFlag(scanCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewScanCmd()
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "example.com" {
			t.Errorf("expected targets [example.com], got %v", cfg.Targets)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected MaxPages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to default to true")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to default to the XDG data directory")
		}
	})

	t.Run("builds config with custom max-pages", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("max-pages", "200")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxPages != 200 {
			t.Errorf("expected MaxPages 200, got %d", cfg.MaxPages)
		}
	})

	t.Run("builds config with custom delay", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("delay", "2s")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.CrawlDelay != 2*time.Second {
			t.Errorf("expected CrawlDelay 2s, got %s", cfg.CrawlDelay)
		}
	})

	t.Run("builds config with custom batch size", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("batch", "8")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.BatchSize != 8 {
			t.Errorf("expected BatchSize 8, got %d", cfg.BatchSize)
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("no-archive disables the crawl archive", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("no-archive", "true")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false with --no-archive")
		}
		if cfg.DBDir != "" {
			t.Errorf("expected empty DBDir with --no-archive, got %q", cfg.DBDir)
		}
	})

	t.Run("builds config with multiple targets", func(t *testing.T) {
		cmd := NewScanCmd()
		cfg, err := buildConfig(cmd, []string{"site1.com", "site2.com", "site3.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Targets) != 3 {
			t.Errorf("expected 3 targets, got %d", len(cfg.Targets))
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "pagelens.yaml")

		content := []byte(`
defaults:
  delay: 2s
sites:
  example.com:
    maxPages: 25
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewScanCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.Delay.Duration != 2*time.Second {
			t.Errorf("expected default delay 2s, got %s", cfg.SiteConfigs.Defaults.Delay.Duration)
		}
		if cfg.SiteConfigs.Sites["example.com"].MaxPages != 25 {
			t.Errorf("expected maxPages 25 for example.com, got %d", cfg.SiteConfigs.Sites["example.com"].MaxPages)
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")

		if err := os.WriteFile(configPath, []byte(`{invalid yaml`), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewScanCmd()
		_ = cmd.Flags().Set("config", configPath)
		if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
	})

	t.Run("builds config with output file", func(t *testing.T) {
		cmd := NewScanCmd()
		_ = cmd.Flags().Set("output", "/tmp/report.json")
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ReportFile != "/tmp/report.json" {
			t.Errorf("expected ReportFile '/tmp/report.json', got %q", cfg.ReportFile)
		}
	})
}

// TestBudgetFor tests per-site budget resolution.
func TestBudgetFor(t *testing.T) {
	t.Parallel()

	t.Run("returns global budget without overrides", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.MaxPages = 80

		if got := budgetFor(cfg, "https://example.com"); got != 80 {
			t.Errorf("budgetFor() = %d, want 80", got)
		}
	})

	t.Run("applies per-site override", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"example.com": {MaxPages: 10},
			},
		}

		if got := budgetFor(cfg, "https://example.com"); got != 10 {
			t.Errorf("budgetFor() = %d, want 10", got)
		}
	})
}

// TestOutputReport tests the report output functionality.
func TestOutputReport(t *testing.T) {
	newTestReport := func() *model.CrawlReport {
		crawlReport := model.NewCrawlReport("example.com", "https://example.com", 50)
		crawlReport.Pages = []model.PageRecord{
			{URL: "https://example.com", StatusCode: 200, ContentType: "text/html", Title: "Home"},
		}
		crawlReport.AddFinding(model.NewFinding("missing-meta-description", "1 page has no meta description", "https://example.com"))
		return crawlReport
	}

	t.Run("outputs JSON report to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		if err := outputReport(cfg, newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		var result map[string]any
		if err := json.Unmarshal(content, &result); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if result["version"] == "" {
			t.Error("expected version field in full JSON report")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "subdir", "nested", "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		if err := outputReport(cfg, newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created in nested directory")
		}
	})

	t.Run("outputs plain report to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.txt")

		cfg := &config.Config{ReportFile: outputPath}

		if err := outputReport(cfg, newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "example.com") {
			t.Error("expected report to contain the target domain")
		}
	})

	t.Run("outputs markdown report to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.md")

		cfg := &config.Config{
			MarkdownReport: true,
			ReportFile:     outputPath,
		}

		if err := outputReport(cfg, newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "# pagelens SEO Report") {
			t.Error("expected markdown report heading")
		}
	})

	t.Run("outputs to stdout when no file specified", func(t *testing.T) {
		cfg := &config.Config{}
		if err := outputReport(cfg, newTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestSaveCrawlReport tests archiving of finished reports.
func TestSaveCrawlReport(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := context.Background()

	t.Run("returns nil when db is nil", func(t *testing.T) {
		t.Parallel()

		crawlReport := model.NewCrawlReport("example.com", "https://example.com", 50)
		if err := saveCrawlReport(ctx, nil, crawlReport, logger); err != nil {
			t.Errorf("expected nil error when db is nil, got %v", err)
		}
	})

	t.Run("archives report to database", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		db, err := database.Open(tmpDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		crawlReport := model.NewCrawlReport("save-test.com", "https://save-test.com", 50)
		crawlReport.AddFinding(model.NewFinding("missing-title", "1 page has no title", "https://save-test.com"))

		if err := saveCrawlReport(ctx, db, crawlReport, logger); err != nil {
			t.Fatalf("saveCrawlReport() error = %v", err)
		}

		saved, err := db.GetLatestReport(ctx, "save-test.com")
		if err != nil {
			t.Fatalf("failed to get saved report: %v", err)
		}
		if saved == nil {
			t.Fatal("expected report to be archived")
		}
		if saved.Target != "save-test.com" {
			t.Errorf("expected target 'save-test.com', got %q", saved.Target)
		}
	})
}

// TestHasRecentAudit tests the recent-audit archive lookup.
func TestHasRecentAudit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns false when db is nil", func(t *testing.T) {
		t.Parallel()

		if hasRecentAudit(ctx, nil, "https://example.com") {
			t.Error("expected false when db is nil")
		}
	})

	t.Run("reports a freshly archived seed", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		crawlReport := model.NewCrawlReport("example.com", "https://example.com", 50)
		crawlReport.Pages = []model.PageRecord{
			{URL: "https://example.com", StatusCode: 200, ContentType: "text/html", Title: "Home"},
		}
		if err := db.SaveReport(ctx, crawlReport); err != nil {
			t.Fatalf("failed to archive report: %v", err)
		}

		if !hasRecentAudit(ctx, db, "https://example.com") {
			t.Error("expected true for a seed archived moments ago")
		}
		if hasRecentAudit(ctx, db, "https://never-crawled.example") {
			t.Error("expected false for a URL the archive has never seen")
		}
	})
}

// TestRunScanCmdNoArgs tests runScanCmd with no arguments.
func TestRunScanCmdNoArgs(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"scan", "--no-archive"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for no arguments")
	}
	if !errors.Is(err, config.ErrNoTarget) {
		t.Errorf("expected ErrNoTarget, got: %v", err)
	}
}

// TestRunScanCmdConflictingFormats tests runScanCmd with both --json and --markdown.
func TestRunScanCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"scan", "--json", "--markdown", "--no-archive", "example.com"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for conflicting report formats")
	}
	if !errors.Is(err, config.ErrConflictingReportFormats) {
		t.Errorf("expected ErrConflictingReportFormats, got: %v", err)
	}
}

// TestScanEndToEnd runs a full scan against a local test site and checks
// the JSON report on disk.
func TestScanEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Home</title></head><body><h1>Welcome</h1><a href="/about">about</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		// No title and no h1, so the audit reports findings.
		w.Write([]byte(`<html><head></head><body>about us</body></html>`))
	})

	site := httptest.NewServer(mux)
	defer site.Close()

	outputPath := filepath.Join(t.TempDir(), "report.json")

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{
		"scan",
		"--json",
		"--no-archive",
		"--delay", "0s",
		"--output", outputPath,
		site.URL,
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	var full struct {
		Version string             `json:"version"`
		Report  *model.CrawlReport `json:"report"`
	}
	if err := json.Unmarshal(content, &full); err != nil {
		t.Fatalf("failed to parse JSON report: %v", err)
	}

	if full.Report == nil {
		t.Fatal("expected report payload")
	}
	if got := len(full.Report.Pages); got != 2 {
		t.Errorf("expected 2 crawled pages, got %d", got)
	}
	if !full.Report.HasFindings() {
		t.Error("expected audit findings for the page without title and h1")
	}
}
