package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagelens/pagelens/internal/model"
)

func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	cdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := cdb.Close(); err != nil {
			t.Errorf("Close() unexpected error: %v", err)
		}
	})
	return cdb
}

func testReport(target string) *model.CrawlReport {
	report := model.NewCrawlReport(target, "https://"+target, 50)
	report.FinishedAt = report.StartedAt.Add(10 * time.Second)
	report.Pages = []model.PageRecord{
		{
			URL:         "https://" + target,
			StatusCode:  200,
			ContentType: "text/html",
			Title:       "Home",
			WordCount:   400,
			ContentHash: "abc123",
		},
		{
			URL:        "https://" + target + "/dead",
			StatusCode: 0,
		},
	}
	report.AddFinding(model.NewFinding("broken-page", "1 page is unreachable",
		"https://"+target+"/dead"))
	return report
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database and directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "archive")
		cdb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() unexpected error: %v", err)
		}
		defer cdb.Close()

		if _, err := os.Stat(filepath.Join(dir, "pagelens.db")); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
	})

	t.Run("refuses missing database without create option", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("Open() error = nil, want error for missing database")
		}
	})
}

func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	if err := cdb.SaveReport(ctx, testReport("example.com")); err != nil {
		t.Fatalf("SaveReport() unexpected error: %v", err)
	}

	got, err := cdb.GetLatestReport(ctx, "example.com")
	if err != nil {
		t.Fatalf("GetLatestReport() unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("GetLatestReport() = nil, want report")
	}
	if got.Target != "example.com" {
		t.Errorf("Target = %q, want %q", got.Target, "example.com")
	}
	if len(got.Pages) != 2 {
		t.Errorf("got %d pages, want 2", len(got.Pages))
	}
	if len(got.Findings) != 1 {
		t.Errorf("got %d findings, want 1", len(got.Findings))
	}
	if got.Findings[0].Severity != model.SeverityCritical {
		t.Errorf("finding severity = %v, want CRITICAL", got.Findings[0].Severity)
	}
}

func TestGetLatestReportUnknownTarget(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)

	got, err := cdb.GetLatestReport(context.Background(), "never-audited.com")
	if err != nil {
		t.Fatalf("GetLatestReport() unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("GetLatestReport() = %+v, want nil", got)
	}
}

func TestPageRecords(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	page := &model.PageRecord{
		URL:         "https://example.com/about",
		StatusCode:  200,
		ContentType: "text/html",
		Title:       "About",
		WordCount:   250,
		ContentHash: "deadbeef",
	}

	if _, err := cdb.InsertPageRecord(ctx, "example.com", page); err != nil {
		t.Fatalf("InsertPageRecord() unexpected error: %v", err)
	}

	t.Run("round trips a stored page", func(t *testing.T) {
		got, err := cdb.GetPageRecord(ctx, page.URL, "example.com")
		if err != nil {
			t.Fatalf("GetPageRecord() unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("GetPageRecord() = nil, want page")
		}
		if got.Title != "About" || got.WordCount != 250 || got.ContentHash != "deadbeef" {
			t.Errorf("stored page mismatch: %+v", got)
		}
	})

	t.Run("upsert refreshes existing pages", func(t *testing.T) {
		updated := *page
		updated.Title = "About Us"
		if _, err := cdb.InsertPageRecord(ctx, "example.com", &updated); err != nil {
			t.Fatalf("InsertPageRecord() unexpected error: %v", err)
		}

		got, err := cdb.GetPageRecord(ctx, page.URL, "example.com")
		if err != nil {
			t.Fatalf("GetPageRecord() unexpected error: %v", err)
		}
		if got.Title != "About Us" {
			t.Errorf("Title = %q, want %q after upsert", got.Title, "About Us")
		}
	})

	t.Run("unknown page returns nil", func(t *testing.T) {
		got, err := cdb.GetPageRecord(ctx, "https://example.com/nope", "example.com")
		if err != nil {
			t.Fatalf("GetPageRecord() unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("GetPageRecord() = %+v, want nil", got)
		}
	})

	t.Run("recent crawl check sees the page", func(t *testing.T) {
		recent, err := cdb.HasRecentCrawl(ctx, page.URL, time.Hour)
		if err != nil {
			t.Fatalf("HasRecentCrawl() unexpected error: %v", err)
		}
		if !recent {
			t.Error("HasRecentCrawl() = false, want true for a just-inserted page")
		}
	})
}

func TestListTargetsAndHistory(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	for _, target := range []string{"b.example.com", "a.example.com"} {
		if err := cdb.SaveReport(ctx, testReport(target)); err != nil {
			t.Fatalf("SaveReport(%s) unexpected error: %v", target, err)
		}
	}
	// Second audit of the same target for history depth.
	if err := cdb.SaveReport(ctx, testReport("a.example.com")); err != nil {
		t.Fatalf("SaveReport() unexpected error: %v", err)
	}

	t.Run("targets are listed sorted and deduplicated", func(t *testing.T) {
		targets, err := cdb.ListTargets(ctx)
		if err != nil {
			t.Fatalf("ListTargets() unexpected error: %v", err)
		}
		want := []string{"a.example.com", "b.example.com"}
		if len(targets) != len(want) {
			t.Fatalf("ListTargets() = %v, want %v", targets, want)
		}
		for i := range want {
			if targets[i] != want[i] {
				t.Errorf("targets[%d] = %q, want %q", i, targets[i], want[i])
			}
		}
	})

	t.Run("history returns all reports for a target", func(t *testing.T) {
		history, err := cdb.GetHistory(ctx, "a.example.com")
		if err != nil {
			t.Fatalf("GetHistory() unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Errorf("GetHistory() returned %d reports, want 2", len(history))
		}
	})

	t.Run("metadata carries the severity summary", func(t *testing.T) {
		metas, err := cdb.GetHistoryWithMetadata(ctx, "a.example.com")
		if err != nil {
			t.Fatalf("GetHistoryWithMetadata() unexpected error: %v", err)
		}
		if len(metas) != 2 {
			t.Fatalf("got %d metadata entries, want 2", len(metas))
		}
		if metas[0].SeveritySummary["critical"] != 1 {
			t.Errorf("critical count = %d, want 1", metas[0].SeveritySummary["critical"])
		}
		if metas[0].ID == 0 {
			t.Error("metadata ID is zero")
		}
	})

	t.Run("report can be loaded by ID", func(t *testing.T) {
		metas, err := cdb.GetHistoryWithMetadata(ctx, "b.example.com")
		if err != nil {
			t.Fatalf("GetHistoryWithMetadata() unexpected error: %v", err)
		}
		if len(metas) != 1 {
			t.Fatalf("got %d metadata entries, want 1", len(metas))
		}

		report, err := cdb.GetReportByID(ctx, metas[0].ID)
		if err != nil {
			t.Fatalf("GetReportByID() unexpected error: %v", err)
		}
		if report == nil || report.Target != "b.example.com" {
			t.Errorf("GetReportByID() = %+v, want report for b.example.com", report)
		}
	})

	t.Run("unknown ID returns nil", func(t *testing.T) {
		report, err := cdb.GetReportByID(ctx, 999999)
		if err != nil {
			t.Fatalf("GetReportByID() unexpected error: %v", err)
		}
		if report != nil {
			t.Errorf("GetReportByID() = %+v, want nil", report)
		}
	})
}
