package audit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/model"
)

// Audit thresholds. Search engines publish no hard limits, so these follow
// the commonly observed truncation and rewrite boundaries.
const (
	// maxTitleLength is where result listings start truncating titles.
	maxTitleLength = 60

	// minDescriptionLength below which search engines tend to rewrite
	// the snippet.
	minDescriptionLength = 50

	// maxDescriptionLength is where snippets get truncated.
	maxDescriptionLength = 160

	// thinContentWords is the word count under which a page is
	// considered thin.
	thinContentWords = 150
)

// CrawlStep runs the crawl and fills the report with page records.
// It must be the first step of a pipeline built from a live target;
// pipelines replaying archived reports omit it.
type CrawlStep struct {
	spider *crawler.Spider
}

// NewCrawlStep creates the crawl step around a configured spider.
func NewCrawlStep(spider *crawler.Spider) *CrawlStep {
	return &CrawlStep{spider: spider}
}

// Name returns the step name for logging.
func (s *CrawlStep) Name() string { return "crawl" }

// Do crawls the report's seed URL and records the visited pages.
// An invalid seed or a cancelled context is a critical failure; individual
// page failures are already data inside the page records.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	pages, err := s.spider.CrawlAll(ctx, report.Seed)
	report.Pages = pages
	report.FinishedAt = time.Now()
	if err != nil {
		return fmt.Errorf("crawl %s: %w", report.Seed, err)
	}
	return nil
}

// auditedPages returns the pages worth auditing for content checks:
// successfully fetched HTML documents. Failed and non-HTML pages are
// handled by BrokenPageStep alone.
func auditedPages(report *model.CrawlReport) []model.PageRecord {
	pages := make([]model.PageRecord, 0, len(report.Pages))
	for _, p := range report.Pages {
		if p.Succeeded() && p.IsHTML() {
			pages = append(pages, p)
		}
	}
	return pages
}

// BrokenPageStep flags pages that failed to load or returned an error
// status. These came from links on the site itself, so each one is a
// broken internal link.
type BrokenPageStep struct{}

// Name returns the step name for logging.
func (s *BrokenPageStep) Name() string { return "broken-page" }

// Do scans for unreachable and error-status pages.
func (s *BrokenPageStep) Do(_ context.Context, report *model.CrawlReport) error {
	var urls []string
	for _, p := range report.Pages {
		if p.StatusCode == 0 || p.StatusCode >= 400 {
			urls = append(urls, p.URL)
		}
	}
	if len(urls) > 0 {
		report.AddFinding(model.NewFinding("broken-page",
			fmt.Sprintf("%d internally linked pages are broken or unreachable", len(urls)),
			urls...))
	}
	return nil
}

// TitleStep checks titles: presence, length, and uniqueness across the
// site.
type TitleStep struct{}

// Name returns the step name for logging.
func (s *TitleStep) Name() string { return "title" }

// Do scans for missing, overlong, and duplicated titles.
func (s *TitleStep) Do(_ context.Context, report *model.CrawlReport) error {
	var missing, long []string
	byTitle := make(map[string][]string)

	for _, p := range auditedPages(report) {
		switch {
		case p.Title == "":
			missing = append(missing, p.URL)
		default:
			byTitle[p.Title] = append(byTitle[p.Title], p.URL)
			if len(p.Title) > maxTitleLength {
				long = append(long, p.URL)
			}
		}
	}

	if len(missing) > 0 {
		report.AddFinding(model.NewFinding("missing-title",
			fmt.Sprintf("%d pages have no <title>", len(missing)), missing...))
	}
	if len(long) > 0 {
		report.AddFinding(model.NewFinding("long-title",
			fmt.Sprintf("%d pages have titles over %d characters", len(long), maxTitleLength), long...))
	}
	for title, urls := range byTitle {
		if len(urls) > 1 {
			report.AddFinding(model.NewFinding("duplicate-title",
				fmt.Sprintf("title %q is shared by %d pages", title, len(urls)), urls...))
		}
	}
	return nil
}

// DescriptionStep checks meta descriptions: presence and length.
type DescriptionStep struct{}

// Name returns the step name for logging.
func (s *DescriptionStep) Name() string { return "meta-description" }

// Do scans for missing and badly sized meta descriptions.
func (s *DescriptionStep) Do(_ context.Context, report *model.CrawlReport) error {
	var missing, badLength []string

	for _, p := range auditedPages(report) {
		switch {
		case p.MetaDescription == "":
			missing = append(missing, p.URL)
		case len(p.MetaDescription) < minDescriptionLength || len(p.MetaDescription) > maxDescriptionLength:
			badLength = append(badLength, p.URL)
		}
	}

	if len(missing) > 0 {
		report.AddFinding(model.NewFinding("missing-meta-description",
			fmt.Sprintf("%d pages have no meta description", len(missing)), missing...))
	}
	if len(badLength) > 0 {
		report.AddFinding(model.NewFinding("meta-description-length",
			fmt.Sprintf("%d pages have meta descriptions outside %d-%d characters",
				len(badLength), minDescriptionLength, maxDescriptionLength), badLength...))
	}
	return nil
}

// HeadingStep checks that every page carries an <h1>.
type HeadingStep struct{}

// Name returns the step name for logging.
func (s *HeadingStep) Name() string { return "heading" }

// Do scans for pages without a top-level heading.
func (s *HeadingStep) Do(_ context.Context, report *model.CrawlReport) error {
	var missing []string
	for _, p := range auditedPages(report) {
		if p.H1 == "" {
			missing = append(missing, p.URL)
		}
	}
	if len(missing) > 0 {
		report.AddFinding(model.NewFinding("missing-h1",
			fmt.Sprintf("%d pages have no <h1>", len(missing)), missing...))
	}
	return nil
}

// ContentStep checks for thin pages and byte-identical duplicate content.
// Duplicate detection uses the content hash computed at crawl time, so
// only exact duplicates are flagged.
type ContentStep struct{}

// Name returns the step name for logging.
func (s *ContentStep) Name() string { return "content" }

// Do scans for thin and duplicated page content.
func (s *ContentStep) Do(_ context.Context, report *model.CrawlReport) error {
	var thin []string
	byHash := make(map[string][]string)

	for _, p := range auditedPages(report) {
		if p.WordCount < thinContentWords {
			thin = append(thin, p.URL)
		}
		if p.ContentHash != "" {
			byHash[p.ContentHash] = append(byHash[p.ContentHash], p.URL)
		}
	}

	if len(thin) > 0 {
		report.AddFinding(model.NewFinding("thin-content",
			fmt.Sprintf("%d pages have fewer than %d words", len(thin), thinContentWords), thin...))
	}
	for _, urls := range byHash {
		if len(urls) > 1 {
			report.AddFinding(model.NewFinding("duplicate-content",
				fmt.Sprintf("%d URLs serve byte-identical content", len(urls)), urls...))
		}
	}
	return nil
}

// CanonicalStep checks canonical links: presence, and whether any point
// at a different host than the crawled site.
type CanonicalStep struct{}

// Name returns the step name for logging.
func (s *CanonicalStep) Name() string { return "canonical" }

// Do scans canonical link declarations against the crawled host.
func (s *CanonicalStep) Do(_ context.Context, report *model.CrawlReport) error {
	seed, err := url.Parse(report.Seed)
	if err != nil {
		return fmt.Errorf("parse seed %q: %w", report.Seed, err)
	}

	var missing, crossHost []string
	for _, p := range auditedPages(report) {
		if p.Canonical == "" {
			missing = append(missing, p.URL)
			continue
		}
		canonical, err := url.Parse(p.Canonical)
		if err != nil {
			continue
		}
		// Relative canonicals resolve to the page's own host.
		if canonical.Host != "" && !strings.EqualFold(canonical.Host, seed.Host) {
			crossHost = append(crossHost, p.URL)
		}
	}

	if len(missing) > 0 {
		report.AddFinding(model.NewFinding("missing-canonical",
			fmt.Sprintf("%d pages declare no canonical URL", len(missing)), missing...))
	}
	if len(crossHost) > 0 {
		report.AddFinding(model.NewFinding("cross-host-canonical",
			fmt.Sprintf("%d pages declare a canonical URL on a different host", len(crossHost)), crossHost...))
	}
	return nil
}

// ImageStep checks that images carry alt attributes.
type ImageStep struct{}

// Name returns the step name for logging.
func (s *ImageStep) Name() string { return "image" }

// Do scans for pages with images missing alt text.
func (s *ImageStep) Do(_ context.Context, report *model.CrawlReport) error {
	var affected []string
	for _, p := range auditedPages(report) {
		if p.ImgWithAlt < p.ImgCount {
			affected = append(affected, p.URL)
		}
	}
	if len(affected) > 0 {
		report.AddFinding(model.NewFinding("images-missing-alt",
			fmt.Sprintf("%d pages have images without alt attributes", len(affected)), affected...))
	}
	return nil
}

// CheckSteps returns all audit checks in their standard order. The crawl
// step is not included; callers prepend it when auditing a live target.
func CheckSteps() []Step {
	return []Step{
		&BrokenPageStep{},
		&TitleStep{},
		&DescriptionStep{},
		&HeadingStep{},
		&ContentStep{},
		&CanonicalStep{},
		&ImageStep{},
	}
}
