package crawler

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/pagelens/pagelens/internal/model"
)

// Default crawl settings, overridable per Spider via options.
const (
	// defaultMaxPages bounds both crawl duration and the load placed on
	// the crawled host.
	defaultMaxPages = 50

	// defaultDelay is the politeness pause between consecutive fetches.
	defaultDelay = 500 * time.Millisecond

	// defaultFetchTimeout bounds a single fetch. The crawl is sequential,
	// so without it one hung server connection stalls everything.
	defaultFetchTimeout = 10 * time.Second

	// defaultMaxBodySize limits how much of a response body is read.
	defaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// defaultUserAgent identifies the crawler and a contact reference so
	// site operators can recognize and reach us from their access logs.
	defaultUserAgent = "pagelens/1.0 (+https://github.com/pagelens/pagelens; contact: crawler@pagelens.dev)"
)

// Spider crawls one website breadth-first from a seed URL, restricted to
// the seed's host, and streams progress and per-page results as events.
//
// A Spider is reusable: each Crawl call creates fresh crawl state, so one
// Spider may serve many independent crawls, including concurrently.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. It distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// client is the HTTP client used for all fetches.
	client *http.Client

	// maxPages is the page budget for each crawl.
	maxPages int

	// delay is the politeness pause between consecutive fetches.
	delay time.Duration

	// userAgent is the identifying User-Agent header.
	userAgent string

	// maxBodySize limits response body reads.
	maxBodySize int64

	// headers are extra request headers, e.g. per-site config overrides.
	headers map[string]string

	// logger receives structured progress logs.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget: the hard cap on URLs ever visited in
// one crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the politeness delay between consecutive fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithSpiderMaxBodySize sets the maximum response body size to read.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithSpiderHeaders sets extra request headers for every fetch.
func WithSpiderHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithLogger sets the logger used for crawl progress logs.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a new Spider using the given HTTP client.
// A nil client gets a default client with the standard fetch timeout.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	s := &Spider{
		client:      client,
		maxPages:    defaultMaxPages,
		delay:       defaultDelay,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl validates the seed URL and starts the crawl, returning the event
// stream. A seed that cannot form a crawlable URL fails here, before any
// event is emitted; every other failure is per-page data on the stream.
//
// The returned channel is unbuffered: sends block until the consumer
// reads, so the producer naturally slows to the consumer's pace. The
// channel closes after the final progress event with value 100. Cancelling
// the context stops the crawl promptly and closes the channel without the
// final event.
func (s *Spider) Crawl(ctx context.Context, seedURL string) (<-chan model.Event, error) {
	norm, err := NewNormalizer(seedURL)
	if err != nil {
		return nil, err
	}

	fetcher := NewFetcher(s.client,
		WithUserAgent(s.userAgent),
		WithMaxBodySize(s.maxBodySize),
		WithExtraHeaders(s.headers),
	)

	events := make(chan model.Event)
	go s.run(ctx, norm, fetcher, events)
	return events, nil
}

// CrawlAll runs a crawl to completion and returns the page records in
// discovery order. On cancellation it returns the pages collected so far
// together with the context error.
func (s *Spider) CrawlAll(ctx context.Context, seedURL string) ([]model.PageRecord, error) {
	events, err := s.Crawl(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	pages := make([]model.PageRecord, 0, s.maxPages)
	for ev := range events {
		if ev.Type == model.EventTypeResult {
			pages = append(pages, *ev.Page)
		}
	}

	if err := ctx.Err(); err != nil {
		return pages, err
	}
	return pages, nil
}

// run executes the crawl loop. It owns all crawl state and is the only
// writer to the event stream.
func (s *Spider) run(ctx context.Context, norm *Normalizer, fetcher *Fetcher, events chan<- model.Event) {
	defer close(events)

	frontier := NewFrontier(s.maxPages)
	frontier.Enqueue(norm.Seed())

	s.logger.Debug("crawl started",
		"seed", norm.Seed(),
		"budget", frontier.Budget(),
		"delay", s.delay,
	)

	for frontier.HasNext() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageURL, _ := frontier.Dequeue()

		// Enqueue-time dedup should make this impossible; skip defensively.
		if frontier.Visited(pageURL) {
			continue
		}
		frontier.MarkVisited(pageURL)

		// Progress reflects the page about to be fetched, so it is
		// computed and emitted before the fetch.
		percent := progressPercent(frontier.VisitedCount(), frontier.Budget())
		if !s.emit(ctx, events, model.NewProgressEvent(percent)) {
			return
		}

		result, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			// Only cancellation and unbuildable requests reach here.
			s.logger.Debug("crawl stopped during fetch", "url", pageURL, "error", err)
			return
		}

		record, hrefs := buildRecord(pageURL, result)
		s.logger.Debug("visited page",
			"url", pageURL,
			"status", record.StatusCode,
			"words", record.WordCount,
		)

		if !s.emit(ctx, events, model.NewResultEvent(record)) {
			return
		}

		// Link discovery only happens for successful HTML pages; failed,
		// non-2xx, and non-HTML fetches contribute nothing to the frontier.
		if result.Succeeded() && result.IsHTML() {
			discover(norm, frontier, pageURL, hrefs)
		}

		// Politeness pause before the next fetch.
		if s.delay > 0 && frontier.HasNext() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.delay):
			}
		}
	}

	// The stream always terminates with progress 100, even when the crawl
	// stopped early on budget exhaustion.
	s.emit(ctx, events, model.NewProgressEvent(100))
	s.logger.Debug("crawl finished", "visited", frontier.VisitedCount())
}

// discover enqueues every new same-host link from the page while budget
// remains. The frontier refuses duplicates and over-budget entries.
func discover(norm *Normalizer, frontier *Frontier, pageURL string, hrefs []string) {
	if len(hrefs) == 0 {
		return
	}

	page, err := url.Parse(pageURL)
	if err != nil {
		return
	}

	for _, link := range norm.ResolveLinks(hrefs, page) {
		frontier.Enqueue(link)
	}
}

// buildRecord converts a fetch result into the page's immutable record
// and returns the raw hrefs found on the page for link discovery.
// Metadata extraction only applies to successful HTML responses; for
// everything else the record carries just the URL, status, and content
// type.
func buildRecord(pageURL string, result *FetchResult) (model.PageRecord, []string) {
	record := model.PageRecord{
		URL:         pageURL,
		StatusCode:  result.StatusCode,
		ContentType: result.ContentType,
	}

	if !result.Succeeded() || !result.IsHTML() || len(result.Body) == 0 {
		return record, nil
	}

	record.ComputeHash(result.Body)

	meta, err := ParsePage(bytes.NewReader(result.Body))
	if err != nil {
		// Extraction failure leaves the metadata fields at their
		// defaults; the page is still recorded.
		return record, nil
	}

	record.Title = meta.Title
	record.MetaDescription = meta.MetaDescription
	record.Canonical = meta.Canonical
	record.H1 = meta.H1
	record.H2Count = meta.H2Count
	record.ImgCount = meta.ImgCount
	record.ImgWithAlt = meta.ImgWithAlt
	record.WordCount = meta.WordCount
	return record, meta.Hrefs
}

// emit sends one event, reporting false when the context was cancelled
// before the consumer accepted it.
func (s *Spider) emit(ctx context.Context, events chan<- model.Event, ev model.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// progressPercent computes the rounded completion percentage for the
// page currently being visited.
func progressPercent(visited, budget int) int {
	if budget <= 0 {
		return 100
	}
	return int(math.Round(float64(visited) / float64(budget) * 100))
}
