package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pagelens/pagelens/internal/model"
)

// Fetcher retrieves single pages over HTTP and classifies the response.
// It never treats a failed fetch as an error: transport failures come back
// as a FetchResult with status 0 so the crawl records them and moves on.
type Fetcher struct {
	// client is the HTTP client used for all requests. Its Timeout bounds
	// each fetch so a hung server cannot stall the crawl.
	client *http.Client

	// userAgent is the fixed identifying User-Agent header.
	userAgent string

	// maxBodySize limits how many body bytes are read per page.
	maxBodySize int64

	// headers are extra request headers, typically per-site overrides from
	// the config file. User-Agent entries are ignored: the crawler always
	// identifies itself.
	headers map[string]string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithExtraHeaders sets additional request headers for every fetch.
func WithExtraHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
// A nil client gets a default client with the standard fetch timeout.
//
// Design decision: We accept an external client because:
//  1. The caller owns transport policy (timeout, proxy, TLS)
//  2. Tests can inject httptest-backed clients
//  3. One client is shared across all fetches of a crawl
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	f := &Fetcher{
		client:      client,
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchResult is the classified outcome of fetching one URL.
type FetchResult struct {
	// URL is the URL that was fetched.
	URL string

	// StatusCode is the final HTTP status after redirects, or 0 if the
	// request failed before an HTTP response was received.
	StatusCode int

	// ContentType is the value of the Content-Type response header.
	ContentType string

	// Body holds the response body. It is only populated for HTML
	// responses; other content types are classified by header alone.
	Body []byte
}

// Succeeded reports whether the fetch ended with an HTTP 2xx status.
func (r *FetchResult) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsHTML reports whether the response carried an HTML content type.
func (r *FetchResult) IsHTML() bool {
	return model.IsHTMLContentType(r.ContentType)
}

// Fetch retrieves one URL. Transport failures (DNS, refused connection,
// timeout) are returned as a FetchResult with StatusCode 0 and a nil
// error: they are crawl data, not crawl errors. The error return is
// reserved for context cancellation and for URLs that cannot form a
// request at all.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pageURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		if http.CanonicalHeaderKey(k) == "User-Agent" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &FetchResult{URL: pageURL, StatusCode: 0}, nil
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	// Only HTML bodies are worth reading: metadata extraction and link
	// discovery both need markup, and everything else is classified by
	// status and content type alone.
	if result.IsHTML() {
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// The connection died mid-body; treat it like any other
			// transport failure.
			return &FetchResult{URL: pageURL, StatusCode: 0}, nil
		}
		result.Body = body
	}

	return result, nil
}
