package server

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/model"
)

// newTargetSite serves a small crawlable site for streaming tests.
func newTargetSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Home</title></head><body><a href="/about">about</a></body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>About</title></head><body>about us</body></html>`))
	})

	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

// newAPIServer builds the API server with fast crawl settings.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	cfg.MaxPages = 10

	api := httptest.NewServer(NewServer(cfg))
	t.Cleanup(api.Close)
	return api
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	api := newAPIServer(t)

	resp, err := http.Get(api.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestHandleCrawlValidation(t *testing.T) {
	t.Parallel()

	api := newAPIServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "missing domain parameter",
			method:     http.MethodGet,
			path:       "/crawl",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported scheme",
			method:     http.MethodGet,
			path:       "/crawl?domain=ftp%3A%2F%2Fexample.com",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong method",
			method:     http.MethodPost,
			path:       "/crawl?domain=example.com",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "health wrong method",
			method:     http.MethodDelete,
			path:       "/health",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest(tt.method, api.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s unexpected error: %v", tt.method, tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d (body: %s)", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}
}

func TestHandleCrawlStreams(t *testing.T) {
	t.Parallel()

	site := newTargetSite(t)
	api := newAPIServer(t)

	resp, err := http.Get(api.URL + "/crawl?domain=" + site.URL)
	if err != nil {
		t.Fatalf("GET /crawl unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	var events []model.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line is not a valid event: %v (line: %s)", err, line)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}

	var progresses []int
	var pages []model.PageRecord
	for _, ev := range events {
		switch ev.Type {
		case model.EventTypeProgress:
			progresses = append(progresses, ev.Progress)
		case model.EventTypeResult:
			pages = append(pages, *ev.Page)
		}
	}

	if len(pages) != 2 {
		t.Fatalf("got %d result events, want 2", len(pages))
	}
	if pages[0].Title != "Home" || pages[1].Title != "About" {
		t.Errorf("page titles = %q, %q; want Home, About", pages[0].Title, pages[1].Title)
	}

	if len(progresses) == 0 {
		t.Fatal("no progress events on the stream")
	}
	if final := progresses[len(progresses)-1]; final != 100 {
		t.Errorf("final progress = %d, want 100", final)
	}

	// Progress for each page precedes its result, so the first event on
	// the stream is always a progress event.
	if events[0].Type != model.EventTypeProgress {
		t.Errorf("first event type = %q, want progress", events[0].Type)
	}
}

func TestHandleCrawlPerSiteOverrides(t *testing.T) {
	t.Parallel()

	site := newTargetSite(t)

	host := strings.TrimPrefix(site.URL, "http://")
	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	cfg.SiteConfigs = &config.File{
		Sites: map[string]config.SiteConfig{
			// Budget of one limits the crawl to the seed page.
			host: {MaxPages: 1},
		},
	}

	api := httptest.NewServer(NewServer(cfg))
	defer api.Close()

	resp, err := http.Get(api.URL + "/crawl?domain=" + site.URL)
	if err != nil {
		t.Fatalf("GET /crawl unexpected error: %v", err)
	}
	defer resp.Body.Close()

	results := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev model.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if ev.Type == model.EventTypeResult {
			results++
		}
	}

	if results != 1 {
		t.Errorf("got %d results, want 1 (per-site budget override)", results)
	}
}
