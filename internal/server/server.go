package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/crawler"
)

// Server exposes crawl streaming over HTTP. It implements http.Handler
// and carries no per-request state; every request gets its own crawl.
type Server struct {
	// cfg supplies crawl defaults and per-site overrides.
	cfg *config.Config

	// client is the HTTP client shared by all crawls.
	client *http.Client

	// logger receives request and crawl logs.
	logger *slog.Logger

	mux *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHTTPClient sets the HTTP client used for outbound fetches.
func WithHTTPClient(client *http.Client) ServerOption {
	return func(s *Server) {
		if client != nil {
			s.client = client
		}
	}
}

// WithServerLogger sets the logger for request handling.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/crawl", s.handleCrawl)
	s.mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// handleCrawl starts a crawl for the requested domain and streams its
// events as NDJSON. Validation failures are rejected with a 400 before
// any byte of the stream is written; once streaming starts, the status
// is committed and failures can only end the stream early.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	domain := r.URL.Query().Get("domain")
	if domain == "" {
		http.Error(w, "missing required query parameter: domain", http.StatusBadRequest)
		return
	}

	seed := crawler.SeedFromDomain(domain)
	spider := s.spiderFor(seed)

	// Crawl validates the seed before emitting anything, so a bad domain
	// still gets a clean 400.
	events, err := spider.Crawl(r.Context(), seed)
	if err != nil {
		http.Error(w, "invalid domain: "+err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("crawl stream started",
		"domain", domain,
		"remote", r.RemoteAddr,
	)

	enc := json.NewEncoder(w)
	for ev := range events {
		// Encode appends the newline that frames each event.
		if err := enc.Encode(ev); err != nil {
			// The client went away; the request context aborts the crawl.
			s.logger.Debug("crawl stream write failed", "domain", domain, "error", err)
			return
		}
		flusher.Flush()
	}

	s.logger.Info("crawl stream finished", "domain", domain)
}

// spiderFor builds a spider for the seed's host, applying any per-site
// configuration overrides.
func (s *Server) spiderFor(seed string) *crawler.Spider {
	opts := []crawler.SpiderOption{
		crawler.WithLogger(s.logger),
		crawler.WithSpiderUserAgent(s.cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(s.cfg.MaxBodySize),
	}

	host := ""
	if u, err := url.Parse(seed); err == nil {
		host = u.Host
	}

	maxPages, delay, headers := s.cfg.SiteOptions(host)
	opts = append(opts,
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(delay),
		crawler.WithSpiderHeaders(headers),
	)

	return crawler.NewSpider(s.client, opts...)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // nothing to do for a dead client
}
