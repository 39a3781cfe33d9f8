package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to keep crawls polite toward the target host
// while still finishing a typical small site in a reasonable time.
const (
	// DefaultTimeout is the per-fetch timeout. A hung fetch would otherwise
	// stall the whole crawl, since exactly one request is in flight at a
	// time. Expired fetches are recorded as transport failures (status 0).
	DefaultTimeout = 10 * time.Second

	// DefaultMaxPages is the page budget: the hard cap on URLs ever added
	// to the visited set in one crawl. It bounds both crawl duration and
	// the load placed on the target site.
	DefaultMaxPages = 50

	// DefaultCrawlDelay is the politeness delay between consecutive
	// requests to the crawled host. The crawler is strictly sequential, so
	// this bounds the request rate to one per delay interval.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies pagelens in HTTP requests. A descriptive
	// User-Agent with a contact reference lets site operators identify and
	// reach the crawler's operator from their access logs.
	DefaultUserAgent = "pagelens/1.0 (+https://github.com/pagelens/pagelens; contact: crawler@pagelens.dev)"

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB is ample for HTML documents while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultBatchSize is the number of concurrent scans when the CLI is
	// given multiple targets. Politeness is per host, so scanning distinct
	// hosts concurrently does not violate the per-host rate contract.
	DefaultBatchSize = 4

	// DefaultAddr is the listen address of the crawl API server.
	DefaultAddr = ":8080"

	// AppName is the application name used for XDG directory paths.
	AppName = "pagelens"
)

// Config holds all configuration options for pagelens.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ServeConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Timeout is the timeout applied to each page fetch.
	Timeout time.Duration

	// MaxPages is the crawl page budget. The number of visited URLs never
	// exceeds it, and enqueueing stops once pending+visited reaches it.
	MaxPages int

	// CrawlDelay is the fixed politeness pause between consecutive fetches
	// to the crawled host.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with every outbound request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated.
	MaxBodySize int64

	// BatchSize is the number of concurrent scans when the CLI receives
	// multiple targets. Each target still gets its own sequential crawl.
	BatchSize int

	// Addr is the listen address for the serve command.
	Addr string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the plain summary.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the plain
	// summary. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .pagelens.yaml in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory for the SQLite crawl archive. When set,
	// finished crawl reports are stored there for the history command.
	// When empty, reports are not archived. Note that only completed
	// crawls are stored; in-flight crawl state is never persisted and a
	// crawl can never be resumed from the archive.
	DBDir string

	// SaveToDB indicates whether to archive finished crawls.
	// Automatically set to true when DBDir is configured.
	SaveToDB bool

	// Targets is the list of domains or URLs to crawl.
	Targets []string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, budget).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		MaxPages:    DefaultMaxPages,
		CrawlDelay:  DefaultCrawlDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		Addr:        DefaultAddr,
	}
}

// XDGDataDir returns the XDG data directory for pagelens.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/pagelens
// On macOS: ~/Library/Application Support/pagelens
// On Windows: %LOCALAPPDATA%\pagelens
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagelens.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific sentinel error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Timeout must be positive; zero would cause immediate fetch failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// The budget must allow at least the seed page
	if c.MaxPages <= 0 {
		return ErrInvalidBudget
	}

	// CrawlDelay must be non-negative; zero disables the politeness pause
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// SiteOptions returns the effective crawl options for one host, merging the
// global configuration with any per-site overrides from the config file.
func (c *Config) SiteOptions(host string) (maxPages int, delay time.Duration, headers map[string]string) {
	maxPages = c.MaxPages
	delay = c.CrawlDelay

	if c.SiteConfigs == nil {
		return maxPages, delay, nil
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}
	if !site.Delay.IsZero() {
		delay = site.Delay.Duration
	}
	return maxPages, delay, site.Headers
}
