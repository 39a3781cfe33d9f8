// Package audit turns crawled page records into site-level SEO findings.
//
// The package is organized as a pipeline of steps. The first step runs
// the crawl itself and fills the report with page records; every step
// after it inspects those records and appends findings for the issues it
// detects. Steps run in sequence over a shared report, so later steps
// can rely on earlier ones having completed.
//
// Check identifiers ("missing-title", "duplicate-content", ...) are
// stable strings shared with the model package, which maps them to
// severity, impact, and recommendation metadata.
//
// The BatchProcessor runs the same pipeline over many targets
// concurrently, bounded by a configurable limit. Each target still gets
// a strictly sequential, polite crawl; concurrency exists only across
// different sites.
package audit
