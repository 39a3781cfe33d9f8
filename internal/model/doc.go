// Package model defines the data structures shared across pagelens:
// per-page SEO records, crawl stream events, crawl reports, and audit
// findings.
//
// This package contains the following main types:
//
//   - PageRecord: the SEO metadata snapshot for one crawled URL
//   - Event: a progress or result entry on the crawl event stream
//   - CrawlReport: a completed crawl with its pages and audit findings
//   - Finding: one site-level SEO issue detected by the audit pipeline
//
// Design decision: Models live in their own package rather than inside the
// crawler because:
//  1. The crawler, audit, report, database, and server packages all consume them
//  2. Keeping them separate avoids import cycles between producers and consumers
//  3. JSON encoding rules are defined once, next to the types
package model
