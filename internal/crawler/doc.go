// Package crawler provides the same-host SEO crawl engine for pagelens.
//
// # Architecture
//
// The package is designed around the Spider type, which drives the crawl
// loop: dequeue from the frontier, fetch one page, extract its SEO
// metadata, discover same-host links, emit events, pause, repeat. The
// supporting types are each usable on their own:
//
//   - Normalizer: canonicalizes URLs for deduplication and same-host checks
//   - Fetcher: retrieves one URL and classifies the response
//   - ParsePage: extracts per-page SEO metadata and raw links from HTML
//   - Frontier: the FIFO pending queue with visited tracking and the page budget
//   - Spider: the orchestrator that owns the loop and the event stream
//
// # Politeness
//
// A crawl is strictly sequential: exactly one fetch is in flight at a
// time, with a fixed delay between consecutive requests. This is a
// deliberate rate limit toward the crawled host, not an accidental
// limitation. Distinct crawls share no state and may run in parallel.
//
// # Event stream
//
// Crawl returns an unbuffered channel of model.Event values. Sends block
// until the consumer reads, so the producer naturally slows to the
// consumer's pace. The channel is closed after the final progress event
// with value 100, which every crawl ends with regardless of how it
// stopped. Cancelling the context stops the loop at the next iteration,
// blocking send, fetch, or delay.
//
// # Failure handling
//
// Per-page failures are data, not errors: a transport failure becomes a
// PageRecord with status 0, a non-2xx response keeps its status with empty
// metadata, and an HTML parse error yields default field values. Only an
// unusable seed URL fails a crawl, and it does so before any event is
// emitted. Nothing is ever retried.
package crawler
