// Package server exposes the crawl engine over HTTP.
//
// The main endpoint is GET /crawl?domain=<host>, which starts a crawl
// and streams its progress and per-page results as newline-delimited
// JSON (NDJSON). Events are written and flushed as the crawler produces
// them, so clients see progress while the crawl is still running. The
// stream always terminates with a progress event of 100, after which the
// connection closes.
//
// Each request runs its own independent crawl; concurrent requests get
// concurrent crawls. Closing the request aborts its crawl through the
// request context.
//
// Design decision: NDJSON over a plain GET rather than Server-Sent
// Events or WebSockets because one JSON object per line needs no client
// library: curl and a line-oriented JSON parser are enough.
package server
