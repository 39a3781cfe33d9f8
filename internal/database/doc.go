// Package database provides SQLite-based persistence for crawl results.
//
// The archive serves two purposes: keeping full crawl reports so past
// audits can be listed and re-rendered without re-crawling, and keeping
// per-page records so repeated audits of the same site can be compared
// over time.
//
// The archive is strictly write-behind: the crawler never consults it,
// so archived URLs never influence a live crawl's frontier.
//
// Design decision: We use modernc.org/sqlite rather than mattn/go-sqlite3
// because it is a pure Go implementation, which keeps cross-compilation
// simple and avoids cgo entirely.
package database
