// Package main provides the entry point for the pagelens CLI.
//
// pagelens is an SEO auditing crawler for small websites. It crawls a
// site breadth-first from its home page, extracts per-page SEO metadata,
// and reports site-level issues.
//
// Usage:
//
//	pagelens scan <domain>
//	pagelens serve
//
// See --help for all available options.
package main

// main is the entry point for pagelens.
func main() {
	Execute()
}
