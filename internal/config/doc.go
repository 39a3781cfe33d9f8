// Package config provides configuration structures and utilities for
// pagelens. It defines the crawl settings (budget, politeness delay,
// timeouts, identification), the serve and report options, and the
// per-site override file format.
package config
