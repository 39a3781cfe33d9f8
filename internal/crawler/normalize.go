package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// rejectedSchemes are href prefixes that can never become crawlable URLs.
// The same-host filter would reject most of them anyway, but filtering
// early avoids pointless URL parsing and keeps mailto:/tel: noise out of
// debug logs.
var rejectedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Normalizer canonicalizes URLs for one crawl: a single URL shape per
// page so the frontier can deduplicate, and a fixed base host for the
// same-host filter.
//
// Design decision: The normalizer is bound to the seed at construction
// rather than taking the base host per call because:
//  1. Every call within one crawl uses the same seed anyway
//  2. The trailing-slash rule needs the canonical seed string
//  3. Seed validation happens exactly once, before the crawl starts
type Normalizer struct {
	// seed is the parsed, canonicalized seed URL.
	seed *url.URL

	// seedStr is the canonical string form of the seed.
	seedStr string
}

// NewNormalizer parses and canonicalizes the seed URL. The seed goes
// through the same normalization as discovered links (query and fragment
// stripped, trailing slash stripped, host lowercased) so a discovered
// link back to the seed deduplicates against it.
func NewNormalizer(seed string) (*Normalizer, error) {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("seed URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("seed URL %q has no host", seed)
	}

	canonical := canonicalize(u)
	parsed, err := url.Parse(canonical)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	return &Normalizer{seed: parsed, seedStr: canonical}, nil
}

// Seed returns the canonical seed URL. This is the first URL ever placed
// in the frontier.
func (n *Normalizer) Seed() string {
	return n.seedStr
}

// SeedHost returns the host (including any port) the crawl is bound to.
func (n *Normalizer) SeedHost() string {
	return n.seed.Host
}

// Normalize canonicalizes one discovered href. The page parameter is the
// URL of the referring page, used to resolve relative references:
// root-relative hrefs resolve against the page's scheme and host, other
// relative hrefs against the directory of the page's path. Absolute hrefs
// pass through untouched apart from the stripping steps.
//
// Normalize reports false for hrefs that are not crawlable: fragment-only
// references, javascript:/mailto:/tel:/data: pseudo-links, unparseable
// hrefs, non-http(s) schemes, and anything resolving to a different host.
//
// Normalize is idempotent: feeding its output back in yields the same
// string.
func (n *Normalizer) Normalize(href string, page *url.URL) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	lower := strings.ToLower(href)
	for _, scheme := range rejectedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := page.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(resolved.Host, n.seed.Host) {
		return "", false
	}

	return canonicalize(resolved), true
}

// ResolveLinks runs every raw href through Normalize and collects the
// same-host survivors into a deduplicated slice in first-seen order.
// Individual hrefs that fail to resolve are skipped; they never abort
// processing of the page.
func (n *Normalizer) ResolveLinks(hrefs []string, page *url.URL) []string {
	seen := make(map[string]struct{}, len(hrefs))
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		normalized, ok := n.Normalize(href, page)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	}
	return links
}

// canonicalize renders a URL without query, fragment, or trailing slash,
// with scheme and host lowercased. Because the seed itself goes through
// the same stripping, a discovered link back to the seed with a trailing
// slash collapses onto the canonical seed string and deduplicates.
func canonicalize(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.RawQuery = ""
	c.ForceQuery = false
	c.Fragment = ""
	c.RawFragment = ""
	// Strip every trailing slash, not just one: "/foo//" must land on the
	// same dedup key as "/foo", and stripping a single slash would leave a
	// form that normalizes differently on a second pass.
	s := c.String()
	s = strings.TrimRight(s, "/")
	return s
}

// SeedFromDomain turns a user-supplied domain argument into a seed URL.
// Bare hosts get https:// prepended; anything already carrying a scheme
// passes through unchanged.
func SeedFromDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}
