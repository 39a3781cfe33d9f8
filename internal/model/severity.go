package model

import "fmt"

// Severity represents how strongly an audit finding affects search
// visibility. It lets report consumers sort and filter findings by impact.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output, and the JSON codec serializes the string form so
// reports and the crawl archive stay readable.
type Severity int

const (
	// SeverityInfo indicates observations with no direct ranking impact.
	// Example: a page declaring a canonical URL that points to itself.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues worth cleaning up.
	// Examples: images without alt text, slightly long titles.
	SeverityLow

	// SeverityMedium indicates issues that measurably hurt rankings.
	// Examples: missing meta descriptions, thin content.
	SeverityMedium

	// SeverityHigh indicates serious issues that suppress pages in search.
	// Examples: missing titles, duplicate content across URLs.
	SeverityHigh

	// SeverityCritical indicates pages that cannot rank at all.
	// Example: internal links leading to broken or unreachable pages.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a severity from its string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSeverity(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a string (optionally quoted) into a Severity.
func ParseSeverity(text string) (Severity, error) {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	switch text {
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", text)
	}
}

// CheckInfo contains metadata about an audit check: its severity, why it
// matters, and how to fix findings it produces.
type CheckInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// checkInfoMapping maps audit check identifiers to their metadata.
// This centralized mapping keeps impact assessment consistent across the
// report writers and the crawl archive.
//
// Design decision: We use a map rather than embedding severity in each
// audit step because:
//  1. It allows tuning impact ratings without touching step logic
//  2. It provides a single source of truth for severity levels
//  3. It makes it easy to generate check documentation
var checkInfoMapping = map[string]CheckInfo{
	// CRITICAL - pages that cannot rank
	"broken-page": {
		Severity:       SeverityCritical,
		Impact:         "Internal links lead to pages that fail to load or return errors, wasting crawl budget and losing link equity.",
		Recommendation: "Fix or remove links to broken pages, and repair pages returning error statuses.",
	},

	// HIGH - strong negative ranking signals
	"missing-title": {
		Severity:       SeverityHigh,
		Impact:         "Pages without a <title> have no headline in search results and rank poorly.",
		Recommendation: "Give every page a unique, descriptive title of roughly 50-60 characters.",
	},
	"duplicate-title": {
		Severity:       SeverityHigh,
		Impact:         "Identical titles on multiple pages make them compete with each other in search results.",
		Recommendation: "Write a distinct title for each page describing its unique content.",
	},
	"duplicate-content": {
		Severity:       SeverityHigh,
		Impact:         "Byte-identical content served from multiple URLs splits ranking signals between duplicates.",
		Recommendation: "Consolidate duplicate URLs with redirects or declare one canonical URL.",
	},
	"cross-host-canonical": {
		Severity:       SeverityHigh,
		Impact:         "A canonical link pointing at a different host hands this page's ranking signals to another site.",
		Recommendation: "Point canonical links at the preferred URL on this site unless cross-domain syndication is intended.",
	},

	// MEDIUM - measurable ranking drag
	"missing-meta-description": {
		Severity:       SeverityMedium,
		Impact:         "Search engines substitute arbitrary page text for the snippet, lowering click-through rates.",
		Recommendation: "Add a meta description of roughly 50-160 characters summarizing the page.",
	},
	"missing-h1": {
		Severity:       SeverityMedium,
		Impact:         "Pages without an <h1> lack a clear topical heading for both users and crawlers.",
		Recommendation: "Add exactly one <h1> stating the page's main topic.",
	},
	"thin-content": {
		Severity:       SeverityMedium,
		Impact:         "Pages with very little text are treated as low-value and rarely rank.",
		Recommendation: "Expand the page with substantive content or consolidate it into a related page.",
	},

	// LOW - worth cleaning up
	"long-title": {
		Severity:       SeverityLow,
		Impact:         "Titles beyond roughly 60 characters get truncated in search results.",
		Recommendation: "Shorten titles so the full headline is visible in result listings.",
	},
	"meta-description-length": {
		Severity:       SeverityLow,
		Impact:         "Very short or very long descriptions are rewritten or truncated by search engines.",
		Recommendation: "Keep meta descriptions between roughly 50 and 160 characters.",
	},
	"images-missing-alt": {
		Severity:       SeverityLow,
		Impact:         "Images without alt text are invisible to image search and screen readers.",
		Recommendation: "Add descriptive alt attributes to content images; use alt=\"\" for decorative ones.",
	},

	// INFO - observations only
	"missing-canonical": {
		Severity:       SeverityInfo,
		Impact:         "Without a canonical link, search engines pick the indexed URL themselves.",
		Recommendation: "Declare a canonical URL on pages reachable via multiple paths or parameters.",
	},
}

// GetSeverity returns the severity level for an audit check identifier.
// Returns SeverityInfo if the check is not in the mapping.
func GetSeverity(check string) Severity {
	if info, ok := checkInfoMapping[check]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetCheckInfo returns the full metadata for an audit check identifier.
// Returns a default CheckInfo with SeverityInfo if the check is unknown.
func GetCheckInfo(check string) CheckInfo {
	if info, ok := checkInfoMapping[check]; ok {
		return info
	}
	return CheckInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown check. Review manually.",
		Recommendation: "Investigate the finding and assess impact.",
	}
}
