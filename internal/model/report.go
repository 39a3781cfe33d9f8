package model

import (
	"fmt"
	"time"
)

// CrawlReport is the complete outcome of one crawl: the pages visited in
// discovery order plus the site-level findings computed by the audit
// pipeline. The HTTP surface streams events instead; reports are built by
// the CLI path and by anything replaying a stored crawl from the archive.
type CrawlReport struct {
	// Target is the domain argument as the user supplied it.
	Target string `json:"target"`

	// Seed is the normalized seed URL the crawl actually started from.
	Seed string `json:"seed"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the final progress event was emitted.
	FinishedAt time.Time `json:"finished_at"`

	// Budget is the page budget the crawl ran under.
	Budget int `json:"budget"`

	// Pages holds one record per visited URL, in discovery order.
	Pages []PageRecord `json:"pages"`

	// Findings holds the site-level SEO issues, in audit pipeline order.
	Findings []Finding `json:"findings,omitempty"`

	// Error records a crawl that failed before producing any pages,
	// such as an unparseable seed URL. Empty for normal crawls.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for the given target.
func NewCrawlReport(target, seed string, budget int) *CrawlReport {
	return &CrawlReport{
		Target:    target,
		Seed:      seed,
		Budget:    budget,
		StartedAt: time.Now(),
		Pages:     make([]PageRecord, 0, budget),
	}
}

// AddFinding appends a finding to the report.
func (r *CrawlReport) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// PagesCrawled returns the number of pages visited.
func (r *CrawlReport) PagesCrawled() int {
	return len(r.Pages)
}

// Duration returns the wall-clock time the crawl took.
func (r *CrawlReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountBySeverity returns the number of findings at the given severity.
func (r *CrawlReport) CountBySeverity(s Severity) int {
	count := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			count++
		}
	}
	return count
}

// TotalFindings returns the number of findings across all severities.
func (r *CrawlReport) TotalFindings() int {
	return len(r.Findings)
}

// HasFindings reports whether the audit produced any findings.
func (r *CrawlReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// GetFindingsBySeverity returns the findings at the given severity, in
// audit pipeline order.
func (r *CrawlReport) GetFindingsBySeverity(s Severity) []Finding {
	findings := make([]Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f.Severity == s {
			findings = append(findings, f)
		}
	}
	return findings
}

// StatusClassCounts buckets the visited pages by response class.
// The "failed" bucket holds transport-level failures (status 0).
func (r *CrawlReport) StatusClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, p := range r.Pages {
		switch {
		case p.StatusCode == 0:
			counts["failed"]++
		default:
			counts[fmt.Sprintf("%dxx", p.StatusCode/100)]++
		}
	}
	return counts
}

// Finding is one site-level SEO issue produced by the audit pipeline.
type Finding struct {
	// Check is the stable identifier of the audit check, e.g. "missing-title".
	Check string `json:"check"`

	// Severity is the impact rating, taken from the check metadata.
	Severity Severity `json:"severity"`

	// Message is a human-readable summary of what was found.
	Message string `json:"message"`

	// URLs lists the affected pages.
	URLs []string `json:"urls,omitempty"`
}

// NewFinding creates a finding for the given check, with the severity
// looked up from the central check metadata.
func NewFinding(check, message string, urls ...string) Finding {
	return Finding{
		Check:    check,
		Severity: GetSeverity(check),
		Message:  message,
		URLs:     urls,
	}
}
