package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pagelens/pagelens/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and severity indicators.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
//  3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables impact and recommendation detail in the output.
	verbose bool

	// titleCaser renders check identifiers as headline text,
	// e.g. "missing-title" becomes "Missing Title".
	titleCaser cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with impact and recommendation
// details for each finding.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeResponses(&sb, report)
	w.writeFindings(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        PAGELENS SEO REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target:         %s\n", report.Target))
	sb.WriteString(fmt.Sprintf("Seed URL:       %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Crawl Date:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d of %d budgeted\n", report.PagesCrawled(), report.Budget))

	if report.Error != "" {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SEVERITY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  CRITICAL: %d\n", report.CountBySeverity(model.SeverityCritical)))
	sb.WriteString(fmt.Sprintf("  HIGH:     %d\n", report.CountBySeverity(model.SeverityHigh)))
	sb.WriteString(fmt.Sprintf("  MEDIUM:   %d\n", report.CountBySeverity(model.SeverityMedium)))
	sb.WriteString(fmt.Sprintf("  LOW:      %d\n", report.CountBySeverity(model.SeverityLow)))
	sb.WriteString(fmt.Sprintf("  INFO:     %d\n", report.CountBySeverity(model.SeverityInfo)))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d findings\n", report.TotalFindings()))
	sb.WriteString("\n")
}

// writeResponses writes the response class breakdown.
func (w *SimpleWriter) writeResponses(sb *strings.Builder, report *model.CrawlReport) {
	counts := report.StatusClassCounts()
	if len(counts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWLED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(counts) == 0 {
		sb.WriteString("  No pages crawled\n")
	} else {
		for _, class := range []string{"2xx", "3xx", "4xx", "5xx", "failed"} {
			if counts[class] > 0 {
				sb.WriteString(fmt.Sprintf("  [%s] %d pages\n", class, counts[class]))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.CrawlReport) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FINDINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	// Write findings in order of severity (critical first)
	severities := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	}

	for _, severity := range severities {
		findings := report.GetFindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}

		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	indicator := w.getSeverityIndicator(severity)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, severity.String()))

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, finding := range findings {
		headline := w.titleCaser.String(strings.ReplaceAll(finding.Check, "-", " "))
		sb.WriteString(fmt.Sprintf("  * %s\n", headline))
		sb.WriteString(fmt.Sprintf("    %s\n", finding.Message))
		if len(finding.URLs) > 0 {
			sb.WriteString(fmt.Sprintf("    Affected: %s\n", w.formatURLs(finding.URLs)))
		}
		if w.verbose {
			info := model.GetCheckInfo(finding.Check)
			sb.WriteString(fmt.Sprintf("    Impact: %s\n", info.Impact))
			sb.WriteString(fmt.Sprintf("    Fix: %s\n", info.Recommendation))
		}
	}
	sb.WriteString("\n")
}

// formatURLs renders the affected URL list, abbreviating long lists.
func (w *SimpleWriter) formatURLs(urls []string) string {
	const maxShown = 3
	if len(urls) <= maxShown {
		return strings.Join(urls, ", ")
	}
	return fmt.Sprintf("%s and %d more",
		strings.Join(urls[:maxShown], ", "), len(urls)-maxShown)
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by pagelens\n")
	sb.WriteString("https://github.com/pagelens/pagelens\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
