package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/pagelens/pagelens/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResponses(md, report)
	w.writeFindings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("pagelens SEO Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Seed URL", "`" + report.Seed + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(report.PagesCrawled())},
			{"Page Budget", strconv.Itoa(report.Budget)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.Error != "" {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(report.CountBySeverity(model.SeverityCritical))},
			{"🟠 High", strconv.Itoa(report.CountBySeverity(model.SeverityHigh))},
			{"🟡 Medium", strconv.Itoa(report.CountBySeverity(model.SeverityMedium))},
			{"🔵 Low", strconv.Itoa(report.CountBySeverity(model.SeverityLow))},
			{"⚪ Info", strconv.Itoa(report.CountBySeverity(model.SeverityInfo))},
			{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	severities := []struct {
		level model.Severity
		label string
	}{
		{model.SeverityCritical, "Critical"},
		{model.SeverityHigh, "High"},
		{model.SeverityMedium, "Medium"},
		{model.SeverityLow, "Low"},
		{model.SeverityInfo, "Info"},
	}
	for _, sev := range severities {
		if count := report.CountBySeverity(sev.level); count > 0 {
			chart.LabelAndIntValue(sev.label, uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.CountBySeverity(model.SeverityCritical) > 0:
		md.Cautionf(
			"Critical SEO issues detected! %d critical finding(s) require immediate attention.",
			report.CountBySeverity(model.SeverityCritical),
		)
	case report.CountBySeverity(model.SeverityHigh) > 0:
		md.Warningf(
			"High severity issues detected. %d high severity finding(s) should be addressed.",
			report.CountBySeverity(model.SeverityHigh),
		)
	case report.CountBySeverity(model.SeverityMedium) > 0:
		md.Importantf(
			"Medium severity issues found. %d finding(s) may hold back rankings.",
			report.CountBySeverity(model.SeverityMedium),
		)
	case report.TotalFindings() > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No significant SEO issues detected.")
	}
	md.PlainText("")
}

// writeResponses writes the response class breakdown of the crawl.
func (w *MarkdownWriter) writeResponses(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Crawled Pages")
	md.PlainText("")

	counts := report.StatusClassCounts()
	if len(counts) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	rows := make([][]string, 0, len(classes))
	for _, class := range classes {
		rows = append(rows, []string{class, strconv.Itoa(counts[class])})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Response Class", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No SEO issues detected.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityCritical, "### 🔴 Critical"},
		{model.SeverityHigh, "### 🟠 High"},
		{model.SeverityMedium, "### 🟡 Medium"},
		{model.SeverityLow, "### 🔵 Low"},
		{model.SeverityInfo, "### ⚪ Info"},
	}

	for _, sev := range severities {
		findings := report.GetFindingsBySeverity(sev.level)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	headers := []string{"Check", "Finding", "Recommendation"}

	rows := make([][]string, len(findings))
	for i, f := range findings {
		info := model.GetCheckInfo(f.Check)
		rows[i] = []string{
			"`" + f.Check + "`",
			truncateString(f.Message, 70),
			truncateString(info.Recommendation, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")

	// Affected URLs go into collapsible sections to keep the tables
	// readable on sites with many pages.
	for _, f := range findings {
		if len(f.URLs) == 0 {
			continue
		}
		body := ""
		for _, u := range f.URLs {
			body += "- " + u + "\n"
		}
		md.Details(f.Check+" ("+strconv.Itoa(len(f.URLs))+" pages)", body)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagelens](https://github.com/pagelens/pagelens)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
