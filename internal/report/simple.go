package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pagerank"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text reports.
//
// The default layout is one section per estimator, pages in name order
// with four decimals:
//
//	PageRank Results from Sampling (n = 10000)
//	  1.html: 0.2202
//	  2.html: 0.4289
//
// Design decision: We use plain text without ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or diff between runs
// 3. Scripts written against the classic layout keep working
type SimpleWriter struct {
	baseWriter

	// byRank orders pages by decreasing rank instead of by name.
	byRank bool

	// verbose adds corpus statistics and run parameters.
	verbose bool

	// title capitalizes estimator names in section headers.
	title cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithRankOrder lists pages by decreasing rank instead of by name.
func WithRankOrder(byRank bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.byRank = byRank
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RankReport) (int, error) {
	var sb strings.Builder

	if w.verbose {
		w.writeHeader(&sb, report)
	}

	if len(report.Sampling) > 0 {
		w.writeSection(&sb, "sampling", fmt.Sprintf(" (n = %d)", report.Parameters.Samples), report.Sampling)
	}
	if len(report.Iteration) > 0 {
		detail := ""
		if !report.Converged {
			detail = fmt.Sprintf(" (not converged after %d sweeps)", report.Sweeps)
		}
		w.writeSection(&sb, "iteration", detail, report.Iteration)
	}
	if len(report.Reference) > 0 {
		w.writeSection(&sb, "reference", "", report.Reference)
	}

	if report.Failed() {
		sb.WriteString(fmt.Sprintf("Error: %s\n", errorText(report)))
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes corpus statistics and run parameters.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RankReport) {
	sb.WriteString(fmt.Sprintf("Corpus:     %s\n", report.Corpus))
	sb.WriteString(fmt.Sprintf("Date:       %s\n", report.DateRanked.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Pages:      %d (%d dangling)\n", report.Pages, len(report.DanglingPages)))
	sb.WriteString(fmt.Sprintf("Links:      %d (%d dropped, %d external)\n",
		report.Links, report.DroppedLinks, report.ExternalLinks))
	sb.WriteString(fmt.Sprintf("Components: %d\n", report.Components))

	p := report.Parameters
	sb.WriteString(fmt.Sprintf("Damping:    %g\n", p.Damping))
	sb.WriteString(fmt.Sprintf("Seed:       %d\n", p.Seed))
	sb.WriteString(fmt.Sprintf("Tolerance:  %g (%s dangling rank)\n", p.Tolerance, p.DanglingMode))
	if delta, ok := report.Agreement(); ok {
		sb.WriteString(fmt.Sprintf("Agreement:  %.4f max difference between estimators\n", delta))
	}
	sb.WriteString("\n")
}

// writeSection writes one distribution under the estimator's header.
func (w *SimpleWriter) writeSection(sb *strings.Builder, estimator, detail string, d pagerank.Distribution) {
	sb.WriteString("PageRank Results from ")
	sb.WriteString(w.title.String(estimator))
	sb.WriteString(detail)
	sb.WriteString("\n")

	for _, r := range ordered(d, w.byRank) {
		sb.WriteString(fmt.Sprintf("  %s: %.4f\n", r.Page, r.Value))
	}
}

// WriteDiff outputs the comparison of two runs.
func (w *SimpleWriter) WriteDiff(diff *model.RankDiff) (int, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Rank changes for %s\n", diff.Corpus))
	sb.WriteString(fmt.Sprintf("  from %s to %s\n",
		diff.From.Format("2006-01-02 15:04:05"), diff.To.Format("2006-01-02 15:04:05")))
	if diff.GraphChanged {
		sb.WriteString("  link graph changed\n")
	}
	for _, p := range diff.Pages {
		sb.WriteString(fmt.Sprintf("  %s: %.4f -> %.4f (%+.4f)%s\n",
			p.Page, p.Before, p.After, p.Delta, deltaNote(p)))
	}

	return w.output.Write([]byte(sb.String()))
}

// ordered returns the ranks in name or rank order.
func ordered(d pagerank.Distribution, byRank bool) []pagerank.Rank {
	if byRank {
		return d.Ranked()
	}
	pages := d.Pages()
	ranks := make([]pagerank.Rank, len(pages))
	for i, page := range pages {
		ranks[i] = pagerank.Rank{Page: page, Value: d[page]}
	}
	return ranks
}

// deltaNote marks added and removed pages.
func deltaNote(p model.PageDelta) string {
	switch {
	case p.Added:
		return " new"
	case p.Removed:
		return " removed"
	default:
		return ""
	}
}

// errorText returns the error message of a failed report.
func errorText(report *model.RankReport) string {
	if report.ErrorMessage != "" {
		return report.ErrorMessage
	}
	if report.Error != nil {
		return report.Error.Error()
	}
	return ""
}
