package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pagerank"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pieSlices is the number of top pages shown individually in the pie
// chart; the rest are merged into one "other" slice.
const pieSlices = 8

// droppedMassEpsilon is the shortfall from 1 below which a distribution is
// treated as complete.
const droppedMassEpsilon = 1e-6

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
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
func (w *MarkdownWriter) Write(report *model.RankReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeRanks(md, report)
	w.writeAlert(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the corpus summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RankReport) {
	md.H1("PageRank Report")
	md.PlainText("")

	p := report.Parameters
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Corpus", "`" + report.Corpus + "`"},
			{"Ranked", report.DateRanked.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(report.Pages)},
			{"Links", strconv.Itoa(report.Links)},
			{"Dangling Pages", strconv.Itoa(len(report.DanglingPages))},
			{"Strongly Connected Components", strconv.Itoa(report.Components)},
			{"Damping", strconv.FormatFloat(p.Damping, 'g', -1, 64)},
			{"Samples", strconv.Itoa(p.Samples)},
			{"Seed", strconv.FormatUint(p.Seed, 10)},
			{"Sweeps", strconv.Itoa(report.Sweeps)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RankReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Cancelled (partial results)"
	case report.Failed():
		return "❌ Error - " + errorText(report)
	case len(report.Iteration) > 0 && !report.Converged:
		return "⚠️ Not converged"
	default:
		return "✅ Complete"
	}
}

// writeRanks writes one table with a column per estimator, pages ordered
// by their primary rank, followed by a pie chart.
func (w *MarkdownWriter) writeRanks(md *markdown.Markdown, report *model.RankReport) {
	md.H2("Ranks")
	md.PlainText("")

	primary := report.Primary()
	if len(primary) == 0 {
		md.PlainText("No ranks were computed.")
		md.PlainText("")
		return
	}

	header := []string{"#", "Page", "Title"}
	estimates := report.Estimates()
	title := cases.Title(language.English)
	for _, e := range estimates {
		header = append(header, title.String(e.Name))
	}

	ranked := primary.Ranked()
	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		row := []string{strconv.Itoa(i + 1), "`" + r.Page + "`", truncateString(report.Title(r.Page), 40)}
		for _, e := range estimates {
			row = append(row, fmt.Sprintf("%.4f", e.Ranks[r.Page]))
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, ranked)
}

// writePieChart writes a mermaid pie chart of the primary distribution.
// Mermaid slices take integer values, so ranks are shown in basis points.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, ranked []pagerank.Rank) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rank Share (basis points)"),
		piechart.WithShowData(true),
	)

	var other float64
	for i, r := range ranked {
		if i >= pieSlices {
			other += r.Value
			continue
		}
		chart.LabelAndIntValue(r.Page, basisPoints(r.Value))
	}
	if other > 0 {
		chart.LabelAndIntValue("other", basisPoints(other))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert notes estimator disagreement and dropped rank.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RankReport) {
	switch {
	case report.Failed():
		md.Cautionf("Ranking failed: %s", errorText(report))
	case len(report.Iteration) > 0 && !report.Converged:
		md.Warningf("Power iteration stopped after %d sweeps without reaching the tolerance.", report.Sweeps)
	case len(report.Iteration) > 0 && report.Iteration.Sum() < 1-droppedMassEpsilon:
		md.Importantf("%d dangling page(s) hold rank that power iteration drops; its ranks sum to %.4f.",
			len(report.DanglingPages), report.Iteration.Sum())
	default:
		if delta, ok := report.Agreement(); ok {
			md.Note(fmt.Sprintf("Sampling and iteration differ by at most %.4f per page.", delta))
		} else {
			md.Tip("Ranking completed.")
		}
	}
	md.PlainText("")
}

// WriteDiff outputs the comparison of two runs in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *model.RankDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Rank Changes")
	md.PlainText("")
	md.PlainTextf("`%s` from %s to %s",
		diff.Corpus, diff.From.Format("2006-01-02 15:04:05"), diff.To.Format("2006-01-02 15:04:05"))
	md.PlainText("")

	if diff.GraphChanged {
		md.Note("The link graph changed between the runs.")
		md.PlainText("")
	}

	rows := make([][]string, len(diff.Pages))
	for i, p := range diff.Pages {
		rows[i] = []string{
			"`" + p.Page + "`",
			fmt.Sprintf("%.4f", p.Before),
			fmt.Sprintf("%.4f", p.After),
			fmt.Sprintf("%+.4f", p.Delta) + deltaNote(p),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Before", "After", "Change"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkrank](https://github.com/nao1215/linkrank)*")
}

// basisPoints converts a probability to an integer count of 1/10000.
func basisPoints(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(math.Round(v * 10000))
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
