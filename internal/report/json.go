package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pagerank"
)

// JSONWriter emits one JSON document per report, for scripts and other
// tools. Distributions are JSON objects keyed by page, and encoding/json
// sorts map keys, so two runs over the same corpus diff cleanly.
type JSONWriter struct {
	baseWriter

	// prefix and indent are passed to json.Encoder.SetIndent. Both empty
	// means compact, one document per line.
	prefix string
	indent string

	// version is stamped into every document when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent formats documents over several lines, see json.MarshalIndent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion stamps the linkrank version into every document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter returns a JSONWriter writing to output. Output is compact
// unless WithIndent or WithPrettyPrint is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written for one rank run.
//
// Design decision: The report is nested instead of extended so that
// output-only fields (version, the sorted ranking) stay out of
// model.RankReport, which is also what the database stores.
type JSONReport struct {
	// Version is the linkrank version that generated this report.
	Version string `json:"version,omitempty"`

	// Report is the full ranking report.
	Report *model.RankReport `json:"report"`

	// Ranking lists pages by decreasing primary rank.
	Ranking []pagerank.Rank `json:"ranking,omitempty"`
}

// NewJSONReport wraps report for output.
func NewJSONReport(report *model.RankReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Report:  report,
		Ranking: report.Primary().Ranked(),
	}
}

// Write encodes report as a JSONReport.
func (w *JSONWriter) Write(report *model.RankReport) (int, error) {
	if report.Error != nil && report.ErrorMessage == "" {
		report.ErrorMessage = report.Error.Error()
	}
	return w.encode(NewJSONReport(report, w.version))
}

// WriteDiff encodes diff as is.
func (w *JSONWriter) WriteDiff(diff *model.RankDiff) (int, error) {
	return w.encode(diff)
}

// encode writes v followed by a newline. HTML escaping is off because page
// names and titles are shown verbatim.
func (w *JSONWriter) encode(v any) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	err := enc.Encode(v)
	return cw.n, err
}
