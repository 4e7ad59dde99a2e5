package report

import (
	"io"

	"github.com/nao1215/linkrank/internal/model"
)

// Writer renders ranking results to some destination.
//
// Design decision: Every format implements the same two methods so the CLI
// picks a format once and never branches on it again. A rank run and a
// history comparison go through the same writer.
type Writer interface {
	// Write renders one report and returns the number of bytes written.
	Write(report *model.RankReport) (int, error)

	// WriteDiff renders the comparison of two runs of one corpus.
	WriteDiff(diff *model.RankDiff) (int, error)
}

// MultiWriter sends every report to several Writers in order, e.g. a text
// summary on the terminal and JSON in a file.
//
// io.MultiWriter does not fit here: each target renders the report in its
// own format, so the fan-out happens before encoding, not after.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a MultiWriter over writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders report with each writer. It stops at the first failure and
// returns the bytes written so far.
func (m *MultiWriter) Write(report *model.RankReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(report) })
}

// WriteDiff renders diff with each writer, stopping at the first failure.
func (m *MultiWriter) WriteDiff(diff *model.RankDiff) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDiff(diff) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	total := 0
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the destination shared by all formats.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts bytes for encoders that do not report them.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
