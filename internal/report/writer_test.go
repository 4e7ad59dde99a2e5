package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pagerank"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.RankReport {
	report := model.NewRankReport("corpus0")
	report.DateRanked = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report.Pages = 4
	report.Links = 5
	report.DanglingPages = []string{"4.html"}
	report.Components = 2
	report.Titles["2.html"] = "Second Page"
	report.Parameters = model.Parameters{
		Damping:       0.85,
		Samples:       10000,
		Seed:          42,
		Tolerance:     0.001,
		MaxIterations: 10000,
		DanglingMode:  "uniform",
	}
	report.Sampling = pagerank.Distribution{
		"1.html": 0.2202, "2.html": 0.4289, "3.html": 0.2202, "4.html": 0.1307,
	}
	report.Iteration = pagerank.Distribution{
		"1.html": 0.2198, "2.html": 0.4294, "3.html": 0.2198, "4.html": 0.1310,
	}
	report.Converged = true
	report.Sweeps = 12
	return report
}

// createTestDiff creates a diff between two runs.
func createTestDiff() *model.RankDiff {
	older := createTestReport()
	newer := createTestReport()
	newer.DateRanked = older.DateRanked.Add(24 * time.Hour)
	newer.Digest = "changed"
	newer.Iteration = pagerank.Distribution{"1.html": 0.3, "2.html": 0.4, "5.html": 0.3}
	return model.Diff(older, newer)
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes classic layout", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := `PageRank Results from Sampling (n = 10000)
  1.html: 0.2202
  2.html: 0.4289
  3.html: 0.2202
  4.html: 0.1307
PageRank Results from Iteration
  1.html: 0.2198
  2.html: 0.4294
  3.html: 0.2198
  4.html: 0.1310
`
		if buf.String() != expected {
			t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), expected)
		}
	})

	t.Run("rank order puts the top page first", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithRankOrder(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(buf.String(), "\n")
		if lines[1] != "  2.html: 0.4289" {
			t.Errorf("expected 2.html first, got %q", lines[1])
		}
	})

	t.Run("verbose mode includes statistics", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Corpus:     corpus0", "Pages:      4 (1 dangling)", "Seed:       42", "Agreement:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("marks non-converged iteration and errors", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Converged = false
		report.Sweeps = 3
		report.Error = errors.New("iteration failed")

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "PageRank Results from Iteration (not converged after 3 sweeps)") {
			t.Errorf("expected non-convergence note:\n%s", output)
		}
		if !strings.Contains(output, "Error: iteration failed") {
			t.Errorf("expected error line:\n%s", output)
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "link graph changed") {
			t.Errorf("expected graph change note:\n%s", output)
		}
		if !strings.Contains(output, "5.html: 0.0000 -> 0.3000 (+0.3000) new") {
			t.Errorf("expected added page line:\n%s", output)
		}
		if !strings.Contains(output, "4.html: 0.1310 -> 0.0000 (-0.1310) removed") {
			t.Errorf("expected removed page line:\n%s", output)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version string `json:"version"`
			Report  struct {
				Corpus   string             `json:"corpus"`
				Sampling map[string]float64 `json:"sampling"`
			} `json:"report"`
			Ranking []pagerank.Rank `json:"ranking"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", decoded.Version)
		}
		if decoded.Report.Corpus != "corpus0" {
			t.Errorf("expected corpus0, got %q", decoded.Report.Corpus)
		}
		if decoded.Report.Sampling["2.html"] != 0.4289 {
			t.Errorf("expected sampling value, got %v", decoded.Report.Sampling)
		}
		if len(decoded.Ranking) != 4 || decoded.Ranking[0].Page != "2.html" {
			t.Errorf("expected ranking led by 2.html, got %v", decoded.Ranking)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected single line output, got %q", buf.String())
		}
	})

	t.Run("keeps titles verbatim and counts bytes", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Titles["3.html"] = "Q&A <draft>"

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}
		if !strings.Contains(buf.String(), `"3.html":"Q&A <draft>"`) {
			t.Errorf("expected unescaped title: %s", buf.String())
		}
	})

	t.Run("serializes error message", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = errors.New("boom")

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"error":"boom"`) {
			t.Errorf("expected error message in output: %s", buf.String())
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.RankDiff
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !decoded.GraphChanged || len(decoded.Pages) != 5 {
			t.Errorf("unexpected diff %+v", decoded)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# PageRank Report", "## Ranks", "Second Page", "```mermaid", "pie", "`corpus0`"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("warns about dropped rank", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Parameters.DanglingMode = "drop"
		report.Iteration = pagerank.Distribution{"1.html": 0.2, "2.html": 0.3}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ranks sum to 0.5000") {
			t.Errorf("expected dropped rank note:\n%s", buf.String())
		}
	})

	t.Run("reports empty run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewRankReport("empty")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No ranks were computed.") {
			t.Errorf("expected empty note:\n%s", buf.String())
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteDiff(createTestDiff()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# Rank Changes") {
			t.Errorf("expected diff header:\n%s", buf.String())
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}

	if _, err := mw.WriteDiff(createTestDiff()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestTruncateString tests the truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"a long page title", 10, "a long ..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
