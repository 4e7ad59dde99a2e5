package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/linkrank/internal/config"
)

// writeCorpus creates a directory with one HTML file per page, each
// linking to the given targets.
func writeCorpus(t *testing.T, links map[string][]string) string {
	t.Helper()

	dir := t.TempDir()
	for page, targets := range links {
		var body strings.Builder
		body.WriteString("<html><head><title>" + page + "</title></head><body>")
		for _, target := range targets {
			body.WriteString(`<a href="` + target + `">` + target + `</a>`)
		}
		body.WriteString("</body></html>")
		if err := os.WriteFile(filepath.Join(dir, page), []byte(body.String()), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", page, err)
		}
	}
	return dir
}

// ringCorpus creates a.html -> b.html -> c.html -> a.html, whose ranks are
// all exactly 1/3.
func ringCorpus(t *testing.T) string {
	t.Helper()
	return writeCorpus(t, map[string][]string{
		"a.html": {"b.html"},
		"b.html": {"c.html"},
		"c.html": {"a.html"},
	})
}

// emptyConfig writes an empty configuration file, so tests never pick up
// a .linkrank from the working or home directory.
func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "linkrank.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runRankArgs executes the rank command and returns stdout.
func runRankArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRankCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestNewRankCmd tests the rank command flags.
func TestNewRankCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRankCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"damping", "d", "0.85"},
		{"samples", "n", "10000"},
		{"tolerance", "t", "0.001"},
		{"max-iterations", "k", "10000"},
		{"seed", "s", "0"},
		{"dangling", "", "drop"},
		{"reference", "r", "false"},
		{"batch", "b", "4"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"no-save", "", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestBuildConfig tests that flags and the configuration file are merged.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("explicit flags win over file defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "linkrank.yaml")
		content := `defaults:
  damping: 0.9
  tolerance: 0.01
  ignorePatterns:
    - "draft-*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewRankCmd()
		if err := cmd.ParseFlags([]string{
			"-c", configPath, "--damping", "0.5", "-n", "100", "--seed", "7", "--dangling", "uniform", "--no-save",
		}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"site"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Damping != 0.5 {
			t.Errorf("expected flag damping 0.5, got %v", cfg.Damping)
		}
		if cfg.Tolerance != 0.01 {
			t.Errorf("expected file tolerance 0.01, got %v", cfg.Tolerance)
		}
		if cfg.Samples != 100 || cfg.Seed != 7 || cfg.DanglingMode != "uniform" {
			t.Errorf("unexpected settings %+v", cfg.Settings())
		}
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "draft-*" {
			t.Errorf("expected ignore patterns from file, got %v", cfg.IgnorePatterns)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-save to disable saving")
		}
		if len(cfg.Targets) != 1 || !filepath.IsAbs(cfg.Targets[0]) || filepath.Base(cfg.Targets[0]) != "site" {
			t.Errorf("expected absolute target, got %v", cfg.Targets)
		}
	})

	t.Run("explicit missing config file fails", func(t *testing.T) {
		t.Parallel()

		cmd := NewRankCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		_, err := buildConfig(cmd, []string{"site"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

// TestRunRankCmd tests ranking end to end.
func TestRunRankCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints both estimators", func(t *testing.T) {
		t.Parallel()

		dir := ringCorpus(t)
		output, err := runRankArgs(t, "-c", emptyConfig(t), "--no-save", "-n", "1000", "--seed", "1", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "PageRank Results from Sampling (n = 1000)") {
			t.Errorf("expected sampling section:\n%s", output)
		}
		iteration := output[strings.Index(output, "PageRank Results from Iteration"):]
		for _, page := range []string{"a.html", "b.html", "c.html"} {
			if !strings.Contains(iteration, "  "+page+": 0.3333") {
				t.Errorf("expected %s at 1/3:\n%s", page, iteration)
			}
		}
	})

	t.Run("writes JSON report to file", func(t *testing.T) {
		t.Parallel()

		dir := ringCorpus(t)
		outputPath := filepath.Join(t.TempDir(), "reports", "ring.json")
		output, err := runRankArgs(t, "-c", emptyConfig(t), "--no-save", "-n", "100", "--json", "-o", outputPath, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output != "" {
			t.Errorf("expected nothing on stdout, got %q", output)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var decoded struct {
			Report struct {
				Corpus string `json:"corpus"`
				Pages  int    `json:"pages"`
			} `json:"report"`
			Ranking []json.RawMessage `json:"ranking"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Report.Corpus != dir || decoded.Report.Pages != 3 || len(decoded.Ranking) != 3 {
			t.Errorf("unexpected report %+v", decoded)
		}
	})

	t.Run("ranks several directories in argument order", func(t *testing.T) {
		t.Parallel()

		first, second := ringCorpus(t), ringCorpus(t)
		output, err := runRankArgs(t, "-c", emptyConfig(t), "--no-save", "-n", "10", "-b", "2", "--markdown", first, second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		i, j := strings.Index(output, "`"+first+"`"), strings.Index(output, "`"+second+"`")
		if i < 0 || j < 0 || i > j {
			t.Errorf("expected both corpora in order:\n%s", output)
		}
	})

	t.Run("reports corpora that fail", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "missing")
		output, err := runRankArgs(t, "-c", emptyConfig(t), "--no-save", missing)
		if err == nil || !strings.Contains(err.Error(), "could not be ranked") {
			t.Errorf("expected ranking failure, got %v", err)
		}
		if !strings.Contains(output, "Error:") {
			t.Errorf("expected error line in report:\n%s", output)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"no targets", []string{}, config.ErrNoTarget},
			{"damping", []string{"--damping", "1.5", "site"}, config.ErrInvalidDamping},
			{"dangling", []string{"--dangling", "spread", "site"}, config.ErrInvalidDanglingMode},
			{"formats", []string{"--json", "--markdown", "site"}, config.ErrConflictingReportFormats},
		}
		for _, tt := range tests {
			args := append([]string{"-c", emptyConfig(t), "--no-save"}, tt.args...)
			if _, err := runRankArgs(t, args...); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})

	t.Run("rejects invalid per-corpus override", func(t *testing.T) {
		t.Parallel()

		dir := ringCorpus(t)
		configPath := filepath.Join(t.TempDir(), "linkrank.yaml")
		content := "corpora:\n  " + dir + ":\n    samples: -5\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		_, err := runRankArgs(t, "-c", configPath, "--no-save", dir)
		if !errors.Is(err, config.ErrInvalidSamples) {
			t.Errorf("expected ErrInvalidSamples, got %v", err)
		}
	})
}
