package model

import (
	"time"

	"github.com/nao1215/linkrank/internal/corpus"
	"github.com/nao1215/linkrank/internal/pagerank"
)

// RankReport is the main ranking result structure.
// It contains everything learned while ranking one corpus directory.
//
// Design decision: We use a single struct for both estimators rather than
// one report per estimator because:
// 1. Sampling and iteration are always compared against each other
// 2. The corpus statistics are shared by both
// 3. One row per run keeps the history database simple
type RankReport struct {
	// === Basic Information ===

	// ID identifies a stored run. Empty until the report is saved.
	ID string `json:"id,omitempty"`

	// Corpus is the directory the pages were read from.
	Corpus string `json:"corpus"`

	// DateRanked is the timestamp when ranking started.
	DateRanked time.Time `json:"date_ranked"`

	// === Corpus Statistics ===

	// Pages is the number of pages in the corpus.
	Pages int `json:"pages"`

	// Links is the number of distinct links between pages.
	Links int `json:"links"`

	// DanglingPages lists pages without outgoing links.
	DanglingPages []string `json:"dangling_pages,omitempty"`

	// Components is the number of strongly connected components.
	Components int `json:"components"`

	// Digest fingerprints the link graph, so reports of an unchanged corpus
	// can be recognized.
	Digest string `json:"digest"`

	// Titles maps pages to their <title>.
	Titles map[string]string `json:"titles,omitempty"`

	// Ignored lists HTML files skipped by ignore patterns.
	Ignored []string `json:"ignored,omitempty"`

	// DroppedLinks counts local anchors whose target is not a corpus page.
	DroppedLinks int `json:"dropped_links"`

	// ExternalLinks counts anchors leaving the corpus.
	ExternalLinks int `json:"external_links"`

	// Graph is the loaded link graph shared between pipeline steps.
	Graph *corpus.Corpus `json:"-"`

	// === Results ===

	// Parameters records the settings used for this run.
	Parameters Parameters `json:"parameters"`

	// Sampling is the Monte Carlo estimate.
	Sampling pagerank.Distribution `json:"sampling,omitempty"`

	// Iteration is the power-iteration result.
	Iteration pagerank.Distribution `json:"iteration,omitempty"`

	// Reference is gonum's textbook PageRank, when requested.
	Reference pagerank.Distribution `json:"reference,omitempty"`

	// Sweeps is the number of power-iteration sweeps performed.
	Sweeps int `json:"sweeps"`

	// Delta is the largest per-page change of the last sweep.
	Delta float64 `json:"delta"`

	// Converged reports whether power iteration reached the tolerance.
	Converged bool `json:"converged"`

	// === Run State ===

	// TimedOut is true if the run was cancelled before all steps finished.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that ran, including a failed one.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that occurred during ranking.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Parameters are the estimator settings of a run.
type Parameters struct {
	// Damping is the damping factor.
	Damping float64 `json:"damping"`

	// Samples is the number of Monte Carlo trials.
	Samples int `json:"samples"`

	// Seed is the Monte Carlo seed actually used.
	Seed uint64 `json:"seed"`

	// Tolerance is the power-iteration convergence threshold.
	Tolerance float64 `json:"tolerance"`

	// MaxIterations is the sweep cap (0 means uncapped).
	MaxIterations int `json:"max_iterations"`

	// DanglingMode is "drop" or "uniform".
	DanglingMode string `json:"dangling_mode"`
}

// NewRankReport creates a new report for the given corpus directory.
func NewRankReport(dir string) *RankReport {
	return &RankReport{
		Corpus:     dir,
		DateRanked: time.Now(),
		Titles:     make(map[string]string),
	}
}

// SetGraph records the loaded corpus and its statistics.
func (r *RankReport) SetGraph(c *corpus.Corpus) {
	r.Graph = c
	r.Pages = c.Len()
	r.Links = c.EdgeCount()
	r.DanglingPages = c.Dangling()
	r.Components = c.Components()
	r.Digest = c.Digest()
}

// Title returns the title of page, or the page name when it has none.
func (r *RankReport) Title(page string) string {
	if title, ok := r.Titles[page]; ok && title != "" {
		return title
	}
	return page
}

// Failed reports whether the run ended with an error.
func (r *RankReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// Primary returns the distribution used to compare runs: the iteration
// result when present, otherwise the sampling estimate.
func (r *RankReport) Primary() pagerank.Distribution {
	if len(r.Iteration) > 0 {
		return r.Iteration
	}
	return r.Sampling
}

// Agreement returns the largest per-page difference between the sampling
// estimate and the iteration result, and false when either is missing.
func (r *RankReport) Agreement() (float64, bool) {
	if len(r.Sampling) == 0 || len(r.Iteration) == 0 {
		return 0, false
	}
	return r.Sampling.MaxDelta(r.Iteration), true
}

// Estimate is the distribution computed by one estimator.
type Estimate struct {
	// Name is "sampling", "iteration" or "reference".
	Name string

	// Ranks is the computed distribution.
	Ranks pagerank.Distribution
}

// Estimates returns the distributions present in the report in a fixed
// order: sampling, iteration, reference.
func (r *RankReport) Estimates() []Estimate {
	all := []Estimate{
		{Name: "sampling", Ranks: r.Sampling},
		{Name: "iteration", Ranks: r.Iteration},
		{Name: "reference", Ranks: r.Reference},
	}
	estimates := all[:0]
	for _, e := range all {
		if len(e.Ranks) > 0 {
			estimates = append(estimates, e)
		}
	}
	return estimates
}
