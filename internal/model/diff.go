package model

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// PageDelta is the change of one page's rank between two runs.
type PageDelta struct {
	// Page is the page name.
	Page string `json:"page"`

	// Before is the rank in the older run (0 if the page was absent).
	Before float64 `json:"before"`

	// After is the rank in the newer run (0 if the page was removed).
	After float64 `json:"after"`

	// Delta is After - Before.
	Delta float64 `json:"delta"`

	// Added is true when the page only exists in the newer run.
	Added bool `json:"added,omitempty"`

	// Removed is true when the page only exists in the older run.
	Removed bool `json:"removed,omitempty"`
}

// RankDiff compares two runs of the same corpus.
type RankDiff struct {
	// Corpus is the directory both runs ranked.
	Corpus string `json:"corpus"`

	// From is the date of the older run.
	From time.Time `json:"from"`

	// To is the date of the newer run.
	To time.Time `json:"to"`

	// GraphChanged is true when the link graph differs between the runs.
	GraphChanged bool `json:"graph_changed"`

	// Pages holds one entry per page of either run, largest change first.
	Pages []PageDelta `json:"pages"`
}

// Diff compares the primary distributions of two reports. The reports
// may be passed in any order; the older one becomes the baseline.
func Diff(a, b *RankReport) *RankDiff {
	if b.DateRanked.Before(a.DateRanked) {
		a, b = b, a
	}

	before, after := a.Primary(), b.Primary()
	deltas := make([]PageDelta, 0, len(after))
	for page, v := range after {
		old, ok := before[page]
		deltas = append(deltas, PageDelta{
			Page:   page,
			Before: old,
			After:  v,
			Delta:  v - old,
			Added:  !ok,
		})
	}
	for page, v := range before {
		if _, ok := after[page]; !ok {
			deltas = append(deltas, PageDelta{
				Page:    page,
				Before:  v,
				Delta:   -v,
				Removed: true,
			})
		}
	}
	slices.SortFunc(deltas, func(x, y PageDelta) int {
		if c := cmp.Compare(math.Abs(y.Delta), math.Abs(x.Delta)); c != 0 {
			return c
		}
		return cmp.Compare(x.Page, y.Page)
	})

	return &RankDiff{
		Corpus:       b.Corpus,
		From:         a.DateRanked,
		To:           b.DateRanked,
		GraphChanged: a.Digest != b.Digest,
		Pages:        deltas,
	}
}

// MaxChange returns the largest absolute rank change, or 0 for an empty diff.
func (d *RankDiff) MaxChange() float64 {
	if len(d.Pages) == 0 {
		return 0
	}
	return math.Abs(d.Pages[0].Delta)
}
