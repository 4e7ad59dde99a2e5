package pagerank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/nao1215/linkrank/internal/corpus"
	"gonum.org/v1/gonum/floats"
)

// Distribution maps every page of a corpus to a probability.
// Pages with zero probability are present with an explicit 0.
type Distribution map[string]float64

// Rank is a single page and its probability.
type Rank struct {
	Page  string  `json:"page"`
	Value float64 `json:"value"`
}

// Pages returns the pages of the distribution in lexical order.
func (d Distribution) Pages() []string {
	pages := make([]string, 0, len(d))
	for page := range d {
		pages = append(pages, page)
	}
	slices.Sort(pages)
	return pages
}

// Sum returns the total probability mass. Values are added in page order
// so the result does not depend on map iteration.
func (d Distribution) Sum() float64 {
	values := make([]float64, 0, len(d))
	for _, page := range d.Pages() {
		values = append(values, d[page])
	}
	return floats.Sum(values)
}

// Ranked returns the pages ordered by decreasing probability. Ties are
// broken by page name.
func (d Distribution) Ranked() []Rank {
	ranks := make([]Rank, 0, len(d))
	for page, v := range d {
		ranks = append(ranks, Rank{Page: page, Value: v})
	}
	slices.SortFunc(ranks, func(a, b Rank) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Page, b.Page)
	})
	return ranks
}

// MaxDelta returns the largest absolute per-page difference between d and
// other. Pages missing from one side count as 0.
func (d Distribution) MaxDelta(other Distribution) float64 {
	var worst float64
	for page, v := range d {
		worst = math.Max(worst, math.Abs(v-other[page]))
	}
	for page, v := range other {
		if _, ok := d[page]; !ok {
			worst = math.Max(worst, math.Abs(v))
		}
	}
	return worst
}

// fromVector converts an index-ordered vector into a Distribution.
func fromVector(c *corpus.Corpus, v []float64) Distribution {
	d := make(Distribution, len(v))
	for i, p := range v {
		d[c.Page(i)] = p
	}
	return d
}

// toVector converts d into an index-ordered vector. Every page of c must
// be present with a finite, non-negative value and d must not name pages
// outside c.
func toVector(c *corpus.Corpus, d Distribution) ([]float64, error) {
	if len(d) != c.Len() {
		return nil, fmt.Errorf("%w: distribution has %d pages, corpus has %d", ErrInvalidArgument, len(d), c.Len())
	}
	v := make([]float64, c.Len())
	for page, p := range d {
		i, ok := c.Index(page)
		if !ok {
			return nil, fmt.Errorf("%w: page %q is not in the corpus", ErrInvalidArgument, page)
		}
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: rank of %q is %v", ErrInvalidArgument, page, p)
		}
		v[i] = p
	}
	return v, nil
}

// validate checks the arguments shared by every estimator.
func validate(c *corpus.Corpus, damping float64) error {
	if c.Len() == 0 {
		return fmt.Errorf("%w: corpus is empty", ErrInvalidArgument)
	}
	if math.IsNaN(damping) || damping < 0 || damping > 1 {
		return fmt.Errorf("%w: damping factor %v outside [0,1]", ErrInvalidArgument, damping)
	}
	return nil
}
