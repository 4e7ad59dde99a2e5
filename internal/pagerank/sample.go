package pagerank

import (
	"fmt"
	"sort"

	"github.com/nao1215/linkrank/internal/corpus"
	"gonum.org/v1/gonum/floats"
)

// Source is the randomness consumed by Sample. *rand.Rand from math/rand/v2
// satisfies it; seed it to make Sample reproducible.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64

	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// Sample estimates PageRank by simulating n random-surfer walks.
//
// Each trial starts on a page chosen uniformly at random and then takes
// N-1 further steps, N being the number of pages, drawing each step from
// the Transition model of the current page. Every visited page, the start
// included, is counted once; the counts are divided by n*N.
//
// The result is deterministic for a deterministic Source.
func Sample(c *corpus.Corpus, damping float64, n int, rng Source) (Distribution, error) {
	if err := validate(c, damping); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count %d must be positive", ErrInvalidArgument, n)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrInvalidArgument)
	}

	size := c.Len()

	// One cumulative row per page; the corpus cannot change during the call.
	cdf := make([][]float64, size)
	for i := range cdf {
		row := transitionRow(c, i, damping, nil)
		cdf[i] = floats.CumSum(row, row)
	}

	visits := make([]int, size)
	for range n {
		page := rng.IntN(size)
		visits[page]++
		for range size - 1 {
			page = draw(cdf[page], rng.Float64())
			visits[page]++
		}
	}

	total := float64(n) * float64(size)
	ranks := make(Distribution, size)
	for i, count := range visits {
		ranks[c.Page(i)] = float64(count) / total
	}
	return ranks, nil
}

// draw maps a uniform value u in [0,1) to an index by inverse-CDF lookup.
// The target is scaled by the last cumulative value so rounding in the
// running sum cannot push it past the end. Zero-probability entries are
// never returned.
func draw(cdf []float64, u float64) int {
	target := u * cdf[len(cdf)-1]
	i := sort.Search(len(cdf), func(k int) bool { return cdf[k] > target })
	if i == len(cdf) {
		i = len(cdf) - 1
	}
	return i
}
