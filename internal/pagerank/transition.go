package pagerank

import (
	"fmt"

	"github.com/nao1215/linkrank/internal/corpus"
)

// Transition returns the probability of the random surfer moving from page
// to every page of the corpus.
//
// With probability damping the surfer follows one of the page's links,
// chosen uniformly; otherwise it teleports to a page chosen uniformly from
// the whole corpus. A dangling page has nothing to follow, so its
// distribution is uniform regardless of damping.
func Transition(c *corpus.Corpus, page string, damping float64) (Distribution, error) {
	if err := validate(c, damping); err != nil {
		return nil, err
	}
	i, ok := c.Index(page)
	if !ok {
		return nil, fmt.Errorf("%w: page %q is not in the corpus", ErrInvalidArgument, page)
	}
	return fromVector(c, transitionRow(c, i, damping, nil)), nil
}

// transitionRow writes the transition distribution of page i into dst,
// reusing its storage when large enough. The row is not renormalized.
func transitionRow(c *corpus.Corpus, i int, damping float64, dst []float64) []float64 {
	n := c.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	if c.IsDangling(i) {
		uniform := 1 / float64(n)
		for k := range dst {
			dst[k] = uniform
		}
		return dst
	}

	teleport := (1 - damping) / float64(n)
	for k := range dst {
		dst[k] = teleport
	}
	follow := damping / float64(c.OutDegree(i))
	for _, j := range c.Out(i) {
		dst[j] += follow
	}
	return dst
}
