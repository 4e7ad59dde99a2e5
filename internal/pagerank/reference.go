package pagerank

import (
	"fmt"
	"math"

	"github.com/nao1215/linkrank/internal/corpus"
	"gonum.org/v1/gonum/graph/network"
)

// Reference computes textbook PageRank, dangling rank spread uniformly,
// with gonum's dense power-iteration solver. tol bounds the L2 change
// between gonum's iterations.
//
// It is an independent cross-check for Iterate with DanglingUniform.
func Reference(c *corpus.Corpus, damping, tol float64) (Distribution, error) {
	if err := validate(c, damping); err != nil {
		return nil, err
	}
	if math.IsNaN(tol) || tol <= 0 {
		return nil, fmt.Errorf("%w: tolerance %v must be positive", ErrInvalidArgument, tol)
	}

	ranks := network.PageRank(c.Graph(), damping, tol)

	d := make(Distribution, c.Len())
	for id, r := range ranks {
		d[c.Page(int(id))] = r
	}
	return d, nil
}
