package corpus

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph returns a gonum view of the corpus. Node IDs are page indices.
func (c *Corpus) Graph() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := range c.pages {
		g.AddNode(simple.Node(int64(i)))
	}
	for i, targets := range c.out {
		for _, j := range targets {
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
		}
	}
	return g
}

// Components returns the number of strongly connected components.
// A corpus made of a single cycle has one; a corpus without links has one
// per page.
func (c *Corpus) Components() int {
	if c.Len() == 0 {
		return 0
	}
	return len(topo.TarjanSCC(c.Graph()))
}
