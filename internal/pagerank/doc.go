// Package pagerank estimates PageRank over a corpus.
//
// Two independent estimators share one random-surfer model:
//   - Sample simulates random walks and counts visits (Monte Carlo)
//   - Iterate solves the PageRank recurrence by power iteration
//
// Transition exposes the surfer model itself, and Reference delegates to
// gonum for a textbook solution used to cross-check Iterate.
//
// All functions are pure: they never modify the corpus and return freshly
// allocated distributions, so concurrent calls over one corpus are safe.
//
// # Dangling pages
//
// The surfer on a dangling page teleports uniformly. Iterate, however,
// drops the rank held by dangling pages by default (DanglingDrop), so its
// output can sum to less than 1. This keeps results comparable with the
// historical behavior; pass WithDanglingMode(DanglingUniform) for the
// textbook formulation.
package pagerank
