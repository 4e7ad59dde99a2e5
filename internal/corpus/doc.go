// Package corpus models a small, static hyperlink graph.
//
// A Corpus maps every page to the set of pages it links to. The page set
// is closed (links only point at pages of the corpus) and no page links to
// itself. Pages without outgoing links are called dangling.
//
// Design decision: We keep integer indices internally and expose page
// names only at the boundary because:
//  1. Estimators touch every edge many times; slices beat map lookups
//  2. Sorted page order makes every result deterministic
//  3. The same indices double as gonum node IDs for graph algorithms
package corpus
