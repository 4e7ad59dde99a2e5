// Package crawler builds a corpus from a directory of HTML files.
//
// # Architecture
//
// The package is built around the Loader, which lists a directory, parses
// each page with the Parser and hands the resulting link mapping to the
// corpus package.
//
// # Components
//
//   - Loader: reads the directory, applies ignore patterns, builds the corpus
//   - Parser: HTML parser that extracts the title and anchor targets
//
// # Link rules
//
// A page is any regular file ending in .html directly inside the directory
// (subdirectories are not descended). An anchor contributes a link when
// its href resolves to another page of the same directory:
//   - query strings and fragments are ignored ("b.html#top" is "b.html")
//   - links to the page itself are dropped
//   - absolute URLs and javascript:, mailto:, tel:, data: links are external
//   - targets that are not pages of the corpus are dropped
//
// # Usage
//
//	res, err := crawler.LoadDir(ctx, "corpus0", crawler.WithIgnorePatterns([]string{"draft-*"}))
//	ranks, err := pagerank.Iterate(ctx, res.Corpus, 0.85)
package crawler
