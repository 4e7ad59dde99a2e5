package corpus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Graph construction errors.
var (
	// ErrEmptyPage is returned when a page identifier is the empty string.
	ErrEmptyPage = errors.New("corpus: page name is empty")

	// ErrUnknownPage is returned when a link targets a page that is not a
	// key of the link mapping.
	ErrUnknownPage = errors.New("corpus: link target is not in the corpus")

	// ErrSelfLink is returned when a page links to itself.
	ErrSelfLink = errors.New("corpus: page links to itself")
)

// Corpus is an immutable directed link graph over a closed set of pages.
//
// Pages are stored in sorted order and addressed by their index. The
// identifier mapping is only used at the package boundary; estimators work
// on the integer adjacency lists returned by Out and In.
//
// A Corpus is never modified after New returns, so it may be shared by
// concurrent readers without synchronization.
type Corpus struct {
	pages []string
	index map[string]int

	// out holds the sorted, de-duplicated outgoing neighbors of each page.
	out [][]int

	// in holds the sorted pages linking to each page.
	in [][]int

	edges int
}

// New builds a Corpus from a mapping of page to the pages it links to.
//
// Every link target must itself be a key of links and no page may link to
// itself. Duplicate targets are collapsed. Use Sanitize first when the
// mapping comes from untrusted documents.
func New(links map[string][]string) (*Corpus, error) {
	pages := make([]string, 0, len(links))
	for page := range links {
		if page == "" {
			return nil, ErrEmptyPage
		}
		pages = append(pages, page)
	}
	slices.Sort(pages)

	index := make(map[string]int, len(pages))
	for i, page := range pages {
		index[page] = i
	}

	c := &Corpus{
		pages: pages,
		index: index,
		out:   make([][]int, len(pages)),
		in:    make([][]int, len(pages)),
	}

	for i, page := range pages {
		targets := make([]int, 0, len(links[page]))
		for _, target := range links[page] {
			j, ok := index[target]
			if !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownPage, page, target)
			}
			if j == i {
				return nil, fmt.Errorf("%w: %s", ErrSelfLink, page)
			}
			targets = append(targets, j)
		}
		slices.Sort(targets)
		c.out[i] = slices.Compact(targets)
		c.edges += len(c.out[i])
	}

	for i, targets := range c.out {
		for _, j := range targets {
			c.in[j] = append(c.in[j], i)
		}
	}

	return c, nil
}

// Sanitize returns a copy of links that satisfies the corpus invariants:
// self references and targets that are not keys are removed. Empty page
// names are dropped entirely.
func Sanitize(links map[string][]string) map[string][]string {
	clean := make(map[string][]string, len(links))
	for page, targets := range links {
		if page == "" {
			continue
		}
		kept := make([]string, 0, len(targets))
		for _, target := range targets {
			if target == page || target == "" {
				continue
			}
			if _, ok := links[target]; !ok {
				continue
			}
			kept = append(kept, target)
		}
		clean[page] = kept
	}
	return clean
}

// Len returns the number of pages.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pages)
}

// EdgeCount returns the number of distinct links.
func (c *Corpus) EdgeCount() int {
	return c.edges
}

// Pages returns the page identifiers in index order.
func (c *Corpus) Pages() []string {
	return slices.Clone(c.pages)
}

// Page returns the identifier of page i.
func (c *Corpus) Page(i int) string {
	return c.pages[i]
}

// Index returns the index of page and whether it is part of the corpus.
func (c *Corpus) Index(page string) (int, bool) {
	i, ok := c.index[page]
	return i, ok
}

// Out returns the outgoing neighbors of page i. The slice is shared and
// must not be modified.
func (c *Corpus) Out(i int) []int {
	return c.out[i]
}

// In returns the pages linking to page i. The slice is shared and must not
// be modified.
func (c *Corpus) In(i int) []int {
	return c.in[i]
}

// OutDegree returns the number of outgoing links of page i.
func (c *Corpus) OutDegree(i int) int {
	return len(c.out[i])
}

// IsDangling reports whether page i has no outgoing links.
func (c *Corpus) IsDangling(i int) bool {
	return len(c.out[i]) == 0
}

// Links returns the identifiers linked to by page, or nil if the page is
// not part of the corpus.
func (c *Corpus) Links(page string) []string {
	i, ok := c.index[page]
	if !ok {
		return nil
	}
	links := make([]string, len(c.out[i]))
	for k, j := range c.out[i] {
		links[k] = c.pages[j]
	}
	return links
}

// Dangling returns the pages without outgoing links in index order.
func (c *Corpus) Dangling() []string {
	var dangling []string
	for i, page := range c.pages {
		if c.IsDangling(i) {
			dangling = append(dangling, page)
		}
	}
	return dangling
}

// Map returns the corpus as a fresh page → links mapping.
func (c *Corpus) Map() map[string][]string {
	m := make(map[string][]string, len(c.pages))
	for _, page := range c.pages {
		m[page] = c.Links(page)
	}
	return m
}

// Digest returns a stable SHA3-256 fingerprint of the graph structure.
// Two corpora with the same pages and links share a digest regardless of
// the order the links were supplied in.
func (c *Corpus) Digest() string {
	var sb strings.Builder
	for i, page := range c.pages {
		sb.WriteString(page)
		sb.WriteByte('\n')
		for _, j := range c.out[i] {
			sb.WriteByte('\t')
			sb.WriteString(c.pages[j])
			sb.WriteByte('\n')
		}
	}
	sum := sha3.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
