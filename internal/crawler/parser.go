package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and outgoing page links of one HTML document.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML and attribute quoting variants
//  2. Only real <a> elements count; hrefs inside comments or scripts do not
//  3. Attribute values are unescaped (&amp; and friends) for us
type Parser struct {
	// page is the corpus-relative name of the document being parsed,
	// used to resolve relative links.
	page string
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains the resolved page names of every local anchor, in
	// document order, duplicates included.
	Links []string

	// ExternalLinks are anchors pointing outside the corpus directory
	// (absolute URLs, other schemes).
	ExternalLinks []string
}

// NewParser creates a parser for the page with the given corpus-relative name.
func NewParser(page string) *Parser {
	return &Parser{page: page}
}

// Parse parses HTML content and extracts links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		ExternalLinks: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		href, ok := getAttr(n, "href")
		if !ok {
			return
		}
		target, local := p.resolve(href)
		switch {
		case local:
			result.Links = append(result.Links, target)
		case target != "":
			result.ExternalLinks = append(result.ExternalLinks, target)
		}
	}
}

// resolve turns an href into a corpus-relative page name.
// It returns local=false for links that leave the corpus directory; target
// is then the raw href, or empty for non-navigational links.
func (p *Parser) resolve(href string) (target string, local bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		// An empty or fragment-only href points at the page itself.
		return p.page, true
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		return href, false
	}
	if u.Path == "" {
		// Query-only reference to the current page.
		return p.page, true
	}

	var resolved string
	if strings.HasPrefix(u.Path, "/") {
		resolved = path.Clean(strings.TrimPrefix(u.Path, "/"))
	} else {
		resolved = path.Clean(path.Join(path.Dir(p.page), u.Path))
	}
	if resolved == "." || strings.HasPrefix(resolved, "../") {
		return href, false
	}
	return resolved, true
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val, true
		}
	}
	return "", false
}
