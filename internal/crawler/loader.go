package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/nao1215/linkrank/internal/corpus"
)

// Loader errors.
var (
	// ErrEmptyCorpus is returned when a directory holds no HTML pages.
	ErrEmptyCorpus = errors.New("no .html pages found")

	// ErrNotDirectory is returned when the corpus path is not a directory.
	ErrNotDirectory = errors.New("corpus path is not a directory")
)

// DefaultMaxFileSize limits how much of each HTML file is parsed.
const DefaultMaxFileSize = 10 * 1024 * 1024

// pageExtension is the suffix a file needs to be part of a corpus.
const pageExtension = ".html"

// Loader reads a directory of HTML files into a corpus.
//
// Only regular files ending in .html directly inside the directory are
// pages. Anchors pointing at files outside that set, and anchors pointing
// at the page itself, are dropped.
type Loader struct {
	// ignore are compiled glob patterns matched against file names.
	ignore []glob.Glob

	// maxFileSize limits how many bytes of each file are parsed.
	maxFileSize int64

	logger *slog.Logger
}

// Result is a loaded corpus plus what the loader learned along the way.
type Result struct {
	// Dir is the directory the corpus was read from.
	Dir string

	// Corpus is the link graph.
	Corpus *corpus.Corpus

	// Titles maps each page to its <title>, when present.
	Titles map[string]string

	// Ignored lists HTML files skipped by ignore patterns.
	Ignored []string

	// DroppedLinks counts local anchors whose target is not a corpus page.
	DroppedLinks int

	// ExternalLinks counts anchors leaving the corpus directory.
	ExternalLinks int
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	ignorePatterns []string
	maxFileSize    int64
	logger         *slog.Logger
}

// WithIgnorePatterns skips HTML files whose name matches any of the glob
// patterns (e.g. "draft-*.html", "{index,404}.html").
func WithIgnorePatterns(patterns []string) LoaderOption {
	return func(c *loaderConfig) {
		c.ignorePatterns = patterns
	}
}

// WithMaxFileSize sets the maximum number of bytes parsed per file.
func WithMaxFileSize(size int64) LoaderOption {
	return func(c *loaderConfig) {
		if size > 0 {
			c.maxFileSize = size
		}
	}
}

// WithLoaderLogger sets the logger used for per-file diagnostics.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// NewLoader creates a Loader. It fails if an ignore pattern does not compile.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cfg := loaderConfig{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	l := &Loader{
		maxFileSize: cfg.maxFileSize,
		logger:      cfg.logger,
	}
	for _, pattern := range cfg.ignorePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		l.ignore = append(l.ignore, g)
	}
	return l, nil
}

// LoadDir is a convenience wrapper around NewLoader and Load.
func LoadDir(ctx context.Context, dir string, opts ...LoaderOption) (*Result, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, dir)
}

// Load reads every page of dir and builds its corpus.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus directory: %w", err)
	}

	result := &Result{
		Dir:     dir,
		Titles:  make(map[string]string),
		Ignored: make([]string, 0),
	}

	raw := make(map[string][]string)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, pageExtension) {
			continue
		}
		if l.isIgnored(name) {
			l.logger.Debug("ignoring page", "page", name)
			result.Ignored = append(result.Ignored, name)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		parsed, err := l.parseFile(filepath.Join(dir, name), name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		raw[name] = parsed.Links
		result.ExternalLinks += len(parsed.ExternalLinks)
		if parsed.Title != "" {
			result.Titles[name] = parsed.Title
		}
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyCorpus, dir)
	}

	for page, links := range raw {
		for _, target := range links {
			if _, ok := raw[target]; !ok && target != page {
				result.DroppedLinks++
			}
		}
	}

	c, err := corpus.New(corpus.Sanitize(raw))
	if err != nil {
		return nil, err
	}
	result.Corpus = c

	l.logger.Debug("corpus loaded",
		"dir", dir,
		"pages", c.Len(),
		"links", c.EdgeCount(),
		"dropped", result.DroppedLinks,
		"ignored", len(result.Ignored),
	)

	return result, nil
}

// parseFile parses one HTML file.
func (l *Loader) parseFile(filePath, page string) (*ParseResult, error) {
	f, err := os.Open(filePath) //nolint:gosec // Corpus paths are user supplied by design
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewParser(page).Parse(io.LimitReader(f, l.maxFileSize))
}

// IsPage reports whether a file name would be loaded as a corpus page.
func (l *Loader) IsPage(name string) bool {
	return strings.HasSuffix(name, pageExtension) && !l.isIgnored(name)
}

// isIgnored reports whether name matches an ignore pattern.
func (l *Loader) isIgnored(name string) bool {
	for _, g := range l.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}
