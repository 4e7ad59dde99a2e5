package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/crawler"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pagerank"
	"golang.org/x/sync/errgroup"
)

// ErrNoGraph is returned by estimator steps that run before LoadStep.
var ErrNoGraph = errors.New("corpus not loaded")

// LoadStep reads the corpus directory into the report.
//
// Design decision: Loading is a separate step because:
// 1. It has its own configuration (ignore patterns, file size limit)
// 2. Its statistics are useful even if an estimator fails
// 3. Tests can inject a pre-built graph and skip it
type LoadStep struct {
	// loaderOpts configure the crawler.Loader.
	loaderOpts []crawler.LoaderOption

	// logger for structured logging.
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadIgnorePatterns sets glob patterns for HTML files to skip.
func WithLoadIgnorePatterns(patterns []string) LoadStepOption {
	return func(s *LoadStep) {
		s.loaderOpts = append(s.loaderOpts, crawler.WithIgnorePatterns(patterns))
	}
}

// WithLoadMaxFileSize sets the maximum number of bytes parsed per file.
func WithLoadMaxFileSize(size int64) LoadStepOption {
	return func(s *LoadStep) {
		s.loaderOpts = append(s.loaderOpts, crawler.WithMaxFileSize(size))
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a new corpus loading step.
func NewLoadStep(opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, report *model.RankReport) error {
	opts := append([]crawler.LoaderOption{crawler.WithLoaderLogger(s.logger)}, s.loaderOpts...)
	res, err := crawler.LoadDir(ctx, report.Corpus, opts...)
	if err != nil {
		return err
	}

	report.SetGraph(res.Corpus)
	report.Titles = res.Titles
	report.Ignored = res.Ignored
	report.DroppedLinks = res.DroppedLinks
	report.ExternalLinks = res.ExternalLinks

	s.logger.Info("corpus loaded",
		"corpus", report.Corpus,
		"pages", report.Pages,
		"links", report.Links,
		"dangling", len(report.DanglingPages),
	)
	return nil
}

// SampleStep estimates PageRank with the random-surfer simulation.
type SampleStep struct {
	damping float64
	samples int

	// seed seeds the random source; 0 picks one from the clock.
	seed uint64

	logger *slog.Logger
}

// SampleStepOption configures a SampleStep.
type SampleStepOption func(*SampleStep)

// WithSampleSeed fixes the random seed so the estimate is reproducible.
func WithSampleSeed(seed uint64) SampleStepOption {
	return func(s *SampleStep) {
		s.seed = seed
	}
}

// WithSampleLogger sets a custom logger for the sample step.
func WithSampleLogger(logger *slog.Logger) SampleStepOption {
	return func(s *SampleStep) {
		s.logger = logger
	}
}

// NewSampleStep creates a new Monte Carlo sampling step.
func NewSampleStep(damping float64, samples int, opts ...SampleStepOption) *SampleStep {
	s := &SampleStep{
		damping: damping,
		samples: samples,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SampleStep) Name() string {
	return "sample"
}

// Do executes the sample step.
//
// It records only the sampling parameters; the damping factor is recorded
// by IterateStep, which may run at the same time.
func (s *SampleStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	rng, seed := pagerank.NewSource(s.seed)
	report.Parameters.Samples = s.samples
	report.Parameters.Seed = seed

	ranks, err := pagerank.Sample(report.Graph, s.damping, s.samples, rng)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	report.Sampling = ranks

	s.logger.Debug("sampling completed",
		"corpus", report.Corpus,
		"samples", s.samples,
		"seed", seed,
	)
	return nil
}

// IterateStep computes PageRank by power iteration.
type IterateStep struct {
	damping       float64
	tolerance     float64
	maxIterations int
	mode          pagerank.DanglingMode
	logger        *slog.Logger
}

// IterateStepOption configures an IterateStep.
type IterateStepOption func(*IterateStep)

// WithIterateTolerance sets the convergence threshold.
func WithIterateTolerance(tol float64) IterateStepOption {
	return func(s *IterateStep) {
		s.tolerance = tol
	}
}

// WithIterateMaxIterations sets the sweep cap (0 means uncapped).
func WithIterateMaxIterations(k int) IterateStepOption {
	return func(s *IterateStep) {
		s.maxIterations = k
	}
}

// WithIterateDanglingMode selects how dangling rank is treated.
func WithIterateDanglingMode(mode pagerank.DanglingMode) IterateStepOption {
	return func(s *IterateStep) {
		s.mode = mode
	}
}

// WithIterateLogger sets a custom logger for the iterate step.
func WithIterateLogger(logger *slog.Logger) IterateStepOption {
	return func(s *IterateStep) {
		s.logger = logger
	}
}

// NewIterateStep creates a new power-iteration step.
func NewIterateStep(damping float64, opts ...IterateStepOption) *IterateStep {
	s := &IterateStep{
		damping:       damping,
		tolerance:     pagerank.DefaultTolerance,
		maxIterations: pagerank.DefaultMaxIterations,
		mode:          pagerank.DanglingDrop,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IterateStep) Name() string {
	return "iterate"
}

// Do executes the iterate step.
//
// When the sweep cap is reached the last ranks are still recorded, with
// Converged false, and the non-convergence error is returned.
func (s *IterateStep) Do(ctx context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	report.Parameters.Damping = s.damping
	report.Parameters.Tolerance = s.tolerance
	report.Parameters.MaxIterations = s.maxIterations
	report.Parameters.DanglingMode = s.mode.String()

	result, err := pagerank.Iterate(ctx, report.Graph, s.damping,
		pagerank.WithTolerance(s.tolerance),
		pagerank.WithMaxIterations(s.maxIterations),
		pagerank.WithDanglingMode(s.mode),
	)
	if result != nil {
		report.Iteration = result.Ranks
		report.Sweeps = result.Sweeps
		report.Delta = result.Delta
		report.Converged = result.Converged
	}
	if err != nil {
		return fmt.Errorf("iteration failed: %w", err)
	}

	s.logger.Debug("iteration converged",
		"corpus", report.Corpus,
		"sweeps", result.Sweeps,
		"delta", result.Delta,
	)
	return nil
}

// ReferenceStep computes textbook PageRank with gonum as a cross-check.
type ReferenceStep struct {
	damping   float64
	tolerance float64
}

// NewReferenceStep creates a new reference step.
func NewReferenceStep(damping, tolerance float64) *ReferenceStep {
	return &ReferenceStep{damping: damping, tolerance: tolerance}
}

// Name returns the step name.
func (s *ReferenceStep) Name() string {
	return "reference"
}

// Do executes the reference step.
func (s *ReferenceStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}
	ranks, err := pagerank.Reference(report.Graph, s.damping, s.tolerance)
	if err != nil {
		return fmt.Errorf("reference failed: %w", err)
	}
	report.Reference = ranks
	return nil
}

// ParallelStep runs independent steps concurrently.
//
// The wrapped steps must write disjoint report fields; the estimators do,
// each filling its own distribution.
type ParallelStep struct {
	steps []Step
}

// Parallel groups steps that may run at the same time.
func Parallel(steps ...Step) *ParallelStep {
	return &ParallelStep{steps: steps}
}

// Name returns the names of the grouped steps joined by "+".
func (s *ParallelStep) Name() string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name()
	}
	return strings.Join(names, "+")
}

// Do executes all grouped steps and waits for them. Every step runs to
// completion; the errors of failed steps are joined.
func (s *ParallelStep) Do(ctx context.Context, report *model.RankReport) error {
	var g errgroup.Group
	errs := make([]error, len(s.steps))
	for i, step := range s.steps {
		g.Go(func() error {
			errs[i] = step.Do(ctx, report)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Goroutines never return errors; see errs
	return errors.Join(errs...)
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Settings are the estimator parameters for the corpus.
	Settings config.Settings

	// Reference adds the gonum cross-check step.
	Reference bool

	// MaxFileSize is the maximum number of bytes parsed per HTML file.
	MaxFileSize int64

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineReference enables the gonum reference step.
func WithPipelineReference(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Reference = enabled
	}
}

// WithPipelineMaxFileSize sets the maximum bytes parsed per HTML file.
func WithPipelineMaxFileSize(size int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxFileSize = size
	}
}

// WithPipelineStepLogger sets the logger handed to every step.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the standard ranking pipeline for one corpus:
// load, then sampling and iteration side by side, then optionally the
// reference.
//
// Design decision: We provide a default pipeline because:
// 1. Every command ranks a corpus the same way
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The pipeline continues on error so that a non-converging iteration still
// yields the sampling estimate. An invalid dangling mode falls back to
// "drop"; config.Settings.Validate rejects it earlier.
func DefaultPipeline(settings config.Settings, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		Settings:    settings,
		MaxFileSize: config.DefaultMaxFileSize,
		Logger:      slog.Default(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p := New(append([]Option{WithContinueOnError(true)}, pipelineOpts...)...)

	mode, err := pagerank.ParseDanglingMode(settings.DanglingMode)
	if err != nil {
		mode = pagerank.DanglingDrop
	}

	p.AddStep(NewLoadStep(
		WithLoadIgnorePatterns(settings.IgnorePatterns),
		WithLoadMaxFileSize(cfg.MaxFileSize),
		WithLoadLogger(cfg.Logger),
	))
	p.AddStep(Parallel(
		NewSampleStep(settings.Damping, settings.Samples,
			WithSampleSeed(settings.Seed),
			WithSampleLogger(cfg.Logger),
		),
		NewIterateStep(settings.Damping,
			WithIterateTolerance(settings.Tolerance),
			WithIterateMaxIterations(settings.MaxIterations),
			WithIterateDanglingMode(mode),
			WithIterateLogger(cfg.Logger),
		),
	))
	if cfg.Reference {
		p.AddStep(NewReferenceStep(settings.Damping, settings.Tolerance))
	}

	return p
}
