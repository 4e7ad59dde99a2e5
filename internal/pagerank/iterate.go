package pagerank

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nao1215/linkrank/internal/corpus"
)

// Default estimation parameters.
const (
	// DefaultDamping is the conventional probability of following a link.
	DefaultDamping = 0.85

	// DefaultSamples is the number of Monte Carlo trials.
	DefaultSamples = 10000

	// DefaultTolerance is the absolute per-page change under which power
	// iteration stops.
	DefaultTolerance = 0.001

	// DefaultMaxIterations caps the number of power-iteration sweeps.
	DefaultMaxIterations = 10000
)

// DanglingMode selects what a power-iteration sweep does with the rank held
// by pages without outgoing links.
type DanglingMode int

const (
	// DanglingDrop discards the rank of dangling pages. This is the
	// compatibility behavior: the returned ranks sum to less than 1 when a
	// dangling page holds rank. It deviates from textbook PageRank, which
	// spreads that mass uniformly.
	DanglingDrop DanglingMode = iota

	// DanglingUniform spreads the rank of dangling pages over every page,
	// matching the textbook formulation and the Monte Carlo surfer.
	DanglingUniform
)

// String returns the flag spelling of the mode.
func (m DanglingMode) String() string {
	switch m {
	case DanglingDrop:
		return "drop"
	case DanglingUniform:
		return "uniform"
	default:
		return fmt.Sprintf("DanglingMode(%d)", int(m))
	}
}

// ParseDanglingMode parses "drop" or "uniform".
func ParseDanglingMode(s string) (DanglingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DanglingDrop, nil
	case "uniform":
		return DanglingUniform, nil
	default:
		return 0, fmt.Errorf("%w: unknown dangling mode %q", ErrInvalidArgument, s)
	}
}

// IterateOption configures Iterate.
type IterateOption func(*iterateConfig)

type iterateConfig struct {
	tolerance     float64
	maxIterations int
	initial       Distribution
	dangling      DanglingMode
}

// WithTolerance sets the absolute per-page convergence threshold.
func WithTolerance(tol float64) IterateOption {
	return func(cfg *iterateConfig) {
		cfg.tolerance = tol
	}
}

// WithMaxIterations caps the number of sweeps. 0 removes the cap.
func WithMaxIterations(k int) IterateOption {
	return func(cfg *iterateConfig) {
		cfg.maxIterations = k
	}
}

// WithInitialRanks starts iteration from ranks instead of the uniform
// assignment. Every page must be present.
func WithInitialRanks(ranks Distribution) IterateOption {
	return func(cfg *iterateConfig) {
		cfg.initial = ranks
	}
}

// WithDanglingMode selects how dangling rank is treated.
func WithDanglingMode(mode DanglingMode) IterateOption {
	return func(cfg *iterateConfig) {
		cfg.dangling = mode
	}
}

// Iteration is the outcome of a power-iteration run.
type Iteration struct {
	// Ranks is the last computed rank assignment.
	Ranks Distribution

	// Sweeps is the number of synchronous updates performed.
	Sweeps int

	// Delta is the largest per-page change of the last sweep.
	Delta float64

	// Converged reports whether Delta is within tolerance.
	Converged bool
}

// Iterate computes PageRank by repeated synchronous update:
//
//	rank'(p) = (1-d)/N + d * Σ_{q→p} rank(q)/outdegree(q)
//
// Every page starts at 1/N and each sweep reads only the previous sweep's
// ranks. Iteration stops once no page changes by more than the tolerance.
//
// If the sweep cap is reached first, Iterate returns the last ranks along
// with an error wrapping ErrNonConvergence. Cancelling ctx stops the loop
// between sweeps.
//
// A single-page corpus has exactly one distribution, so it returns
// {page: 1} without sweeping.
func Iterate(ctx context.Context, c *corpus.Corpus, damping float64, opts ...IterateOption) (*Iteration, error) {
	if err := validate(c, damping); err != nil {
		return nil, err
	}

	cfg := iterateConfig{
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
		dangling:      DanglingDrop,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if math.IsNaN(cfg.tolerance) || cfg.tolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerance %v must be positive", ErrInvalidArgument, cfg.tolerance)
	}
	if cfg.maxIterations < 0 {
		return nil, fmt.Errorf("%w: max iterations %d must not be negative", ErrInvalidArgument, cfg.maxIterations)
	}
	if cfg.dangling != DanglingDrop && cfg.dangling != DanglingUniform {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, cfg.dangling)
	}

	n := c.Len()
	if n == 1 {
		return &Iteration{Ranks: Distribution{c.Page(0): 1}, Converged: true}, nil
	}

	prev := make([]float64, n)
	if cfg.initial != nil {
		v, err := toVector(c, cfg.initial)
		if err != nil {
			return nil, err
		}
		prev = v
	} else {
		for i := range prev {
			prev[i] = 1 / float64(n)
		}
	}
	next := make([]float64, n)

	result := &Iteration{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.maxIterations > 0 && result.Sweeps >= cfg.maxIterations {
			result.Ranks = fromVector(c, prev)
			return result, fmt.Errorf("%w: largest change %g above tolerance %g after %d sweeps",
				ErrNonConvergence, result.Delta, cfg.tolerance, result.Sweeps)
		}

		sweep(c, damping, cfg.dangling, prev, next)
		result.Sweeps++
		result.Delta = maxAbsDiff(prev, next)
		prev, next = next, prev

		if result.Delta <= cfg.tolerance {
			result.Converged = true
			result.Ranks = fromVector(c, prev)
			return result, nil
		}
	}
}

// Sweep applies one synchronous update to ranks and returns the new
// assignment. It is the step Iterate repeats, exposed for fixed-point
// checks.
func Sweep(c *corpus.Corpus, damping float64, ranks Distribution, mode DanglingMode) (Distribution, error) {
	if err := validate(c, damping); err != nil {
		return nil, err
	}
	prev, err := toVector(c, ranks)
	if err != nil {
		return nil, err
	}
	next := make([]float64, len(prev))
	sweep(c, damping, mode, prev, next)
	return fromVector(c, next), nil
}

// sweep computes next from prev. The two slices must not alias.
func sweep(c *corpus.Corpus, damping float64, mode DanglingMode, prev, next []float64) {
	n := float64(len(prev))
	base := (1 - damping) / n
	if mode == DanglingUniform {
		var mass float64
		for i, r := range prev {
			if c.IsDangling(i) {
				mass += r
			}
		}
		base += damping * mass / n
	}

	for p := range next {
		var inflow float64
		for _, q := range c.In(p) {
			inflow += prev[q] / float64(c.OutDegree(q))
		}
		next[p] = base + damping*inflow
	}
}

func maxAbsDiff(a, b []float64) float64 {
	var worst float64
	for i := range a {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}
