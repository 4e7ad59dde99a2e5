package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkrank/internal/model"
)

// Step is one stage of ranking a corpus. Every step sees the report built
// so far and adds its own results to it.
//
// Design decision: We use an interface rather than a plain function because:
// 1. Steps carry their own settings (damping, sample count, seed)
// 2. Name() gives every log line and PerformedSteps entry a stable label
// 3. Composite steps such as Parallel can wrap other steps
type Step interface {
	// Do runs the step against report. A returned error means the step
	// produced nothing usable; soft problems belong in the report instead.
	Do(ctx context.Context, report *model.RankReport) error

	// Name identifies the step in logs and in report.PerformedSteps.
	Name() string
}

// Pipeline runs its steps one after another over a single report.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps later steps running after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for step progress. slog.Default is used
// otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError lets the remaining steps run after one fails. The
// first failure is still kept in the report.
//
// Design decision: The default is to stop, because a failed load leaves
// nothing to rank. Continuing is for callers that want whatever estimators
// can still finish, e.g. sampling results when iteration hits its sweep cap.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step to the end of the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in the given order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step in order against report.
//
// Cancellation is checked between steps; a step that is already running is
// expected to watch ctx itself. When ctx ends early the report is marked
// TimedOut and ctx.Err() is returned.
//
// Without WithContinueOnError the first step error is returned right away.
// With it, Execute returns nil and the first error stays in report.Error.
func (p *Pipeline) Execute(ctx context.Context, report *model.RankReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("ranking interrupted",
				"corpus", report.Corpus,
				"next_step", step.Name(),
				"reason", err,
			)
			report.TimedOut = true
			return err
		}

		err := p.run(ctx, step, report)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
		if err == nil {
			continue
		}

		if report.Error == nil {
			report.Error = err
			report.ErrorMessage = err.Error()
		}
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// run executes a single step and logs how it went.
func (p *Pipeline) run(ctx context.Context, step Step, report *model.RankReport) error {
	p.logger.Info("running step", "step", step.Name(), "corpus", report.Corpus)

	start := time.Now()
	err := step.Do(ctx, report)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Error("step failed",
			"step", step.Name(),
			"corpus", report.Corpus,
			"elapsed", elapsed,
			"error", err,
		)
		return err
	}
	p.logger.Debug("step done", "step", step.Name(), "elapsed", elapsed)
	return nil
}

// StepCount reports how many steps the pipeline holds.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames lists the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
