package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no corpus directory is specified.
	ErrNoTarget = errors.New("no target specified: provide one or more corpus directories")

	// ErrInvalidDamping is returned when the damping factor is outside [0,1].
	ErrInvalidDamping = errors.New("invalid damping factor: must be between 0 and 1")

	// ErrInvalidSamples is returned when the Monte Carlo sample count is not positive.
	ErrInvalidSamples = errors.New("invalid sample count: must be positive")

	// ErrInvalidTolerance is returned when the convergence tolerance is not positive.
	ErrInvalidTolerance = errors.New("invalid tolerance: must be positive")

	// ErrInvalidMaxIterations is returned when the iteration cap is negative.
	// Zero disables the cap.
	ErrInvalidMaxIterations = errors.New("invalid max iterations: must be non-negative")

	// ErrInvalidDanglingMode is returned for a dangling mode other than
	// "drop" or "uniform".
	ErrInvalidDanglingMode = errors.New("invalid dangling mode: must be drop or uniform")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxFileSize is returned when the max file size is negative.
	// Use 0 to keep the default limit.
	ErrInvalidMaxFileSize = errors.New("invalid max file size: must be non-negative")
)
