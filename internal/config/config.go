package config

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The estimator defaults are the conventional PageRank parameters.
const (
	// DefaultDamping is the probability that the random surfer follows a
	// link instead of teleporting.
	DefaultDamping = 0.85

	// DefaultSamples is the number of Monte Carlo trials. Each trial visits
	// as many pages as the corpus holds, so the estimator's error shrinks
	// roughly with 1/sqrt(samples * pages).
	DefaultSamples = 10000

	// DefaultTolerance is the absolute per-page change under which power
	// iteration is considered converged.
	DefaultTolerance = 0.001

	// DefaultMaxIterations caps power-iteration sweeps. The damped update
	// contracts by the damping factor per sweep, so a few hundred sweeps
	// suffice for any tolerance above machine precision; the cap only
	// guards against misconfiguration.
	DefaultMaxIterations = 10000

	// DefaultDanglingMode keeps the historical power-iteration behavior of
	// dropping the rank held by pages without links.
	DefaultDanglingMode = "drop"

	// DefaultBatchSize is the number of corpora ranked concurrently.
	DefaultBatchSize = 4

	// DefaultMaxFileSize is the maximum number of bytes parsed per HTML file.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "linkrank"
)

// Config holds all configuration options for linkrank.
// This struct is populated from CLI flags and the configuration file, and
// passed through the application via dependency injection rather than
// global state.
type Config struct {
	// Damping is the damping factor shared by both estimators.
	Damping float64

	// Samples is the number of Monte Carlo trials.
	Samples int

	// Tolerance is the power-iteration convergence threshold.
	Tolerance float64

	// MaxIterations caps power-iteration sweeps. 0 disables the cap.
	MaxIterations int

	// Seed seeds the Monte Carlo random source. 0 means "pick one"; the
	// chosen seed is recorded in the report so the run can be repeated.
	Seed uint64

	// DanglingMode is "drop" (historical) or "uniform" (textbook).
	DanglingMode string

	// Reference additionally computes gonum's textbook PageRank.
	Reference bool

	// IgnorePatterns are glob patterns for HTML files to leave out.
	IgnorePatterns []string

	// MaxFileSize is the maximum number of bytes parsed per HTML file.
	// 0 keeps the default.
	MaxFileSize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// BatchSize is the number of corpora ranked concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .linkrank in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// CorpusConfigs holds the file defaults and per-corpus overrides.
	CorpusConfigs *File

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// RankOrder lists pages by decreasing rank in text reports.
	RankOrder bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// Targets is the list of corpus directories to rank.
	Targets []string

	// DBDir is the directory holding the rank history database.
	// Defaults to the XDG data directory (~/.local/share/linkrank on Linux).
	DBDir string

	// SaveToDB indicates whether to store results in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because the conventional defaults (damping 0.85, 10000
// samples) are non-zero and a zero damping factor is a valid setting.
func NewConfig() *Config {
	return &Config{
		Damping:       DefaultDamping,
		Samples:       DefaultSamples,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		DanglingMode:  DefaultDanglingMode,
		BatchSize:     DefaultBatchSize,
		MaxFileSize:   DefaultMaxFileSize,
		SaveToDB:      true,
		DBDir:         XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for linkrank.
// On Linux: ~/.local/share/linkrank
// On macOS: ~/Library/Application Support/linkrank
// On Windows: %LOCALAPPDATA%\linkrank
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkrank.
// On Linux: ~/.config/linkrank
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found; fixing one often makes others
// irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxFileSize < 0 {
		return ErrInvalidMaxFileSize
	}
	return nil
}

// Settings returns the estimator parameters of the global configuration.
func (c *Config) Settings() Settings {
	return Settings{
		Damping:        c.Damping,
		Samples:        c.Samples,
		Tolerance:      c.Tolerance,
		MaxIterations:  c.MaxIterations,
		Seed:           c.Seed,
		DanglingMode:   c.DanglingMode,
		IgnorePatterns: c.IgnorePatterns,
	}
}

// ForCorpus returns the effective settings for one corpus directory: the
// global settings with the matching per-corpus overrides of the
// configuration file applied on top.
func (c *Config) ForCorpus(dir string) Settings {
	s := c.Settings()
	if c.CorpusConfigs == nil {
		return s
	}
	if override, ok := c.CorpusConfigs.Lookup(dir); ok {
		s = override.ApplyTo(s)
	}
	return s
}

// Settings are the parameters of a single ranking run.
type Settings struct {
	Damping        float64
	Samples        int
	Tolerance      float64
	MaxIterations  int
	Seed           uint64
	DanglingMode   string
	IgnorePatterns []string
}

// Validate checks the estimator parameters.
func (s Settings) Validate() error {
	if math.IsNaN(s.Damping) || s.Damping < 0 || s.Damping > 1 {
		return ErrInvalidDamping
	}
	if s.Samples <= 0 {
		return ErrInvalidSamples
	}
	if math.IsNaN(s.Tolerance) || s.Tolerance <= 0 {
		return ErrInvalidTolerance
	}
	if s.MaxIterations < 0 {
		return ErrInvalidMaxIterations
	}
	switch strings.ToLower(s.DanglingMode) {
	case "drop", "uniform":
	default:
		return ErrInvalidDanglingMode
	}
	return nil
}
