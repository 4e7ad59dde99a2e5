package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".linkrank"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// CorpusConfig holds overrides for ranking one corpus.
// Zero values mean "not set", except Damping which is a pointer because a
// damping factor of 0 is meaningful.
type CorpusConfig struct {
	// Damping overrides the damping factor.
	Damping *float64 `yaml:"damping,omitempty"`

	// Samples overrides the Monte Carlo trial count.
	Samples int `yaml:"samples,omitempty"`

	// Tolerance overrides the convergence threshold.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// MaxIterations overrides the sweep cap.
	MaxIterations int `yaml:"maxIterations,omitempty"`

	// Seed fixes the Monte Carlo seed.
	Seed uint64 `yaml:"seed,omitempty"`

	// DanglingMode overrides the dangling mode ("drop" or "uniform").
	DanglingMode string `yaml:"dangling,omitempty"`

	// IgnorePatterns replaces the glob patterns of files to leave out.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// ApplyTo returns s with every set field of cc applied.
func (cc CorpusConfig) ApplyTo(s Settings) Settings {
	if cc.Damping != nil {
		s.Damping = *cc.Damping
	}
	if cc.Samples != 0 {
		s.Samples = cc.Samples
	}
	if cc.Tolerance != 0 {
		s.Tolerance = cc.Tolerance
	}
	if cc.MaxIterations != 0 {
		s.MaxIterations = cc.MaxIterations
	}
	if cc.Seed != 0 {
		s.Seed = cc.Seed
	}
	if cc.DanglingMode != "" {
		s.DanglingMode = cc.DanglingMode
	}
	if len(cc.IgnorePatterns) > 0 {
		s.IgnorePatterns = cc.IgnorePatterns
	}
	return s
}

// File represents the structure of the .linkrank configuration file.
type File struct {
	// Defaults apply to every corpus unless a flag is given explicitly.
	Defaults CorpusConfig `yaml:"defaults,omitempty"`

	// Corpora maps corpus directories to their overrides. Relative keys
	// are resolved against the working directory, so "corpus0",
	// "./corpus0/" and its absolute path all match.
	Corpora map[string]CorpusConfig `yaml:"corpora,omitempty"`
}

// Lookup returns the overrides configured for dir.
func (cf *File) Lookup(dir string) (CorpusConfig, bool) {
	want := absPath(dir)
	for key, cc := range cf.Corpora {
		if absPath(key) == want {
			return cc, true
		}
	}
	return CorpusConfig{}, false
}

// absPath returns the absolute form of path, or the cleaned path when the
// working directory is unknown.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// LoadConfigFile loads corpus configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Corpora == nil {
		cf.Corpora = make(map[string]CorpusConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .linkrank in the current directory
// 3. Look for .linkrank in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ApplyDefaults copies the file defaults into cfg for every setting whose
// command-line flag was not given explicitly. changed reports whether a
// flag (by its long name) was set on the command line; a nil changed
// treats every flag as unset.
func (cf *File) ApplyDefaults(cfg *Config, changed func(flag string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	d := cf.Defaults
	if d.Damping != nil && !changed("damping") {
		cfg.Damping = *d.Damping
	}
	if d.Samples != 0 && !changed("samples") {
		cfg.Samples = d.Samples
	}
	if d.Tolerance != 0 && !changed("tolerance") {
		cfg.Tolerance = d.Tolerance
	}
	if d.MaxIterations != 0 && !changed("max-iterations") {
		cfg.MaxIterations = d.MaxIterations
	}
	if d.Seed != 0 && !changed("seed") {
		cfg.Seed = d.Seed
	}
	if d.DanglingMode != "" && !changed("dangling") {
		cfg.DanglingMode = d.DanglingMode
	}
	if len(d.IgnorePatterns) > 0 && !changed("ignore") {
		cfg.IgnorePatterns = d.IgnorePatterns
	}
}
