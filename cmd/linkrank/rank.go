package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/database"
	linklog "github.com/nao1215/linkrank/internal/log"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/pipeline"
	"github.com/nao1215/linkrank/internal/report"
	"github.com/spf13/cobra"
)

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [dir...]",
		Short: "Compute PageRank for one or more HTML directories",
		Long: `Rank reads every .html file of a directory, builds the link graph from
<a href> attributes and computes PageRank in two ways:
- Sampling: a random surfer walks the graph many times
- Iteration: ranks are updated until no page changes by more than the tolerance

Links to files outside the directory, external URLs and links from a page
to itself are ignored.

Examples:
  # Rank a single directory
  linkrank rank ./site

  # Rank several directories, two at a time
  linkrank rank --batch 2 ./site ./blog ./docs

  # Reproducible run with a fixed seed and textbook dangling handling
  linkrank rank --seed 42 --dangling uniform ./site

  # Cross-check with gonum's PageRank and write Markdown to a file
  linkrank rank --reference --markdown -o report.md ./site

Configuration file (.linkrank) example:
  defaults:
    damping: 0.85
    samples: 10000
  corpora:
    ./blog:
      ignorePatterns:
        - "tag-*.html"`,
		Args: cobra.ArbitraryArgs,
		RunE: runRankCmd,
	}

	addRankingFlags(cmd)

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of directories ranked concurrently")

	return cmd
}

// addRankingFlags registers the flags shared by rank and watch.
func addRankingFlags(cmd *cobra.Command) {
	// Estimator flags
	cmd.Flags().Float64P("damping", "d", config.DefaultDamping,
		"Probability of following a link instead of jumping to a random page")
	cmd.Flags().IntP("samples", "n", config.DefaultSamples,
		"Number of Monte Carlo random walks")
	cmd.Flags().Float64P("tolerance", "t", config.DefaultTolerance,
		"Power-iteration convergence threshold")
	cmd.Flags().IntP("max-iterations", "k", config.DefaultMaxIterations,
		"Maximum power-iteration sweeps (0 for no limit)")
	cmd.Flags().Uint64P("seed", "s", 0,
		"Random seed for sampling (0 picks one and reports it)")
	cmd.Flags().String("dangling", config.DefaultDanglingMode,
		`Rank of pages without links in power iteration: "drop" or "uniform"`)
	cmd.Flags().BoolP("reference", "r", false,
		"Also compute gonum's PageRank for comparison")

	// Corpus flags
	cmd.Flags().StringSliceP("ignore", "i", nil,
		"Glob patterns of HTML file names to leave out")
	cmd.Flags().Int64("max-file-size", config.DefaultMaxFileSize,
		"Maximum bytes parsed per HTML file")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkrank in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("by-rank", false,
		"List pages by decreasing rank instead of by name")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
}

// runRankCmd executes the rank command.
func runRankCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := linklog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	// Cancel ranking on interrupt so partial results can still be reported
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runRank(ctx, cfg, cmd.OutOrStdout(), logger)
}

// validateConfig checks the global configuration and the effective
// settings of every corpus.
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	for _, dir := range cfg.Targets {
		if err := cfg.ForCorpus(dir).Validate(); err != nil {
			return fmt.Errorf("configuration error for %s: %w", dir, err)
		}
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file. File defaults only apply to flags left unset.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Damping, err = flags.GetFloat64("damping"); err != nil {
		return nil, err
	}
	if cfg.Samples, err = flags.GetInt("samples"); err != nil {
		return nil, err
	}
	if cfg.Tolerance, err = flags.GetFloat64("tolerance"); err != nil {
		return nil, err
	}
	if cfg.MaxIterations, err = flags.GetInt("max-iterations"); err != nil {
		return nil, err
	}
	if cfg.Seed, err = flags.GetUint64("seed"); err != nil {
		return nil, err
	}
	if cfg.DanglingMode, err = flags.GetString("dangling"); err != nil {
		return nil, err
	}
	if cfg.Reference, err = flags.GetBool("reference"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize, err = flags.GetInt64("max-file-size"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.RankOrder, err = flags.GetBool("by-rank"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	// watch ranks a single directory and has no batch flag
	if flags.Lookup("batch") != nil {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use an empty config.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.CorpusConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.CorpusConfigs.ApplyDefaults(cfg, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.CorpusConfigs = &config.File{
			Corpora: make(map[string]config.CorpusConfig),
		}
	}

	// Store absolute paths so history entries do not depend on the
	// working directory.
	cfg.Targets = make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid corpus path %q: %w", arg, err)
		}
		cfg.Targets = append(cfg.Targets, abs)
	}

	return cfg, nil
}

// runRank ranks every target and outputs the reports in argument order.
func runRank(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	logger.Info("starting ranking",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	writer, closeOutput, err := newReportWriter(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	bp := pipeline.NewBatchProcessor(
		func(dir string) *pipeline.Pipeline {
			return newPipeline(cfg, dir, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	reports, batchErr := bp.ProcessBatch(ctx, cfg.Targets)

	var failed int
	for _, r := range reports {
		if r == nil {
			continue // never started because of cancellation
		}
		if r.Failed() {
			failed++
		}
		if _, err := writer.Write(r); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		// Runs are saved even when cancelled, so the history shows them
		if err := saveRun(context.WithoutCancel(ctx), db, r, logger); err != nil {
			logger.Error("failed to save run", "corpus", r.Corpus, "error", err)
		}
	}

	logger.Info("ranking complete",
		"corpora", len(cfg.Targets),
		"failed", failed,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d corpora could not be ranked cleanly", failed, len(cfg.Targets))
	}
	return nil
}

// newPipeline creates the ranking pipeline for one corpus directory,
// using the per-corpus overrides of the configuration file.
func newPipeline(cfg *config.Config, dir string, logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.DefaultPipeline(
		cfg.ForCorpus(dir),
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPipelineReference(cfg.Reference),
		pipeline.WithPipelineMaxFileSize(cfg.MaxFileSize),
		pipeline.WithPipelineStepLogger(logger),
	)
}

// openHistory opens the history database if saving is enabled.
// It returns a nil database otherwise.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.RankDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// newReportWriter creates the writer for the requested format. Reports
// go to cfg.ReportFile when set, otherwise to stdout. The returned
// function closes the output file.
func newReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func(), error) {
	output := stdout
	closeOutput := func() {}

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeOutput = func() { _ = f.Close() }
	}

	return selectWriter(cfg.JSONReport, cfg.MarkdownReport, cfg.RankOrder, cfg.Verbose, output), closeOutput, nil
}

// selectWriter returns the report writer for the requested format.
func selectWriter(jsonOutput, markdownOutput, byRank, verbose bool, output io.Writer) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithRankOrder(byRank),
			report.WithVerbose(verbose),
		)
	}
}

// saveRun stores the report in the history database.
// If db is nil, this function is a no-op. Reports of corpora that could
// not be loaded are not stored.
func saveRun(ctx context.Context, db *database.RankDB, r *model.RankReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if r.Pages == 0 {
		logger.Debug("not saving run without a corpus", "corpus", r.Corpus)
		return nil
	}

	id, err := db.SaveRun(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to database", "corpus", r.Corpus, "id", id)
	return nil
}
