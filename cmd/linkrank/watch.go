package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/crawler"
	"github.com/nao1215/linkrank/internal/database"
	linklog "github.com/nao1215/linkrank/internal/log"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/nao1215/linkrank/internal/report"
	"github.com/nao1215/linkrank/internal/watch"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-rank a directory whenever its pages change",
		Long: `Watch ranks a directory once, then again every time an .html file in it
is created, modified, renamed or removed. Edits that leave the link graph
unchanged (text or markup only) are reported but not ranked again.

Press Ctrl+C to stop.

Examples:
  # Watch a site while editing it
  linkrank watch ./site

  # Print ranks in decreasing order and wait one second after the last change
  linkrank watch --by-rank --debounce 1s ./site`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	addRankingFlags(cmd)

	cmd.Flags().Duration("debounce", watch.DefaultDebounce,
		"Quiet period after the last change before ranking again")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	logger := linklog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runWatch(ctx, cfg, debounce, cmd.OutOrStdout(), logger)
}

// watchSession ranks one corpus repeatedly.
type watchSession struct {
	cfg    *config.Config
	dir    string
	db     *database.RankDB
	writer report.Writer
	logger *slog.Logger

	// digest is the link graph of the last ranked run.
	digest string
}

// rank runs the pipeline once and outputs the report unless the link
// graph is unchanged since the previous run.
func (s *watchSession) rank(ctx context.Context, changed []string) error {
	r := model.NewRankReport(s.dir)
	pipelineErr := newPipeline(s.cfg, s.dir, s.logger).Execute(ctx, r)

	if r.Pages > 0 && r.Digest == s.digest {
		s.logger.Info("link graph unchanged", "corpus", s.dir, "changed", changed)
		return nil
	}
	if r.Pages > 0 {
		s.digest = r.Digest
	}

	if _, err := s.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := saveRun(ctx, s.db, r, s.logger); err != nil {
		s.logger.Error("failed to save run", "corpus", s.dir, "error", err)
	}
	return pipelineErr
}

// runWatch ranks cfg.Targets[0] once and then after every change.
func runWatch(ctx context.Context, cfg *config.Config, debounce time.Duration, stdout io.Writer, logger *slog.Logger) error {
	dir := cfg.Targets[0]
	settings := cfg.ForCorpus(dir)

	// The loader decides which files are pages, so the watcher ignores
	// exactly what ranking ignores.
	loader, err := crawler.NewLoader(crawler.WithIgnorePatterns(settings.IgnorePatterns))
	if err != nil {
		return err
	}

	w, err := watch.New(dir,
		watch.WithDebounce(debounce),
		watch.WithFilter(loader.IsPage),
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

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

	session := &watchSession{
		cfg:    cfg,
		dir:    dir,
		db:     db,
		writer: writer,
		logger: logger,
	}

	if err := session.rank(ctx, nil); err != nil {
		logger.Warn("initial ranking failed", "corpus", dir, "error", err)
	}

	fmt.Fprintf(stdout, "Watching %s for changes (Ctrl+C to stop)...\n", linklog.ShortenHome(dir))
	return w.Run(ctx, session.rank)
}
