package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/nao1215/linkrank/internal/database"
	"github.com/nao1215/linkrank/internal/model"
	"github.com/spf13/cobra"
)

// errNotEnoughRuns is returned when a comparison needs more stored runs.
var errNotEnoughRuns = errors.New("not enough runs to compare")

// NewHistoryCmd creates the history command.
// This command reads the runs stored by rank and watch.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "Show and compare stored ranking runs",
		Long: `History reads the runs stored in the history database and shows:
- How ranks changed between the two latest runs of a corpus
- The list of runs of a corpus, or of all corpora
- The rank of one page across all runs

Examples:
  # Compare the two latest runs of a corpus
  linkrank history ./site

  # Compare the latest run with a specific earlier run
  linkrank history --with-run-id 0b6f3c1e-... ./site

  # List all runs of a corpus
  linkrank history --list ./site

  # Follow one page over time
  linkrank history --page index.html ./site

  # Show a stored report again, as Markdown
  linkrank history --show 0b6f3c1e-... --markdown

  # List all corpora in the database
  linkrank history --list-corpora`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List runs of the specified corpus (all corpora without a directory)")
	cmd.Flags().BoolP("list-corpora", "L", false,
		"List all corpora in the database")
	cmd.Flags().StringP("page", "p", "",
		"Show the rank of one page across all runs of the corpus")

	// Single run flags
	cmd.Flags().String("show", "",
		"Print the stored report of a run")
	cmd.Flags().String("delete", "",
		"Delete a run from the database")

	// Comparison flags
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare the latest run with a specific run (use --list to see IDs)")

	// Output format flags, used by --show and comparisons
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	corpus      string
	list        bool
	listCorpora bool
	page        string
	show        string
	deleteID    string
	withRunID   string
	json        bool
	markdown    bool
	dbDir       string
}

// parseHistoryFlags reads and validates the history flags.
// Arguments are checked before opening the database.
func parseHistoryFlags(cmd *cobra.Command, args []string) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{}

	var err error
	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.listCorpora, err = flags.GetBool("list-corpora"); err != nil {
		return nil, err
	}
	if opts.page, err = flags.GetString("page"); err != nil {
		return nil, err
	}
	if opts.show, err = flags.GetString("show"); err != nil {
		return nil, err
	}
	if opts.deleteID, err = flags.GetString("delete"); err != nil {
		return nil, err
	}
	if opts.withRunID, err = flags.GetString("with-run-id"); err != nil {
		return nil, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}

	if len(args) == 1 {
		if opts.corpus, err = filepath.Abs(args[0]); err != nil {
			return nil, fmt.Errorf("invalid corpus path %q: %w", args[0], err)
		}
	}

	needsCorpus := !opts.listCorpora && !opts.list && opts.show == "" && opts.deleteID == ""
	if needsCorpus && opts.corpus == "" {
		return nil, errors.New("corpus directory is required (use --list-corpora to see available corpora)")
	}

	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	// History only reads what rank stored, so never create an empty database
	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.listCorpora:
		return listCorpora(ctx, out, db)
	case opts.deleteID != "":
		if err := db.DeleteRun(ctx, opts.deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", opts.deleteID)
		return nil
	case opts.show != "":
		r, err := db.GetRun(ctx, opts.show)
		if err != nil {
			return err
		}
		_, err = selectWriter(opts.json, opts.markdown, false, true, out).Write(r)
		return err
	case opts.list:
		return listRuns(ctx, out, db, opts.corpus)
	case opts.page != "":
		return pageHistory(ctx, out, db, opts.corpus, opts.page)
	default:
		diff, err := compareRuns(ctx, db, opts.corpus, opts.withRunID)
		if err != nil {
			return err
		}
		_, err = selectWriter(opts.json, opts.markdown, false, false, out).WriteDiff(diff)
		return err
	}
}

// listCorpora lists all corpora that have runs in the database.
func listCorpora(ctx context.Context, out io.Writer, db *database.RankDB) error {
	corpora, err := db.ListCorpora(ctx)
	if err != nil {
		return fmt.Errorf("failed to list corpora: %w", err)
	}

	if len(corpora) == 0 {
		fmt.Fprintln(out, "No ranked corpora found in the database.")
		fmt.Fprintln(out, "\nUse 'linkrank rank <dir>' to rank a corpus.")
		return nil
	}

	fmt.Fprintf(out, "Ranked corpora (%d):\n\n", len(corpora))
	for _, corpus := range corpora {
		fmt.Fprintf(out, "  • %s\n", corpus)
	}
	fmt.Fprintln(out, "\nUse 'linkrank history --list <dir>' to see the runs of a corpus.")

	return nil
}

// listRuns lists the runs of a corpus, or of every corpus when corpus is empty.
func listRuns(ctx context.Context, out io.Writer, db *database.RankDB, corpus string) error {
	runs, err := db.ListRuns(ctx, corpus)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	name := corpus
	if name == "" {
		name = "all corpora"
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", name)
		fmt.Fprintln(out, "\nUse 'linkrank rank' to rank this corpus.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", name, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %s\n", "ID", "Date", "Pages", "Links", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %s\n",
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Pages,
			run.Links,
			runStatus(run),
		)
		if corpus == "" {
			fmt.Fprintf(out, "  %36s  %s\n", "", run.Corpus)
		}
	}

	return nil
}

// runStatus summarizes the outcome of a run.
func runStatus(run database.RunMetadata) string {
	switch {
	case run.Error != "":
		return "error: " + run.Error
	case run.Converged:
		return fmt.Sprintf("converged (%d sweeps, d=%g)", run.Sweeps, run.Damping)
	default:
		return fmt.Sprintf("sampling only (n=%d, d=%g)", run.Samples, run.Damping)
	}
}

// pageHistory prints the rank of one page across the runs of a corpus.
func pageHistory(ctx context.Context, out io.Writer, db *database.RankDB, corpus, page string) error {
	ranks, err := db.PageHistory(ctx, corpus, page)
	if err != nil {
		return err
	}
	if len(ranks) == 0 {
		fmt.Fprintf(out, "No ranks recorded for %s in %s\n", page, corpus)
		return nil
	}

	fmt.Fprintf(out, "Rank history of %s in %s:\n\n", page, corpus)
	fmt.Fprintf(out, "  %-19s  %-10s  %s\n", "Date", "Estimator", "Rank")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 42))
	for _, r := range ranks {
		fmt.Fprintf(out, "  %-19s  %-10s  %.4f\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Estimator, r.Rank)
	}
	return nil
}

// compareRuns diffs the latest run of a corpus against withRunID, or
// against the run before it when withRunID is empty.
func compareRuns(ctx context.Context, db *database.RankDB, corpus, withRunID string) (*model.RankDiff, error) {
	latest, err := db.LatestRuns(ctx, corpus, 2)
	if err != nil {
		return nil, err
	}

	if withRunID != "" {
		if len(latest) == 0 {
			return nil, fmt.Errorf("%w: no runs of %s", errNotEnoughRuns, corpus)
		}
		other, err := db.GetRun(ctx, withRunID)
		if err != nil {
			return nil, err
		}
		if other.Corpus != corpus {
			return nil, fmt.Errorf("run %s belongs to %s, not %s", withRunID, other.Corpus, corpus)
		}
		if other.ID == latest[0].ID {
			return nil, fmt.Errorf("run %s is the latest run of %s", withRunID, corpus)
		}
		return model.Diff(other, latest[0]), nil
	}

	if len(latest) < 2 {
		return nil, fmt.Errorf("%w: %s has %d run(s), rank it again first", errNotEnoughRuns, corpus, len(latest))
	}
	return model.Diff(latest[1], latest[0]), nil
}
