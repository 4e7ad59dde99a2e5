package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkrank/internal/model"
)

// DBFileName is the name of the history database inside the data directory.
const DBFileName = "linkrank.db"

// ErrRunNotFound is returned when no stored run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is a fixed-width UTC layout, so timestamps stored as text
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RankDB provides SQLite-based storage for ranking runs.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all corpora rather
// than one file per corpus directory. This keeps comparisons across runs
// a single query and makes backup/restore operations trivial.
type RankDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RankDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RankDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RankDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (rank a corpus first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; batch ranking saves from several
	// goroutines, so database/sql serializes them on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RankDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RankDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RankDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RankDB) createTables() error {
	schema := `
	-- One row per ranking run; the full report is kept as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		corpus TEXT NOT NULL,
		digest TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		damping REAL NOT NULL,
		samples INTEGER NOT NULL,
		seed TEXT NOT NULL,
		dangling_mode TEXT NOT NULL,
		pages INTEGER NOT NULL,
		links INTEGER NOT NULL,
		sweeps INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Ranks hold one value per page and estimator of a run
	CREATE TABLE IF NOT EXISTS ranks (
		run_id TEXT NOT NULL,
		estimator TEXT NOT NULL,
		page TEXT NOT NULL,
		rank REAL NOT NULL,
		PRIMARY KEY (run_id, estimator, page)
	);

	CREATE INDEX IF NOT EXISTS idx_ranks_page ON ranks(page);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a report and its ranks in one transaction. A report
// without an ID gets a new UUID, which is written back to report.ID and
// returned.
func (rdb *RankDB) SaveRun(ctx context.Context, report *model.RankReport) (string, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Error != nil && report.ErrorMessage == "" {
		report.ErrorMessage = report.Error.Error()
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p := report.Parameters
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, corpus, digest, timestamp, damping, samples, seed, dangling_mode,
		pages, links, sweeps, converged, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Corpus,
		report.Digest,
		report.DateRanked.UTC().Format(timeLayout),
		p.Damping,
		p.Samples,
		// uint64 seeds may not fit SQLite's signed integers.
		strconv.FormatUint(p.Seed, 10),
		p.DanglingMode,
		report.Pages,
		report.Links,
		report.Sweeps,
		report.Converged,
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ranks (run_id, estimator, page, rank) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare rank insert: %w", err)
	}
	defer stmt.Close()

	for _, est := range report.Estimates() {
		for page, value := range est.Ranks {
			if _, err := stmt.ExecContext(ctx, report.ID, est.Name, page, value); err != nil {
				return "", fmt.Errorf("failed to save rank of %s: %w", page, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return report.ID, nil
}

// GetRun retrieves a stored report by its ID.
func (rdb *RankDB) GetRun(ctx context.Context, id string) (*model.RankReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeReport(reportJSON)
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying history without loading the full report.
type RunMetadata struct {
	// ID is the UUID of the run.
	ID string `json:"id"`

	// Corpus is the ranked directory.
	Corpus string `json:"corpus"`

	// Digest fingerprints the link graph of the run.
	Digest string `json:"digest"`

	// Timestamp is when ranking started.
	Timestamp time.Time `json:"timestamp"`

	// Damping is the damping factor of the run.
	Damping float64 `json:"damping"`

	// Samples is the Monte Carlo sample count of the run.
	Samples int `json:"samples"`

	// Pages is the number of pages in the corpus.
	Pages int `json:"pages"`

	// Links is the number of links in the corpus.
	Links int `json:"links"`

	// Sweeps is the number of power-iteration sweeps.
	Sweeps int `json:"sweeps"`

	// Converged reports whether power iteration converged.
	Converged bool `json:"converged"`

	// Error is the error message of a failed run.
	Error string `json:"error,omitempty"`
}

// ListRuns returns metadata of all runs of a corpus, newest first.
// An empty corpus lists runs of every corpus.
func (rdb *RankDB) ListRuns(ctx context.Context, corpus string) ([]RunMetadata, error) {
	query := `
	SELECT id, corpus, digest, timestamp, damping, samples, pages, links, sweeps, converged, error
	FROM runs
	`
	args := make([]any, 0, 1)
	if corpus != "" {
		query += " WHERE corpus = ?"
		args = append(args, corpus)
	}
	query += " ORDER BY timestamp DESC, id"

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var errText sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.Corpus,
			&meta.Digest,
			&timestamp,
			&meta.Damping,
			&meta.Samples,
			&meta.Pages,
			&meta.Links,
			&meta.Sweeps,
			&meta.Converged,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Error = errText.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListCorpora returns every corpus with at least one stored run.
func (rdb *RankDB) ListCorpora(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT corpus FROM runs ORDER BY corpus`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	var corpora []string
	for rows.Next() {
		var corpus string
		if err := rows.Scan(&corpus); err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		corpora = append(corpora, corpus)
	}

	return corpora, rows.Err()
}

// LatestRuns returns up to k reports of a corpus, newest first.
func (rdb *RankDB) LatestRuns(ctx context.Context, corpus string, k int) ([]*model.RankReport, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := rdb.db.QueryContext(ctx, `
	SELECT report_json FROM runs
	WHERE corpus = ?
	ORDER BY timestamp DESC, id
	LIMIT ?
	`, corpus, k)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}
	defer rows.Close()

	var reports []*model.RankReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// PageRank is the rank of one page in one stored run.
type PageRank struct {
	// RunID is the UUID of the run.
	RunID string `json:"run_id"`

	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// Estimator is "sampling", "iteration" or "reference".
	Estimator string `json:"estimator"`

	// Rank is the page's rank.
	Rank float64 `json:"rank"`
}

// PageHistory returns the ranks of one page across all runs of a corpus,
// oldest first.
func (rdb *RankDB) PageHistory(ctx context.Context, corpus, page string) ([]PageRank, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT r.id, r.timestamp, k.estimator, k.rank
	FROM ranks k
	JOIN runs r ON r.id = k.run_id
	WHERE r.corpus = ? AND k.page = ?
	ORDER BY r.timestamp, k.estimator
	`, corpus, page)
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	var results []PageRank
	for rows.Next() {
		var pr PageRank
		var timestamp string
		if err := rows.Scan(&pr.RunID, &timestamp, &pr.Estimator, &pr.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		pr.Timestamp = parseTimestamp(timestamp)
		results = append(results, pr)
	}

	return results, rows.Err()
}

// DeleteRun removes a run and its ranks.
func (rdb *RankDB) DeleteRun(ctx context.Context, id string) error {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ranks WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete ranks: %w", err)
	}

	return tx.Commit()
}

// decodeReport parses a stored report.
func decodeReport(reportJSON string) (*model.RankReport, error) {
	var report model.RankReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if report.Titles == nil {
		report.Titles = make(map[string]string)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
