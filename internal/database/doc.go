// Package database provides SQLite-based rank history for linkrank.
//
// This package implements the RankDB, which stores:
//   - One row per ranking run with its parameters and corpus digest
//   - The rank of every page per estimator, for page-level history
//   - The full report as JSON, so old runs can be re-rendered
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode provides good concurrent read performance
package database
