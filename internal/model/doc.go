// Package model defines the core data structures used throughout linkrank.
//
// This package contains the following main types:
//   - RankReport: The result of ranking one corpus
//   - Parameters: The estimator settings a report was produced with
//   - RankDiff: The change in ranks between two reports of the same corpus
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (pipeline, report, database) need to use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
