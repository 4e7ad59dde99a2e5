// Package log provides logging helpers built on top of the standard slog
// package.
//
// This package extends slog to provide:
//   - Shortening of paths under the user's home directory to "~"
//   - Configurable log levels with verbose mode support
//
// # Path Shortening
//
// Corpus directories, report files and the history database usually live
// under the home directory. The PathHandler rewrites such values so logs
// stay short and can be shared without leaking the account name:
//
//	/home/alice/corpora/corpus0 -> ~/corpora/corpus0
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//	logger.Info("corpus loaded", "dir", "/home/alice/corpora/corpus0")
//	slog.SetDefault(logger)
package log
