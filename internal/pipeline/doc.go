// Package pipeline runs the ranking of a corpus as a sequence of steps.
//
// A run loads the HTML directory into a link graph, then computes the
// Monte Carlo and power-iteration estimates side by side, and optionally
// the gonum reference ranking. Each stage is a Step that receives the
// current report and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for large corpora
//
// Several corpora are ranked concurrently by a BatchProcessor, which
// bounds concurrency using errgroup.
package pipeline
