// Package watch re-runs a handler when pages of a corpus directory change.
// Bursts of file events are debounced into one call.
package watch
