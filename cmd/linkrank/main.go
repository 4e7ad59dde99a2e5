// Package main provides the entry point for the linkrank CLI.
//
// linkrank estimates PageRank for a directory of HTML pages, once by
// simulating a random surfer and once by power iteration, and keeps a
// history of runs so rank changes can be compared over time.
//
// Usage:
//
//	linkrank rank <dir>
//	linkrank history <dir>
//	linkrank watch <dir>
//
// See --help for all available options.
package main

// main is the entry point for linkrank.
func main() {
	Execute()
}
