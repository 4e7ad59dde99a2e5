package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the linkrank command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkrank",
		Short: "Rank the pages of an HTML corpus with PageRank",
		Long: `linkrank estimates the importance of the pages in a directory of HTML files.

Links between pages are read from <a href> attributes. Ranks are computed
twice, by a Monte Carlo random surfer and by power iteration, so the two
estimates can be checked against each other. Every run is stored in a
local history database.`,
		Version: getVersion(),

		// Errors are printed once by Execute; usage is noise for a failed run.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress and print corpus statistics")

	cmd.AddCommand(
		NewRankCmd(),
		NewHistoryCmd(),
		NewWatchCmd(),
		NewInitCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs linkrank and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "linkrank: %v\n", err)
		os.Exit(1)
	}
}
