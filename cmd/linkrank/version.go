package main

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is the length of the abbreviated commit hash.
const shortCommitLen = 7

// buildVCS returns the VCS settings the toolchain embedded in the binary.
// The map is empty for binaries built outside a repository.
var buildVCS = sync.OnceValue(func() map[string]string {
	settings := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	settings["module.version"] = info.Main.Version
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
})

// getVersion prefers the ldflags value, then the module version, then
// "(devel)".
func getVersion() string {
	if version != "" {
		return version
	}
	if v := buildVCS()["module.version"]; v != "" {
		return v
	}
	return "(devel)"
}

// getCommit returns the abbreviated commit, with "-dirty" appended when the
// working tree had local changes at build time.
func getCommit() string {
	if commit != "" {
		return commit
	}
	rev := buildVCS()["vcs.revision"]
	if rev == "" {
		return "unknown"
	}
	if len(rev) > shortCommitLen {
		rev = rev[:shortCommitLen]
	}
	if buildVCS()["vcs.modified"] == "true" {
		rev += "-dirty"
	}
	return rev
}

// getDate returns the build date, or the commit time when no date was
// injected.
func getDate() string {
	if date != "" {
		return date
	}
	if t := buildVCS()["vcs.time"]; t != "" {
		return t
	}
	return "unknown"
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the linkrank version together with the commit and build date it was built from.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "linkrank version %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", getCommit())
			fmt.Fprintf(out, "  built:  %s\n", getDate())
		},
	}
}
