package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/linkrank/internal/config"
	"github.com/spf13/cobra"
)

// configTemplate is the commented configuration written by init. It must
// stay loadable by config.LoadConfigFile.
//
//go:embed templates/linkrank.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .linkrank configuration file",
		Long: `Init writes a commented .linkrank configuration file.

The file sets the estimator defaults (damping, samples, tolerance, sweep
cap, dangling mode) and shows commented examples of ignore patterns and
per-corpus overrides. rank and watch pick it up from the current directory
or the home directory.

Examples:
  # Write .linkrank here
  linkrank init

  # Write somewhere else
  linkrank init -o configs/site.yaml

  # Replace an existing file
  linkrank init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Path of the configuration file to write")
	cmd.Flags().BoolP("force", "f", false,
		"Replace the file if it already exists")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nAdjust it to change:")
	fmt.Fprintln(out, "  - the damping factor and sample count")
	fmt.Fprintln(out, "  - how pages without links are handled")
	fmt.Fprintln(out, "  - ignored files and per-corpus overrides")
	return nil
}

// writeTemplate creates path with the template. Without force the file is
// opened with O_EXCL, so an existing file is never truncated.
func writeTemplate(path string, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0600) //nolint:gosec // path comes from the user
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	if _, err := f.Write(configTemplate); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
