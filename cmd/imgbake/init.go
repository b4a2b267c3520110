// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	initForce bool

	// initCmd creates a new bakefile
	initCmd = &cobra.Command{
		Use:   "init [file]",
		Short: "Create a new bakefile in the current directory",
		Long: `Create a new bakefile in the current directory.

This command generates a starter bakefile.cue with a base image and
example provisioning steps to help you get started quickly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing bakefile")
}

func runInit(cmd *cobra.Command, args []string) error {
	filename := bakefile.DefaultFileName
	if len(args) > 0 {
		filename = args[0]
	}

	// Check if file exists
	if _, err := os.Stat(filename); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", filename)
	}

	content := bakefile.GenerateCUE(bakefile.Default())

	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	stdout := cmd.OutOrStdout()
	absPath, _ := filepath.Abs(filename)
	fmt.Fprintf(stdout, "%s Created %s\n", successIcon, absPath)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(stdout, "  1. Edit the bakefile's base image and steps")
	fmt.Fprintln(stdout, "  2. Run 'imgbake validate' to check the recipe")
	fmt.Fprintln(stdout, "  3. Run 'imgbake build' to assemble the image")

	return nil
}
