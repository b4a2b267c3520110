// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/lockfile"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	validateNoLock bool

	// validateCmd checks a bakefile without building anything
	validateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a bakefile without building",
		Long: `Validate a bakefile without building anything.

Runs the same checks a build would: CUE schema validation, semantic
validation (image reference, step kinds, package names, shell syntax of
run commands and the post-step hook), and lockfile consistency when a
bakefile.lock.toml is present.

Examples:
  imgbake validate                   Validate ./bakefile.cue
  imgbake validate ./other.cue       Validate a specific recipe`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().BoolVar(&validateNoLock, "no-lock", false, "skip the lockfile consistency check")
}

func runValidate(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	path := bakefile.DefaultFileName
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	fmt.Fprintln(stdout, TitleStyle.Render("Bakefile Validation"))
	fmt.Fprintf(stdout, "%s Path: %s\n", infoIcon, VerboseStyle.Render(absPath))
	fmt.Fprintln(stdout)

	// Parse includes CUE schema validation and the semantic checks.
	bf, err := bakefile.Load(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s Validation failed\n", errorIcon)
		fmt.Fprintln(stderr)
		fmt.Fprintf(stderr, "  %s\n", err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: 1}
	}

	fmt.Fprintf(stdout, "%s CUE schema validation passed\n", successIcon)
	fmt.Fprintf(stdout, "%s Semantic validation passed\n", successIcon)

	// Lockfile consistency, when one sits next to the recipe.
	lockPath := lockfilePathFor(path)
	if !validateNoLock {
		if _, statErr := os.Stat(lockPath); statErr == nil {
			lf, loadErr := lockfile.Load(lockPath)
			if loadErr != nil {
				fmt.Fprintf(stderr, "%s Lockfile is unreadable\n", errorIcon)
				fmt.Fprintln(stderr)
				fmt.Fprintf(stderr, "  %s\n", loadErr)
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
				return &ExitError{Code: 1}
			}
			if verifyErr := lf.Verify(bf); verifyErr != nil {
				fmt.Fprintf(stderr, "%s Lockfile consistency check failed\n", errorIcon)
				fmt.Fprintln(stderr)
				fmt.Fprintf(stderr, "  %s\n", verifyErr)
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(stdout, "%s Lockfile consistency check passed\n", successIcon)
		}
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%s Bakefile is valid (%d step(s))\n", successIcon, len(bf.Steps))
	return nil
}
