// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/lockfile"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	lockFile  string
	lockCheck bool

	// lockCmd records or verifies the recipe's package pins
	lockCmd = &cobra.Command{
		Use:   "lock",
		Short: "Record the bakefile's package pins in bakefile.lock.toml",
		Long: `Record the bakefile's package pins in bakefile.lock.toml.

Every apt, pip, and pip_vcs package of the recipe is recorded. Versions
stated explicitly in the recipe become pins; packages without one keep
the pin from the existing lockfile when present, and are otherwise
recorded unpinned.

With --check, no lockfile is written: the existing lockfile is verified
against the recipe and the command fails when pinned entries no longer
match any recipe package.`,
		RunE: runLock,
	}
)

func init() {
	lockCmd.Flags().StringVarP(&lockFile, "file", "f", bakefile.DefaultFileName, "path to the bakefile")
	lockCmd.Flags().BoolVar(&lockCheck, "check", false, "verify the existing lockfile instead of writing one")
}

func runLock(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()

	bf, err := loadRecipe(lockFile, false)
	if err != nil {
		return err
	}

	lockPath := lockfilePathFor(lockFile)

	// Carry pins over from the previous lockfile when one exists.
	var prev *lockfile.Lockfile
	if _, statErr := os.Stat(lockPath); statErr == nil {
		prev, err = lockfile.Load(lockPath)
		if err != nil {
			return err
		}
	}

	if lockCheck {
		if prev == nil {
			return fmt.Errorf("no lockfile at %s (run 'imgbake lock' to create one)", lockPath)
		}
		if verifyErr := prev.Verify(bf); verifyErr != nil {
			cmd.SilenceUsage = true
			return verifyErr
		}
		fmt.Fprintf(stdout, "%s Lockfile matches the bakefile\n", successIcon)
		return nil
	}

	lf := lockfile.FromBakefile(bf, prev)
	if err := lockfile.Save(lockPath, lf); err != nil {
		return err
	}

	pinned := 0
	for _, p := range lf.Packages {
		if p.Pin != "" {
			pinned++
		}
	}
	fmt.Fprintf(stdout, "%s Wrote %s (%d package(s), %d pinned, %d vcs)\n",
		successIcon, lockPath, len(lf.Packages), pinned, len(lf.VCS))

	return nil
}
