// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	runFile   string
	runNoLock bool

	// runCmd assembles the image and starts a container from it
	runCmd = &cobra.Command{
		Use:   "run [-- command...]",
		Short: "Assemble the image, then start a container from it",
		Long: `Assemble the image described by the bakefile, then start a container
from it.

Without arguments the container runs the recipe's entry command. Arguments
after -- override it:

  imgbake run                  Start the entry command (default: bash)
  imgbake run -- python app.py Run an explicit command instead

The container is interactive (stdin attached, TTY allocated) and removed
on exit. Its exit code becomes imgbake's exit code.`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", bakefile.DefaultFileName, "path to the bakefile")
	runCmd.Flags().BoolVar(&runNoLock, "no-lock", false, "ignore bakefile.lock.toml")
}

func runRun(cmd *cobra.Command, args []string) error {
	result, err := assembleRecipe(cmd, runFile, false, false, runNoLock)
	if err != nil {
		return err
	}

	cfg := currentConfig()
	engine, err := resolveEngine(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n",
			VerboseStyle.Render(fmt.Sprintf("starting container from %s", result.ImageTag)))
	}

	runResult, err := engine.Run(cmd.Context(), container.RunOptions{
		Image:       result.ImageTag,
		Command:     args,
		Remove:      true,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: true,
		TTY:         true,
	})
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}

	if !runResult.ExitCode.IsSuccess() {
		// The container already wrote its own diagnostics; just carry the code.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: runResult.ExitCode, Err: runResult.Error}
	}

	return nil
}
