// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/assemble"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	renderFile   string
	renderNoLock bool

	// renderCmd prints the Dockerfile a recipe compiles to
	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Print the Dockerfile the bakefile compiles to",
		Long: `Print the Dockerfile the bakefile compiles to, without building
anything.

The output is exactly what 'imgbake build' would hand to the container
engine, including lockfile pins when a bakefile.lock.toml is present.
Useful for inspecting what a recipe actually does, or for feeding the
Dockerfile to other tooling.`,
		RunE: runRender,
	}
)

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", bakefile.DefaultFileName, "path to the bakefile")
	renderCmd.Flags().BoolVar(&renderNoLock, "no-lock", false, "ignore bakefile.lock.toml")
}

func runRender(cmd *cobra.Command, args []string) error {
	bf, err := loadRecipe(renderFile, !renderNoLock)
	if err != nil {
		return err
	}

	dockerfile, err := assemble.RenderDockerfile(bf)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), dockerfile)
	return nil
}
