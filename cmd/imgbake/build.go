// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgbake/imgbake/internal/assemble"
	"github.com/imgbake/imgbake/internal/config"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

var (
	buildFile      string
	buildForce     bool
	buildNoCache   bool
	buildNoLock    bool
	buildEngine    string
	buildTagSuffix string

	// buildCmd assembles the image described by a bakefile
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Assemble the container image described by the bakefile",
		Long: `Assemble the container image described by the bakefile.

The recipe is compiled to a Dockerfile and built with the configured
container engine. Steps run strictly in declared order; the first failing
step aborts the build and no image is produced.

Images are cached by recipe content. An unchanged bakefile reuses the
previously assembled image; any change to the base, environment, steps,
or entry produces a new tag. Use --force to rebuild regardless.

When a bakefile.lock.toml exists next to the recipe, its version pins are
applied before building (disable with --no-lock).`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildFile, "file", "f", bakefile.DefaultFileName, "path to the bakefile")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even if the assembled image exists")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "disable the engine's layer cache")
	buildCmd.Flags().BoolVar(&buildNoLock, "no-lock", false, "ignore bakefile.lock.toml")
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "container engine to use (podman or docker, overrides config)")
	buildCmd.Flags().StringVar(&buildTagSuffix, "tag-suffix", "", "suffix appended to the assembled image tag")
}

func runBuild(cmd *cobra.Command, args []string) error {
	result, err := assembleRecipe(cmd, buildFile, buildForce, buildNoCache, buildNoLock)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if result.Cached {
		fmt.Fprintf(stdout, "%s Image up to date: %s\n", successIcon, CmdStyle.Render(string(result.ImageTag)))
	} else {
		fmt.Fprintf(stdout, "%s Baked image: %s\n", successIcon, CmdStyle.Render(string(result.ImageTag)))
	}

	return nil
}

// assembleRecipe is the shared load-and-assemble path behind build and run.
func assembleRecipe(cmd *cobra.Command, file string, force, noCache, noLock bool) (*assemble.Result, error) {
	bf, err := loadRecipe(file, !noLock)
	if err != nil {
		return nil, err
	}

	// Copy so a flag override never leaks into the shared configuration.
	cfg := *currentConfig()
	if buildEngine != "" {
		if buildEngine != "podman" && buildEngine != "docker" {
			return nil, fmt.Errorf("invalid --engine value %q: must be 'podman' or 'docker'", buildEngine)
		}
		cfg.ContainerEngine = config.ContainerEngine(buildEngine)
	}
	engine, err := resolveEngine(&cfg)
	if err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n",
			VerboseStyle.Render(fmt.Sprintf("using %s engine (%s)", engine.Name(), engine.BinaryPath())))
	}

	asmCfg := assemble.DefaultConfig()
	asmCfg.Apply(
		assemble.WithForceRebuild(force),
		assemble.WithDisableCache(noCache || cfg.Build.DisableCache),
		assemble.WithPullAttempts(cfg.Build.PullRetries),
	)
	if buildTagSuffix != "" {
		asmCfg.Apply(assemble.WithTagSuffix(buildTagSuffix))
	}

	assembler := assemble.NewImageAssembler(engine, asmCfg)
	result, err := assembler.Assemble(cmd.Context(), bf)
	if err != nil {
		if id, ok := assembleIssueId(err); ok {
			renderIssue(id)
		}
		cmd.SilenceUsage = true
		return nil, err
	}

	return result, nil
}
