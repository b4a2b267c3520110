// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"fmt"
	"strings"

	"github.com/imgbake/imgbake/pkg/bakefile"
)

// RenderDockerfile renders a recipe as Dockerfile content. The output is
// deterministic for a given recipe (env keys are sorted), so it doubles as
// the cache key input for assembled images.
//
// Each step becomes one RUN instruction, preserving the recipe's step order
// as layer order. The recipe-level post-step hook is chained onto every
// step's command in the same layer, so whatever it cleans up never reaches
// the layer's filesystem snapshot.
func RenderDockerfile(bf *bakefile.Bakefile) (string, error) {
	var sb strings.Builder

	sb.WriteString("# Generated by imgbake. Do not edit.\n")
	if bf.Description != "" {
		fmt.Fprintf(&sb, "# %s\n", bf.Description)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "FROM %s\n", bf.Base)

	if len(bf.Env) > 0 {
		sb.WriteString("\n")
		for _, k := range bf.SortedEnvKeys() {
			fmt.Fprintf(&sb, "ENV %s=%q\n", k, bf.Env[k])
		}
	}

	for i, step := range bf.Steps {
		cmd, err := step.ShellCommand()
		if err != nil {
			return "", fmt.Errorf("steps[%d]: %w", i, err)
		}
		if bf.PostStep != "" {
			cmd += " && " + bf.PostStep
		}

		sb.WriteString("\n")
		fmt.Fprintf(&sb, "# %s\n", step.Label(i))
		fmt.Fprintf(&sb, "RUN %s\n", cmd)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "CMD %s\n", bf.EntryCommand())

	return sb.String(), nil
}
