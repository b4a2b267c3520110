// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"fmt"
	"strings"
)

// Default returns the starter recipe written by `imgbake init`: a Debian
// environment with the ecs_discovery tool installed from its git repository
// alongside the Python libraries it needs, dropping into an interactive shell.
func Default() *Bakefile {
	return &Bakefile{
		Description: "ECS service discovery toolbox",
		Base:        "debian:jessie",
		Env: map[string]string{
			"DEBIAN_FRONTEND": "noninteractive",
		},
		// Downloaded package archives are ephemeral build state; clearing them
		// after every step keeps them out of the image layers.
		PostStep: "apt-get clean",
		Steps: []Step{
			{
				Name:      "no-cache-policy",
				Kind:      StepRun,
				Cacheable: true,
				Command:   `echo 'APT::Keep-Downloaded-Packages "false";' > /etc/apt/apt.conf.d/90imgbake-no-cache`,
			},
			{
				Name:      "vcs-tooling",
				Kind:      StepApt,
				Cacheable: true,
				Packages:  []PackageSpec{{Name: "git"}, {Name: "python-pip"}},
			},
			{
				Name:      "download-tooling",
				Kind:      StepApt,
				Cacheable: true,
				Packages:  []PackageSpec{{Name: "wget"}},
			},
			{
				Name:      "discovery-tool",
				Kind:      StepPipVCS,
				Cacheable: true,
				URL:       "https://github.com/ross-urban/aws-ecs-service-discovery.git",
				Package:   "ecs_discovery",
			},
			{
				Name:      "discovery-libs",
				Kind:      StepPip,
				Cacheable: true,
				Packages: []PackageSpec{
					{Name: "python-etcd"},
					{Name: "jinja2"},
					{Name: "requests"},
				},
			},
		},
		Entry: DefaultEntry,
	}
}

// GenerateCUE renders a Bakefile as CUE text. The output round-trips through
// Parse and is deterministic (env keys are sorted).
func GenerateCUE(b *Bakefile) string {
	var sb strings.Builder

	sb.WriteString("// imgbake recipe\n")
	sb.WriteString("// Steps run strictly in declared order; each step's output is the next step's input.\n\n")

	if b.Description != "" {
		fmt.Fprintf(&sb, "description: %q\n", b.Description)
	}
	fmt.Fprintf(&sb, "base: %q\n", b.Base)

	if len(b.Env) > 0 {
		sb.WriteString("\nenv: {\n")
		for _, k := range b.SortedEnvKeys() {
			fmt.Fprintf(&sb, "\t%q: %q\n", k, b.Env[k])
		}
		sb.WriteString("}\n")
	}

	if b.PostStep != "" {
		fmt.Fprintf(&sb, "\npost_step: %q\n", b.PostStep)
	}

	sb.WriteString("\nsteps: [\n")
	for _, step := range b.Steps {
		writeStep(&sb, step)
	}
	sb.WriteString("]\n")

	fmt.Fprintf(&sb, "\nentry: %q\n", b.EntryCommand())

	return sb.String()
}

func writeStep(sb *strings.Builder, step Step) {
	sb.WriteString("\t{\n")
	if step.Name != "" {
		fmt.Fprintf(sb, "\t\tname: %q\n", step.Name)
	}
	fmt.Fprintf(sb, "\t\tkind: %q\n", step.Kind)

	switch step.Kind {
	case StepRun:
		fmt.Fprintf(sb, "\t\tcommand: %q\n", step.Command)
	case StepApt, StepPip:
		sb.WriteString("\t\tpackages: [\n")
		for _, p := range step.Packages {
			if p.Version != "" {
				fmt.Fprintf(sb, "\t\t\t{name: %q, version: %q},\n", p.Name, p.Version)
			} else {
				fmt.Fprintf(sb, "\t\t\t{name: %q},\n", p.Name)
			}
		}
		sb.WriteString("\t\t]\n")
	case StepPipVCS:
		fmt.Fprintf(sb, "\t\turl: %q\n", step.URL)
		fmt.Fprintf(sb, "\t\tpackage: %q\n", step.Package)
		if step.Ref != "" {
			fmt.Fprintf(sb, "\t\tref: %q\n", step.Ref)
		}
	}

	if !step.Cacheable {
		sb.WriteString("\t\tcacheable: false\n")
	}
	sb.WriteString("\t},\n")
}
