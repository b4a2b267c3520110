// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	BakefileNotFoundId Id = iota + 1
	BakefileParseErrorId
	EngineNotFoundId
	BasePullFailedId
	StepFailedId
	ConfigLoadFailedId
	LockfileStaleId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // optional links to project documentation for this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	bakefileNotFoundIssue = &Issue{
		id: BakefileNotFoundId,
		mdMsg: `
# No bakefile found!

We searched for a bakefile but couldn't find one in the expected locations.

## Search locations (in order of precedence):
1. The path given with --file
2. bakefile.cue in the current directory

## Things you can try:
- Create a starter bakefile in your current directory:
~~~
$ imgbake init
~~~

- Or point at an existing recipe:
~~~
$ imgbake build --file path/to/recipe.cue
~~~

## Example bakefile structure:
~~~cue
base: "debian:jessie"

steps: [
	{
		kind: "apt"
		packages: [{name: "git"}, {name: "python-pip"}]
	},
	{
		kind:    "pip_vcs"
		url:     "https://github.com/ross-urban/aws-ecs-service-discovery.git"
		package: "ecs_discovery"
	},
]

entry: "bash"
~~~`,
	}

	bakefileParseErrorIssue = &Issue{
		id: BakefileParseErrorId,
		mdMsg: `
# Failed to parse bakefile!

Your bakefile contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown step kinds (valid: run, apt, pip, pip_vcs)
- A step missing the fields its kind requires
- A step command that doesn't parse as POSIX shell

## Things you can try:
- Check the error message above for the specific line/column
- Validate the recipe without building anything:
~~~
$ imgbake validate
~~~

## Example of a valid step:
~~~cue
steps: [
	{
		name:    "greeting"
		kind:    "run"
		command: "echo hello > /etc/motd"
	},
]
~~~`,
	}

	engineNotFoundIssue = &Issue{
		id: EngineNotFoundId,
		mdMsg: `
# Container engine not found!

Baking an image requires a container engine, but none is available.

## Supported container engines:
- **Podman** (recommended for rootless setups)
- **Docker**

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `
  - Windows: Download from https://podman.io

- Install Docker:
  - https://docs.docker.com/get-docker/

- Configure your preferred engine in ~/.config/imgbake/config.cue:
~~~cue
container_engine: "podman"  // or "docker"
~~~`,
	}

	basePullFailedIssue = &Issue{
		id: BasePullFailedId,
		mdMsg: `
# Failed to pull the base image!

The recipe's base image could not be pulled, so no step was executed.

## Common causes:
- No network connectivity to the registry
- The image reference has a typo (check the tag)
- The registry requires authentication

## Things you can try:
- Pull the image manually to see the full registry error:
~~~
$ docker pull <base-image>
~~~

- Log in to the registry first:
~~~
$ docker login <registry>
~~~

- Check the ` + "`base`" + ` field in your bakefile for typos`,
	}

	stepFailedIssue = &Issue{
		id: StepFailedId,
		mdMsg: `
# A provisioning step failed!

The bake stopped at the first failing step. Steps after it were not
executed, and no image was produced.

## Common causes:
- A package name doesn't exist in the base image's repositories
- A network hiccup during download
- A shell command exited non-zero

## Things you can try:
- Re-run with verbose mode to see the engine's full build output:
~~~
$ imgbake --verbose build
~~~

- Render the generated Dockerfile and test the failing command manually:
~~~
$ imgbake render
$ docker run --rm -it <base-image> bash
~~~

- Check that package names match the base distribution's repositories`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the imgbake configuration file.

## Configuration file locations:
- Linux: ~/.config/imgbake/config.cue
- macOS: ~/Library/Application Support/imgbake/config.cue
- Windows: %APPDATA%\imgbake\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ imgbake config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/imgbake/config.cue
~~~

## Example configuration:
~~~cue
container_engine: "podman"

ui: {
  color_scheme: "auto"
  verbose: false
}

build: {
  pull_retries: 3
}
~~~`,
	}

	lockfileStaleIssue = &Issue{
		id: LockfileStaleId,
		mdMsg: `
# Lockfile is out of date!

The lockfile pins packages that no longer match your bakefile.

## Things you can try:
- Regenerate the lockfile from the current recipe:
~~~
$ imgbake lock
~~~

- Or build without applying pins:
~~~
$ imgbake build --no-lock
~~~`,
	}

	issues = map[Id]*Issue{
		bakefileNotFoundIssue.Id():   bakefileNotFoundIssue,
		bakefileParseErrorIssue.Id(): bakefileParseErrorIssue,
		engineNotFoundIssue.Id():     engineNotFoundIssue,
		basePullFailedIssue.Id():     basePullFailedIssue,
		stepFailedIssue.Id():         stepFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		lockfileStaleIssue.Id():      lockfileStaleIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
