// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/imgbake/imgbake/pkg/types"
)

const (
	// StepRun executes a literal shell command.
	StepRun StepKind = "run"
	// StepApt installs system packages via apt-get (index refresh included).
	StepApt StepKind = "apt"
	// StepPip installs Python packages by name via pip.
	StepPip StepKind = "pip"
	// StepPipVCS installs a Python package from a version-control URL via pip.
	StepPipVCS StepKind = "pip_vcs"

	// DefaultFileName is the conventional recipe file name.
	DefaultFileName = "bakefile.cue"

	// DefaultEntry is the default command of the resulting image when the
	// recipe does not declare one.
	DefaultEntry = "bash"
)

var (
	// ErrInvalidStepKind is the sentinel error wrapped by InvalidStepKindError.
	ErrInvalidStepKind = errors.New("invalid step kind")
	// ErrInvalidImageRef is the sentinel error wrapped by InvalidImageRefError.
	ErrInvalidImageRef = errors.New("invalid image reference")
)

type (
	// StepKind identifies how a provisioning step is compiled to a shell command.
	StepKind string

	// InvalidStepKindError is returned when a StepKind is not recognized.
	InvalidStepKindError struct {
		Value StepKind
	}

	// ImageRef is a container image reference in name[:tag] form.
	ImageRef string

	// InvalidImageRefError is returned when an ImageRef is empty or contains
	// whitespace.
	InvalidImageRefError struct {
		Value ImageRef
	}

	// PackageSpec names a package to install, with an optional version pin.
	// An unpinned package resolves to whatever is latest at build time unless
	// a lockfile supplies the pin.
	PackageSpec struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	}

	// Step is one provisioning step. Exactly one of the kind-specific field
	// groups is populated, matching Kind:
	//
	//   run:     Command
	//   apt:     Packages
	//   pip:     Packages
	//   pip_vcs: URL, Package, Ref
	Step struct {
		// Name optionally labels the step. Must be unique when set.
		Name string `json:"name,omitempty"`
		// Kind selects how the step compiles to a shell command.
		Kind StepKind `json:"kind"`
		// Cacheable reports whether the step's layer may come from the build
		// cache. Any non-cacheable step forces a full no-cache build.
		Cacheable bool `json:"cacheable"`

		// Command is the literal shell command for run steps.
		Command string `json:"command,omitempty"`
		// Packages lists packages for apt and pip steps.
		Packages []PackageSpec `json:"packages,omitempty"`
		// URL is the version-control source for pip_vcs steps.
		URL string `json:"url,omitempty"`
		// Package is the installed package name for pip_vcs steps.
		Package string `json:"package,omitempty"`
		// Ref is the optional commit/branch/tag pin for pip_vcs steps.
		Ref string `json:"ref,omitempty"`
	}

	// Bakefile is a parsed recipe: a base image, ordered provisioning steps,
	// and the default entry command of the resulting image.
	Bakefile struct {
		// Description optionally describes what the recipe produces.
		Description types.DescriptionText `json:"description,omitempty"`
		// Base is the starting image reference. Immutable once chosen.
		Base ImageRef `json:"base"`
		// Env is baked into the image and visible to every step.
		Env map[string]string `json:"env,omitempty"`
		// PostStep is an optional hook appended to every step, run in the same
		// layer after the step's own command. It clears ephemeral state
		// (package caches) so it never leaks into the layer.
		PostStep string `json:"post_step,omitempty"`
		// Steps are applied strictly in declared order.
		Steps []Step `json:"steps"`
		// Entry is the default command of the resulting image.
		Entry string `json:"entry"`
	}
)

// Error implements the error interface.
func (e *InvalidStepKindError) Error() string {
	return fmt.Sprintf("invalid step kind %q (valid: run, apt, pip, pip_vcs)", e.Value)
}

// Unwrap returns ErrInvalidStepKind for errors.Is() compatibility.
func (e *InvalidStepKindError) Unwrap() error { return ErrInvalidStepKind }

// String returns the string representation of the StepKind.
func (k StepKind) String() string { return string(k) }

// Validate returns an error if the StepKind is not one of the defined kinds.
func (k StepKind) Validate() error {
	switch k {
	case StepRun, StepApt, StepPip, StepPipVCS:
		return nil
	default:
		return &InvalidStepKindError{Value: k}
	}
}

// Error implements the error interface.
func (e *InvalidImageRefError) Error() string {
	return fmt.Sprintf("invalid image reference %q: must be non-empty without whitespace", e.Value)
}

// Unwrap returns ErrInvalidImageRef for errors.Is() compatibility.
func (e *InvalidImageRefError) Unwrap() error { return ErrInvalidImageRef }

// String returns the string representation of the ImageRef.
func (r ImageRef) String() string { return string(r) }

// Validate returns an error if the ImageRef is empty or contains whitespace.
func (r ImageRef) Validate() error {
	s := string(r)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t\n") {
		return &InvalidImageRefError{Value: r}
	}
	return nil
}

// Spec returns the package in pip/apt requirement syntax: "name", "name==1.2"
// for pip, or "name=1.2" for apt.
func (p PackageSpec) Spec(kind StepKind) string {
	if p.Version == "" {
		return p.Name
	}
	if kind == StepApt {
		return p.Name + "=" + p.Version
	}
	return p.Name + "==" + p.Version
}

// Label returns the step's display label: the explicit name when set,
// otherwise a positional label derived from the kind.
func (s Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s step %d", s.Kind, index+1)
}

// ShellCommand compiles the step to the shell command executed in its layer.
// The recipe-level post-step hook is NOT included; the assembler appends it.
func (s Step) ShellCommand() (string, error) {
	switch s.Kind {
	case StepRun:
		if s.Command == "" {
			return "", fmt.Errorf("run step requires a command")
		}
		return s.Command, nil

	case StepApt:
		if len(s.Packages) == 0 {
			return "", fmt.Errorf("apt step requires at least one package")
		}
		// Refresh the index in the same layer so the install never sees a
		// stale index from an earlier cached layer.
		return "apt-get update && apt-get install -y " + s.packageSpecs(), nil

	case StepPip:
		if len(s.Packages) == 0 {
			return "", fmt.Errorf("pip step requires at least one package")
		}
		return "pip install " + s.packageSpecs(), nil

	case StepPipVCS:
		if s.URL == "" || s.Package == "" {
			return "", fmt.Errorf("pip_vcs step requires url and package")
		}
		src := "git+" + s.URL
		if s.Ref != "" {
			src += "@" + s.Ref
		}
		return fmt.Sprintf("pip install %s#egg=%s", src, s.Package), nil

	default:
		return "", &InvalidStepKindError{Value: s.Kind}
	}
}

func (s Step) packageSpecs() string {
	specs := make([]string, 0, len(s.Packages))
	for _, p := range s.Packages {
		specs = append(specs, p.Spec(s.Kind))
	}
	return strings.Join(specs, " ")
}

// CacheableBuild reports whether every step allows layer caching.
// A single non-cacheable step disables the build cache for the whole build:
// later layers depend on earlier ones, so serving any layer after the
// non-cacheable one from cache would observe stale output.
func (b *Bakefile) CacheableBuild() bool {
	for _, s := range b.Steps {
		if !s.Cacheable {
			return false
		}
	}
	return true
}

// SortedEnvKeys returns the env keys in sorted order so renderings of the
// recipe are deterministic.
func (b *Bakefile) SortedEnvKeys() []string {
	keys := make([]string, 0, len(b.Env))
	for k := range b.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EntryCommand returns the declared entry command, falling back to
// DefaultEntry when empty.
func (b *Bakefile) EntryCommand() string {
	if b.Entry == "" {
		return DefaultEntry
	}
	return b.Entry
}
