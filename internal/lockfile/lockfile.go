// SPDX-License-Identifier: MPL-2.0

// Package lockfile persists version pins for a recipe's packages so that
// rebuilding the same bakefile yields the same installed versions. Pins live
// next to the recipe in bakefile.lock.toml and are overlaid onto the parsed
// recipe at build time.
package lockfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/imgbake/imgbake/pkg/bakefile"
)

// DefaultFileName is the lockfile name looked up next to the recipe.
const DefaultFileName = "bakefile.lock.toml"

// CurrentVersion is the lockfile format version written by this binary.
const CurrentVersion = 1

// ErrStale is the sentinel error wrapped by StaleError.
var ErrStale = errors.New("lockfile is stale")

type (
	// Lockfile records the version pins for every package a recipe installs.
	Lockfile struct {
		Version  int       `toml:"version"`
		Base     string    `toml:"base"`
		Packages []Package `toml:"packages,omitempty"`
		VCS      []VCSPin  `toml:"vcs,omitempty"`
	}

	// Package pins a single package from an apt or pip step.
	// An empty Pin means the package was recorded but never resolved to a
	// concrete version; Apply leaves such packages unpinned.
	Package struct {
		Manager string `toml:"manager"` // "apt" or "pip"
		Name    string `toml:"name"`
		Pin     string `toml:"pin"`
	}

	// VCSPin pins a pip_vcs step to a specific git ref.
	VCSPin struct {
		URL     string `toml:"url"`
		Package string `toml:"package"`
		Ref     string `toml:"ref"`
	}

	// StaleError is returned when the lockfile pins packages that no longer
	// match the bakefile, meaning the recipe changed since the last lock.
	StaleError struct {
		// Orphans lists lockfile entries with no matching recipe package.
		Orphans []string
	}
)

// Error implements the error interface.
func (e *StaleError) Error() string {
	return fmt.Sprintf("lockfile is stale: %d entr%s no longer match the bakefile (run 'imgbake lock' to regenerate)",
		len(e.Orphans), pluralY(len(e.Orphans)))
}

// Unwrap returns ErrStale for errors.Is() compatibility.
func (e *StaleError) Unwrap() error { return ErrStale }

func pluralY(n int) string {
	if n == 1 {
		return "y does"
	}
	return "ies do"
}

// Load reads and parses a lockfile from disk.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}

	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile %s: %w", path, err)
	}

	if lf.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported lockfile version %d (expected %d)", lf.Version, CurrentVersion)
	}

	return &lf, nil
}

// Save writes the lockfile to disk as TOML.
func Save(path string, lf *Lockfile) error {
	data, err := toml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("failed to encode lockfile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}
	return nil
}

// FromBakefile builds a lockfile from a recipe. Versions stated explicitly in
// the recipe become pins; for packages without one, the pin is carried over
// from prev (the previously saved lockfile) when present, otherwise the entry
// is recorded unpinned. Passing a nil prev is allowed.
func FromBakefile(bf *bakefile.Bakefile, prev *Lockfile) *Lockfile {
	lf := &Lockfile{
		Version: CurrentVersion,
		Base:    string(bf.Base),
	}

	for _, step := range bf.Steps {
		switch step.Kind {
		case bakefile.StepApt, bakefile.StepPip:
			manager := managerFor(step.Kind)
			for _, p := range step.Packages {
				pin := p.Version
				if pin == "" && prev != nil {
					pin = prev.packagePin(manager, p.Name)
				}
				lf.Packages = append(lf.Packages, Package{
					Manager: manager,
					Name:    p.Name,
					Pin:     pin,
				})
			}
		case bakefile.StepPipVCS:
			ref := step.Ref
			if ref == "" && prev != nil {
				ref = prev.vcsRef(step.URL, step.Package)
			}
			lf.VCS = append(lf.VCS, VCSPin{
				URL:     step.URL,
				Package: step.Package,
				Ref:     ref,
			})
		}
	}

	return lf
}

// Apply overlays the lockfile's pins onto the recipe in place. Versions
// stated explicitly in the recipe win over lockfile pins; unpinned lockfile
// entries change nothing. It returns a StaleError when the lockfile carries
// pinned entries that no longer match any recipe package.
func (lf *Lockfile) Apply(bf *bakefile.Bakefile) error {
	if err := lf.Verify(bf); err != nil {
		return err
	}

	for i := range bf.Steps {
		step := &bf.Steps[i]
		switch step.Kind {
		case bakefile.StepApt, bakefile.StepPip:
			manager := managerFor(step.Kind)
			for j := range step.Packages {
				p := &step.Packages[j]
				if p.Version != "" {
					continue
				}
				if pin := lf.packagePin(manager, p.Name); pin != "" {
					p.Version = pin
				}
			}
		case bakefile.StepPipVCS:
			if step.Ref == "" {
				if ref := lf.vcsRef(step.URL, step.Package); ref != "" {
					step.Ref = ref
				}
			}
		}
	}

	return nil
}

// Verify checks the lockfile against a recipe and returns a StaleError when
// pinned entries no longer correspond to any recipe package. Unpinned
// orphans are tolerated: they carry no information worth failing over.
func (lf *Lockfile) Verify(bf *bakefile.Bakefile) error {
	present := make(map[string]bool)
	vcsPresent := make(map[string]bool)
	for _, step := range bf.Steps {
		switch step.Kind {
		case bakefile.StepApt, bakefile.StepPip:
			for _, p := range step.Packages {
				present[managerFor(step.Kind)+"/"+p.Name] = true
			}
		case bakefile.StepPipVCS:
			vcsPresent[step.URL+"#"+step.Package] = true
		}
	}

	var orphans []string
	for _, p := range lf.Packages {
		if p.Pin != "" && !present[p.Manager+"/"+p.Name] {
			orphans = append(orphans, p.Manager+"/"+p.Name)
		}
	}
	for _, v := range lf.VCS {
		if v.Ref != "" && !vcsPresent[v.URL+"#"+v.Package] {
			orphans = append(orphans, v.URL+"#"+v.Package)
		}
	}

	if len(orphans) > 0 {
		return &StaleError{Orphans: orphans}
	}
	return nil
}

func (lf *Lockfile) packagePin(manager, name string) string {
	for _, p := range lf.Packages {
		if p.Manager == manager && p.Name == name {
			return p.Pin
		}
	}
	return ""
}

func (lf *Lockfile) vcsRef(url, pkg string) string {
	for _, v := range lf.VCS {
		if v.URL == url && v.Package == pkg {
			return v.Ref
		}
	}
	return ""
}

func managerFor(kind bakefile.StepKind) string {
	if kind == bakefile.StepApt {
		return "apt"
	}
	return "pip"
}
