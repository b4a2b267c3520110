// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imgbake/imgbake/internal/config"
	"github.com/imgbake/imgbake/internal/container"
	"github.com/imgbake/imgbake/internal/issue"
	"github.com/imgbake/imgbake/internal/lockfile"
	"github.com/imgbake/imgbake/pkg/bakefile"
)

// loadRecipe loads and parses the bakefile at path. When applyLock is set and
// a lockfile sits next to the recipe, its pins are overlaid onto the parsed
// recipe; a stale lockfile aborts the load so builds never silently drift
// from their pins.
func loadRecipe(path string, applyLock bool) (*bakefile.Bakefile, error) {
	if _, err := os.Stat(path); err != nil {
		renderIssue(issue.BakefileNotFoundId)
		return nil, issue.NewErrorContext().
			WithOperation("load bakefile").
			WithResource(path).
			WithSuggestion("Run 'imgbake init' to create a starter bakefile").
			WithSuggestion("Use --file to point at a recipe in another location").
			Wrap(fmt.Errorf("bakefile not found: %s", path)).
			BuildError()
	}

	bf, err := bakefile.Load(path)
	if err != nil {
		return nil, err
	}

	if applyLock {
		lockPath := lockfilePathFor(path)
		if _, statErr := os.Stat(lockPath); statErr == nil {
			lf, loadErr := lockfile.Load(lockPath)
			if loadErr != nil {
				return nil, loadErr
			}
			if applyErr := lf.Apply(bf); applyErr != nil {
				if errors.Is(applyErr, lockfile.ErrStale) {
					renderIssue(issue.LockfileStaleId)
				}
				return nil, applyErr
			}
		}
	}

	return bf, nil
}

// lockfilePathFor returns the lockfile path that pairs with a recipe path:
// bakefile.lock.toml in the recipe's directory.
func lockfilePathFor(recipePath string) string {
	return filepath.Join(filepath.Dir(recipePath), lockfile.DefaultFileName)
}

// resolveEngine selects the container engine from configuration.
func resolveEngine(cfg *config.Config) (container.Engine, error) {
	engine, err := container.NewEngine(container.EngineType(cfg.ContainerEngine))
	if err != nil {
		renderIssue(issue.EngineNotFoundId)
		return nil, err
	}
	return engine, nil
}
